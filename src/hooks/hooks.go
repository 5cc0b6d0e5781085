// Package hooks fires named lifecycle events.  Events map to
// executables in a hooks directory; an event without a matching
// executable is a no-op.
package hooks

import (
	"path/filepath"

	"github.com/illikainen/go-utils/src/iofs"
	"github.com/illikainen/go-utils/src/process"
	log "github.com/sirupsen/logrus"
)

// Dispatcher fires one named event with positional string arguments.
// Failures are not retried and not swallowed; they propagate like any
// other step failure.
type Dispatcher interface {
	Fire(event string, args ...string) error
}

// ExecDispatcher runs the executable named after the event from Dir.
type ExecDispatcher struct {
	Dir string
}

func (d *ExecDispatcher) Fire(event string, args ...string) error {
	if d.Dir == "" {
		log.Tracef("no hooks directory, skipping %s", event)
		return nil
	}

	path := filepath.Join(d.Dir, event)
	exists, err := iofs.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		log.Tracef("no hook for %s", event)
		return nil
	}

	log.Debugf("firing hook %s", event)
	_, err = process.Exec(&process.ExecOptions{
		Command: append([]string{path}, args...),
	})
	return err
}

// NopDispatcher ignores every event.
type NopDispatcher struct{}

func (*NopDispatcher) Fire(string, ...string) error {
	return nil
}
