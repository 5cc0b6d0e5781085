// Package actions executes the resolved action pipeline of one task.
// The orchestrator treats this as an opaque boundary: it hands over an
// ordered list of (kind, params) pairs and receives the path the
// pipeline produced.
package actions

import (
	"io"

	"github.com/illikainen/snapback/src/defs"
	"github.com/illikainen/snapback/src/envx"

	"github.com/illikainen/go-utils/src/errorx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Runner executes the ordered action pipeline for exactly one task and
// returns the filesystem path it produced.
type Runner interface {
	Run(task string, actions []*defs.Action) (string, error)
}

// Context is threaded through the stages of one pipeline.  A source
// stage sets Input, filter stages replace it and a sink stage records
// the produced path in Output.
type Context struct {
	Task    string
	Input   io.Reader
	Output  string
	closers []io.Closer
}

// AddCloser registers a resource to close when the pipeline finishes.
func (c *Context) AddCloser(closer io.Closer) {
	c.closers = append(c.closers, closer)
}

func (c *Context) close() error {
	var err error
	for _, closer := range c.closers {
		e := closer.Close()
		if e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}
	return err
}

// Executor runs one action kind.
type Executor interface {
	Configure(params envx.Value) error
	Execute(ctx *Context) error
}

var executors = map[string]func() (Executor, error){}

// Register adds an executor constructor under an action kind.
func Register(name string, fun func() (Executor, error)) error {
	if _, ok := executors[name]; ok {
		return errors.Errorf("%s is already registered", name)
	}

	executors[name] = fun
	return nil
}

// Lookup instantiates an executor by action kind.
func Lookup(name string) (Executor, error) {
	fun, ok := executors[name]
	if !ok {
		return nil, errors.Errorf("%s is not a valid action", name)
	}

	return fun()
}

// Pipeline runs registered executors in declaration order.
type Pipeline struct{}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) Run(task string, actions []*defs.Action) (path string, err error) {
	ctx := &Context{Task: task}
	defer errorx.Defer(ctx.close, &err)

	for _, action := range actions {
		log.Debugf("%s: running action %s", task, action.Kind)

		executor, err := Lookup(action.Kind)
		if err != nil {
			return "", err
		}

		err = executor.Configure(action.Params)
		if err != nil {
			return "", errors.Wrapf(err, "%s", action.Kind)
		}

		err = executor.Execute(ctx)
		if err != nil {
			return "", errors.Wrapf(err, "%s", action.Kind)
		}
	}

	if ctx.Output == "" {
		return "", errors.Errorf("pipeline for task %s produced no output", task)
	}

	return ctx.Output, nil
}
