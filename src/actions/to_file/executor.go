//lint:ignore ST1003 readability
package to_file // revive:disable-line:var-naming

import (
	"bytes"
	"io"
	"path/filepath"

	"github.com/illikainen/snapback/src/actions"
	"github.com/illikainen/snapback/src/envx"

	"github.com/illikainen/go-utils/src/fn"
	"github.com/illikainen/go-utils/src/iofs"
	"github.com/pkg/errors"
)

func init() {
	fn.Must(actions.Register("to-file", NewExecutor))
}

// Executor writes the pipeline stream into the backup directory and
// records the written path as the pipeline output.
type Executor struct {
	dir string
	to  string
}

func NewExecutor() (actions.Executor, error) {
	return &Executor{}, nil
}

func (e *Executor) Configure(params envx.Value) error {
	env, ok := params.(envx.Env)
	if !ok {
		return errors.Errorf("to-file requires parameters")
	}

	e.to, _ = env.GetString("to")
	if e.to == "" {
		return errors.Errorf("to-file requires a destination name")
	}

	e.dir, _ = env.GetString("_backup_path")
	if e.dir == "" {
		return errors.Errorf("to-file requires the injected backup path")
	}

	return nil
}

func (e *Executor) Execute(ctx *actions.Context) error {
	var input io.Reader = ctx.Input
	if input == nil {
		input = bytes.NewReader(nil)
	}

	path := filepath.Join(e.dir, e.to)
	err := iofs.WriteFile(path, input)
	if err != nil {
		return err
	}

	ctx.Output = path
	return nil
}
