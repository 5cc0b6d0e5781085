//lint:ignore ST1003 readability
package from_file // revive:disable-line:var-naming

import (
	"os"

	"github.com/illikainen/snapback/src/actions"
	"github.com/illikainen/snapback/src/envx"

	"github.com/illikainen/go-utils/src/fn"
	"github.com/pkg/errors"
)

func init() {
	fn.Must(actions.Register("from-file", NewExecutor))
}

// Executor streams an existing file into the pipeline.
type Executor struct {
	path string
}

func NewExecutor() (actions.Executor, error) {
	return &Executor{}, nil
}

func (e *Executor) Configure(params envx.Value) error {
	switch params := params.(type) {
	case envx.String:
		e.path = string(params)
	case envx.Env:
		e.path, _ = params.GetString("path")
	}

	if e.path == "" {
		return errors.Errorf("from-file requires a path")
	}
	return nil
}

func (e *Executor) Execute(ctx *actions.Context) error {
	f, err := os.Open(e.path) // #nosec G304
	if err != nil {
		return errors.WithStack(err)
	}

	ctx.AddCloser(f)
	ctx.Input = f
	return nil
}
