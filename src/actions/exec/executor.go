package exec

import (
	"bytes"

	"github.com/illikainen/snapback/src/actions"
	"github.com/illikainen/snapback/src/envx"

	"github.com/illikainen/go-utils/src/fn"
	"github.com/illikainen/go-utils/src/process"
	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

func init() {
	fn.Must(actions.Register("exec", NewExecutor))
}

// Executor runs a command and feeds its stdout into the pipeline.
type Executor struct {
	cmd   string
	shell bool
}

func NewExecutor() (actions.Executor, error) {
	return &Executor{}, nil
}

func (e *Executor) Configure(params envx.Value) error {
	switch params := params.(type) {
	case envx.String:
		e.cmd = string(params)
	case envx.Env:
		e.cmd, _ = params.GetString("cmd")
		if scalar, ok := params["shell"].(envx.Scalar); ok {
			e.shell, _ = scalar.V.(bool)
		}
	}

	if e.cmd == "" {
		return errors.Errorf("exec requires a command")
	}
	return nil
}

func (e *Executor) Execute(ctx *actions.Context) error {
	var cmd []string
	if e.shell {
		cmd = []string{"/bin/sh", "-c", "--", e.cmd}
	} else {
		s, err := shellquote.Split(e.cmd)
		if err != nil {
			return errors.WithStack(err)
		}
		cmd = s
	}

	out, err := process.Exec(&process.ExecOptions{
		Command: cmd,
	})
	if err != nil {
		return err
	}

	ctx.Input = bytes.NewReader(out.Stdout)
	return nil
}
