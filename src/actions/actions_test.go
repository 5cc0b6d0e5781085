package actions_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/illikainen/snapback/src/actions"
	_ "github.com/illikainen/snapback/src/actions/from_file" // executor
	_ "github.com/illikainen/snapback/src/actions/to_file"   // executor
	"github.com/illikainen/snapback/src/defs"
	"github.com/illikainen/snapback/src/envx"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type nopExecutor struct{}

func (*nopExecutor) Configure(envx.Value) error         { return nil }
func (*nopExecutor) Execute(ctx *actions.Context) error { return nil }

func TestRegisterDuplicate(t *testing.T) {
	fun := func() (actions.Executor, error) {
		return &nopExecutor{}, nil
	}

	require.NoError(t, actions.Register("duplicate-test", fun))
	require.Error(t, actions.Register("duplicate-test", fun))
}

func TestRunUnknownKind(t *testing.T) {
	pipeline := actions.NewPipeline()
	_, err := pipeline.Run("task", []*defs.Action{{Kind: "no-such-action"}})
	require.ErrorContains(t, err, "not a valid action")
}

func TestRunNoOutput(t *testing.T) {
	require.NoError(t, actions.Register("no-output-test", func() (actions.Executor, error) {
		return &nopExecutor{}, nil
	}))

	pipeline := actions.NewPipeline()
	_, err := pipeline.Run("task", []*defs.Action{{Kind: "no-output-test"}})
	require.ErrorContains(t, err, "produced no output")
}

func TestRunFileToFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "dump.sql")
	require.NoError(t, os.WriteFile(src, []byte("select 1;\n"), 0o644))
	backup := t.TempDir()

	pipeline := actions.NewPipeline()
	path, err := pipeline.Run("dump", []*defs.Action{
		{Kind: "from-file", Params: envx.String(src)},
		{Kind: "to-file", Params: envx.Env{
			"to":           envx.String("dump.sql"),
			"_backup_path": envx.String(backup),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(backup, "dump.sql"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "select 1;\n", string(data))
}

type failingExecutor struct{}

func (*failingExecutor) Configure(envx.Value) error { return nil }
func (*failingExecutor) Execute(*actions.Context) error {
	return errors.Errorf("broken stage")
}

func TestRunFailingStage(t *testing.T) {
	require.NoError(t, actions.Register("failing-test", func() (actions.Executor, error) {
		return &failingExecutor{}, nil
	}))

	pipeline := actions.NewPipeline()
	_, err := pipeline.Run("task", []*defs.Action{{Kind: "failing-test"}})
	require.ErrorContains(t, err, "broken stage")
}
