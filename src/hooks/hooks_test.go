package hooks_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/illikainen/snapback/src/hooks"

	"github.com/stretchr/testify/require"
)

func TestFireWithoutDir(t *testing.T) {
	dispatcher := &hooks.ExecDispatcher{}
	require.NoError(t, dispatcher.Fire("backup:before", "/tmp/x"))
}

func TestFireWithoutHook(t *testing.T) {
	dispatcher := &hooks.ExecDispatcher{Dir: t.TempDir()}
	require.NoError(t, dispatcher.Fire("backup:before", "/tmp/x"))
}

func TestFire(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hook scripts require a POSIX shell")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > " + out + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup:after"), []byte(script), 0o755))

	dispatcher := &hooks.ExecDispatcher{Dir: dir}
	require.NoError(t, dispatcher.Fire("backup:after", "/backups/x", "dbs"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "/backups/x\ndbs\n", string(data))
}

func TestFireFailingHook(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hook scripts require a POSIX shell")
	}

	dir := t.TempDir()
	script := "#!/bin/sh\nexit 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup:error"), []byte(script), 0o755))

	dispatcher := &hooks.ExecDispatcher{Dir: dir}
	require.Error(t, dispatcher.Fire("backup:error", "boom"))
}
