package defs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/illikainen/snapback/src/defs"
	"github.com/illikainen/snapback/src/envx"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir string, name string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const minimal = `
tasks:
  - name: dump
    actions:
      - exec: "true"
`

func TestLoadOrder(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "30-db.yaml", minimal)
	write(t, dir, "10-files.yml", minimal)
	write(t, dir, "20-mail.json", `{"tasks": [{"name": "dump", "actions": [{"exec": "true"}]}]}`)
	write(t, dir, "ignored.txt", "not a definition")

	definitions, err := defs.Load(dir)
	require.NoError(t, err)
	require.Len(t, definitions, 3)
	require.Equal(t, "10-files.yml", definitions[0].FileName)
	require.Equal(t, "20-mail.json", definitions[1].FileName)
	require.Equal(t, "30-db.yaml", definitions[2].FileName)

	// The definition name defaults to the file name without its
	// extension.
	require.Equal(t, "10-files", definitions[0].Name)
	require.Equal(t, "20-mail", definitions[1].Name)
}

func TestLoadMissingDir(t *testing.T) {
	_, err := defs.Load(filepath.Join(t.TempDir(), "missing"))

	notFound := &defs.NotFoundError{}
	require.ErrorAs(t, err, &notFound)
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "db.yaml", `
name: databases
env:
  PGUSER: postgres
  PGPASSWORD: "#postgres.password"
inside: databases
tasks:
  - name: dump
    env:
      PGDATABASE: app
    stopOnFail: true
    actions:
      - exec:
          cmd: pg_dump
      - to-file:
          to: app.sql
`)

	definition, err := defs.Parse(filepath.Join(dir, "db.yaml"))
	require.NoError(t, err)
	require.Equal(t, "databases", definition.Name)
	require.Equal(t, "db.yaml", definition.FileName)
	require.Equal(t, "databases", definition.Inside)
	require.Equal(t, envx.Env{
		"PGUSER":     envx.String("postgres"),
		"PGPASSWORD": envx.Alias("postgres.password"),
	}, definition.Env)

	require.Len(t, definition.Tasks, 1)
	task := definition.Tasks[0]
	require.Equal(t, "dump", task.Name)
	require.True(t, task.StopOnFail)

	require.Len(t, task.Actions, 2)
	require.Equal(t, "exec", task.Actions[0].Kind)
	require.Equal(t, envx.Env{"cmd": envx.String("pg_dump")}, task.Actions[0].Params)
	require.Equal(t, "to-file", task.Actions[1].Kind)
}

func TestParseActionShapes(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "shapes.yaml", `
tasks:
  - name: shapes
    actions:
      - tar: null
      - exec: "echo hi"
`)

	definition, err := defs.Parse(filepath.Join(dir, "shapes.yaml"))
	require.NoError(t, err)

	actions := definition.Tasks[0].Actions
	require.Equal(t, "tar", actions[0].Kind)
	require.Nil(t, actions[0].Params)
	require.Equal(t, "exec", actions[1].Kind)
	require.Equal(t, envx.String("echo hi"), actions[1].Params)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"malformed":      "tasks: [",
		"unknown-field":  "tasks: []\nbogus: true",
		"no-tasks":       "name: empty",
		"unnamed-task":   "tasks:\n  - actions:\n      - exec: \"true\"",
		"no-actions":     "tasks:\n  - name: dump",
		"two-key-action": "tasks:\n  - name: dump\n    actions:\n      - exec: \"true\"\n        tar: null",
		"duplicate-task": minimal + "  - name: dump\n    actions:\n      - exec: \"true\"\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			write(t, dir, "bad.yaml", content)

			_, err := defs.Parse(filepath.Join(dir, "bad.yaml"))

			parseErr := &defs.ParseError{}
			require.ErrorAs(t, err, &parseErr)
		})
	}
}
