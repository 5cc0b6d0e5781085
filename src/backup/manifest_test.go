package backup_test

import (
	"testing"
	"time"

	"github.com/illikainen/snapback/src/backup"
	"github.com/illikainen/snapback/src/defs"
	"github.com/illikainen/snapback/src/envx"

	"github.com/stretchr/testify/require"
)

func definitionFixture() *defs.Definition {
	return &defs.Definition{
		Name:     "databases",
		FileName: "10-db.yaml",
		Env:      envx.Env{"PGUSER": envx.String("postgres")},
		Inside:   "databases",
		Tasks: []*defs.Task{
			{
				Name: "dump",
				Env:  envx.Env{"PGDATABASE": envx.String("app")},
				Actions: []*defs.Action{
					{Kind: "exec", Params: envx.String("pg_dump app")},
					{Kind: "to-file", Params: envx.Env{"to": envx.String("app.sql")}},
				},
			},
			{
				Name:    "optional",
				Actions: []*defs.Action{{Kind: "exec", Params: envx.String("false")}},
			},
		},
	}
}

func TestNewManifest(t *testing.T) {
	manifest := backup.NewManifest([]*backup.DefinitionResult{{
		Definition: definitionFixture(),
		Results:    map[string]string{"dump": "databases/app.sql"},
	}})

	require.Equal(t, backup.ManifestVersion, manifest.Version)
	require.False(t, manifest.Uploaded)
	require.WithinDuration(t, time.Now().UTC(), manifest.CreatedAt, time.Minute)

	entry := manifest.TaskDefinitions["10-db.yaml"]
	require.NotNil(t, entry)
	require.Equal(t, "databases", entry.Inside)

	// The task without a result is left out.
	require.Len(t, entry.Tasks, 1)
	require.Equal(t, "dump", entry.Tasks[0].Name)
	require.Equal(t, "databases/app.sql", entry.Tasks[0].Result)
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	manifest := backup.NewManifest([]*backup.DefinitionResult{{
		Definition: definitionFixture(),
		Results:    map[string]string{"dump": "databases/app.sql"},
	}})
	require.NoError(t, manifest.Write(dir))

	read, err := backup.ReadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, backup.ManifestVersion, read.Version)
	require.False(t, read.Uploaded)

	entry := read.TaskDefinitions["10-db.yaml"]
	require.NotNil(t, entry)
	require.Equal(t, envx.Env{"PGUSER": envx.String("postgres")}, entry.Env)

	task := entry.Tasks[0]
	require.Equal(t, "dump", task.Name)
	require.Equal(t, "databases/app.sql", task.Result)

	// Actions keep their single-key on-disk shape.
	require.Equal(t, "exec", task.Actions[0].Kind)
	require.Equal(t, envx.String("pg_dump app"), task.Actions[0].Params)
	require.Equal(t, "to-file", task.Actions[1].Kind)
	require.Equal(t, envx.Env{"to": envx.String("app.sql")}, task.Actions[1].Params)
}

func TestReadManifestMissing(t *testing.T) {
	_, err := backup.ReadManifest(t.TempDir())
	require.Error(t, err)
}
