package backup

import (
	"bytes"
	"path/filepath"
	"time"

	"github.com/illikainen/snapback/src/defs"
	"github.com/illikainen/snapback/src/envx"

	"github.com/illikainen/go-utils/src/iofs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const ManifestVersion = 1

// ManifestName is the sidecar file written at the backup root.
const ManifestName = ".manifest.yaml"

// Manifest is the structured record of one completed backup run.  It
// is written once when the backup is sealed and never mutated by this
// program; external upload tooling may flip Uploaded later.
type Manifest struct {
	Version         int                            `yaml:"version"`
	CreatedAt       time.Time                      `yaml:"createdAt"`
	Uploaded        bool                           `yaml:"uploaded"`
	TaskDefinitions map[string]*ManifestDefinition `yaml:"taskDefinitions"`
}

type ManifestDefinition struct {
	Env    envx.Env        `yaml:"env"`
	Inside string          `yaml:"inside,omitempty"`
	Tasks  []*ManifestTask `yaml:"tasks"`
}

type ManifestTask struct {
	Name    string         `yaml:"name"`
	Env     envx.Env       `yaml:"env"`
	Actions []*defs.Action `yaml:"actions"`
	Result  string         `yaml:"result"`
}

// DefinitionResult pairs a definition with the per-task result paths
// of one run.  Paths are relative to the backup root.
type DefinitionResult struct {
	Definition *defs.Definition
	Results    map[string]string
}

// NewManifest builds the manifest record from the ordered results of a
// successful run.  A task without a recorded result (a failed task
// whose stopOnFail was false) is left out of the manifest.
func NewManifest(results []*DefinitionResult) *Manifest {
	manifest := &Manifest{
		Version:         ManifestVersion,
		CreatedAt:       time.Now().UTC(),
		Uploaded:        false,
		TaskDefinitions: map[string]*ManifestDefinition{},
	}

	for _, result := range results {
		definition := result.Definition
		entry := &ManifestDefinition{
			Env:    definition.Env,
			Inside: definition.Inside,
			Tasks:  []*ManifestTask{},
		}

		for _, task := range definition.Tasks {
			path, ok := result.Results[task.Name]
			if !ok {
				log.Warnf("task %s has no result, leaving it out of the manifest", task.Name)
				continue
			}

			entry.Tasks = append(entry.Tasks, &ManifestTask{
				Name:    task.Name,
				Env:     task.Env,
				Actions: task.Actions,
				Result:  path,
			})
		}

		manifest.TaskDefinitions[definition.FileName] = entry
	}

	return manifest
}

// Write serializes the manifest to its sidecar path under dir.
func (m *Manifest) Write(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.WithStack(err)
	}

	path := filepath.Join(dir, ManifestName)
	log.Debugf("writing manifest at %s", path)
	return iofs.WriteFile(path, bytes.NewReader(data))
}

// ReadManifest loads the manifest of a sealed backup.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := iofs.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{}
	err = yaml.Unmarshal(data, manifest)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return manifest, nil
}
