// Package defs loads declarative task-definition files.  A definition
// file groups an ordered list of tasks, each with its own environment
// and an ordered action pipeline.
package defs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/illikainen/snapback/src/envx"

	"github.com/illikainen/go-utils/src/seq"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Definitions are stored in YAML or JSON.  JSON files are decoded with
// the YAML parser since YAML is a superset of JSON.
var extensions = []string{".json", ".yaml", ".yml"}

// Definition is one parsed task-definition file.
type Definition struct {
	Name     string   `yaml:"name"`
	FileName string   `yaml:"-"`
	Env      envx.Env `yaml:"env"`
	Inside   string   `yaml:"inside"`
	Tasks    []*Task  `yaml:"tasks"`
}

// Task is a named unit with its own environment and an ordered action
// pipeline.  StopOnFail controls whether a failure of this task aborts
// the whole run.
type Task struct {
	Name       string    `yaml:"name"`
	Env        envx.Env  `yaml:"env"`
	StopOnFail bool      `yaml:"stopOnFail"`
	Actions    []*Action `yaml:"actions"`
}

// NotFoundError reports a missing definitions directory.
type NotFoundError struct {
	Dir string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("definitions directory %s does not exist", e.Dir)
}

// ParseError reports a definition file that could not be parsed into
// the expected shape.  It is fatal; lenient parsing is never attempted.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load enumerates definition files in dir, sorted lexicographically by
// filename so the run order is deterministic, and parses each one.
func Load(dir string) ([]*Definition, error) {
	stat, err := os.Stat(dir)
	if err != nil || !stat.IsDir() {
		return nil, &NotFoundError{Dir: dir}
	}

	elts, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	names := []string{}
	for _, elt := range elts {
		if !elt.IsDir() && seq.Contains(extensions, filepath.Ext(elt.Name())) {
			names = append(names, elt.Name())
		}
	}
	sort.Strings(names)

	definitions := []*Definition{}
	for _, name := range names {
		definition, err := Parse(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, definition)
	}

	return definitions, nil
}

// Parse reads one definition file.  Unknown fields and malformed
// shapes abort with a ParseError.
func Parse(path string) (*Definition, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, errors.WithStack(err)
	}

	definition := &Definition{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	err = decoder.Decode(definition)
	if err != nil {
		return nil, &ParseError{File: path, Err: err}
	}

	definition.FileName = filepath.Base(path)
	if definition.Name == "" {
		definition.Name = strings.TrimSuffix(definition.FileName, filepath.Ext(definition.FileName))
	}

	err = definition.Validate()
	if err != nil {
		return nil, &ParseError{File: path, Err: err}
	}

	return definition, nil
}

// Validate checks the parsed shape.
func (d *Definition) Validate() error {
	if len(d.Tasks) == 0 {
		return errors.Errorf("definition %s has no tasks", d.Name)
	}

	seen := []string{}
	for _, task := range d.Tasks {
		if task.Name == "" {
			return errors.Errorf("definition %s has a task without a name", d.Name)
		}

		if seq.Contains(seen, task.Name) {
			return errors.Errorf("task %s is not unique in %s", task.Name, d.Name)
		}
		seen = append(seen, task.Name)

		if len(task.Actions) == 0 {
			return errors.Errorf("task %s has no actions", task.Name)
		}
	}

	return nil
}
