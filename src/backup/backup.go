// Package backup sequences one backup run: definition loading, secret
// resolution, per-task action pipelines, lifecycle hooks, manifest
// construction and atomic publication behind the current symlink.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illikainen/snapback/src/actions"
	"github.com/illikainen/snapback/src/defs"
	"github.com/illikainen/snapback/src/envx"
	"github.com/illikainen/snapback/src/hooks"
	"github.com/illikainen/snapback/src/secrets"
	"github.com/illikainen/snapback/src/utils"

	"github.com/illikainen/go-utils/src/iofs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const partialName = ".partial"
const currentName = "current"

// Sealed backup directories are named by UTC timestamp with minute
// precision.
const stampLayout = "2006-01-02T15:04"

// ReservedBackupPath and ReservedPrevBackupPath are injected into the
// task environment after secret resolution.  They are never treated as
// secret-resolvable strings.
const ReservedBackupPath = "_backup_path"
const ReservedPrevBackupPath = "_prev_backup_path"

// ConfigurationError is a fatal pre-execution error, e.g. an inside
// folder that escapes the backup root.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// Options configures one backup run.
type Options struct {
	// BackupsDir is the backups root, holding .partial during a run,
	// the sealed timestamped directories and the current symlink.
	BackupsDir string

	// Definitions is the directory with task-definition files.
	Definitions string

	// Env is the global environment.
	Env envx.Env

	// Secrets are the secret backends, in declaration order.
	Secrets []*secrets.Ref

	// Hooks receives the lifecycle events of the run.
	Hooks hooks.Dispatcher

	// Runner executes the action pipeline of each task.
	Runner actions.Runner

	// Log receives the run's log output.  Defaults to the process
	// logger.
	Log log.FieldLogger
}

type state int

const (
	stateInit state = iota
	statePreparing
	stateRunning
	stateSealing
	stateDone
	stateFailed
)

// run is the state of one backup run.  Runs are strictly sequential;
// the orchestrator is the only writer under the backups root while it
// is active.
type run struct {
	opts    *Options
	state   state
	partial string
	prev    string
	env     envx.Env
	results []*DefinitionResult
	sealed  string
}

// outcome is the explicit per-task result.  err is a pipeline failure
// subject to the task's stopOnFail policy; infrastructure failures
// (hooks, filesystem) are returned separately and always abort.
type outcome struct {
	path string
	err  error
}

// Run performs one backup run and returns the sealed backup path.  On
// failure the partial working directory is removed and the current
// symlink is left untouched.
func Run(opts *Options) (string, error) {
	r := &run{opts: opts, state: stateInit}
	if r.opts.Log == nil {
		r.opts.Log = log.StandardLogger()
	}

	sealed, err := r.execute()
	if err != nil {
		return "", r.fail(err)
	}

	return sealed, nil
}

func (r *run) execute() (string, error) {
	err := r.prepare()
	if err != nil {
		return "", err
	}

	err = r.runDefinitions()
	if err != nil {
		return "", err
	}

	err = r.seal()
	if err != nil {
		return "", err
	}

	r.state = stateDone
	return r.sealed, nil
}

func (r *run) prepare() error {
	r.state = statePreparing
	r.partial = filepath.Join(r.opts.BackupsDir, partialName)

	current := filepath.Join(r.opts.BackupsDir, currentName)
	exists, err := iofs.Exists(current)
	if err != nil {
		return err
	}
	if exists {
		prev, err := filepath.EvalSymlinks(current)
		if err != nil {
			return errors.WithStack(err)
		}
		r.prev = prev
	}

	env, err := secrets.Resolve(r.opts.Env, r.opts.Secrets)
	if err != nil {
		return err
	}
	r.env = env

	err = r.opts.Hooks.Fire("backup:before", r.partial)
	if err != nil {
		return err
	}

	r.opts.Log.Infof("temporary backup folder is %s", r.partial)
	err = os.MkdirAll(r.partial, 0o755)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(os.Chmod(r.partial, 0o755))
}

func (r *run) runDefinitions() error {
	r.state = stateRunning

	definitions, err := defs.Load(r.opts.Definitions)
	if err != nil {
		return err
	}

	for _, definition := range definitions {
		r.opts.Log.Infof("preparing to run tasks of %s", definition.Name)

		err := r.opts.Hooks.Fire(fmt.Sprintf("backup:tasks:%s:before", definition.Name),
			r.partial, definition.Name)
		if err != nil {
			return err
		}

		results, err := r.runDefinition(definition)
		if err != nil {
			r.opts.Log.Errorf("one of the tasks of %s failed", definition.Name)

			e := r.opts.Hooks.Fire(fmt.Sprintf("backup:tasks:%s:error", definition.Name),
				r.partial, err.Error(), definition.Name)
			if e != nil {
				return e
			}

			return errors.Wrapf(err, "one of the tasks of %s failed, backup will stop",
				definition.Name)
		}

		r.results = append(r.results, &DefinitionResult{
			Definition: definition,
			Results:    results,
		})

		err = r.opts.Hooks.Fire(fmt.Sprintf("backup:tasks:%s:after", definition.Name),
			r.partial, definition.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *run) runDefinition(definition *defs.Definition) (map[string]string, error) {
	env, err := secrets.Resolve(r.env.Merge(definition.Env), r.opts.Secrets)
	if err != nil {
		return nil, err
	}

	final := r.partial
	prev := r.prev
	if definition.Inside != "" {
		r.opts.Log.Infof("tasks %s will store files in %s", definition.Name, definition.Inside)

		// Containment is checked before any directory is created.
		final, err = utils.Subpath(r.partial, definition.Inside)
		if err != nil {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("inside is not valid for %s: %s", definition.Name, err),
			}
		}

		err = os.MkdirAll(final, 0o755)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		err = os.Chmod(final, 0o755)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		if prev != "" {
			prev = filepath.Join(prev, definition.Inside)
		}
	}

	results := map[string]string{}
	for _, task := range definition.Tasks {
		out, err := r.runTask(definition, task, env, final, prev)
		if err != nil {
			return nil, err
		}

		if out.err != nil {
			if task.StopOnFail {
				return nil, errors.Wrapf(out.err, "task %s failed", task.Name)
			}

			r.opts.Log.Warnf("task %s failed, continuing without a result", task.Name)
			continue
		}

		rel, err := filepath.Rel(r.partial, out.path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		results[task.Name] = rel
	}

	return results, nil
}

func (r *run) runTask(definition *defs.Definition, task *defs.Task, env envx.Env,
	final string, prev string) (*outcome, error) {
	prefix := fmt.Sprintf("backup:tasks:%s:task:%s", definition.Name, task.Name)

	err := r.opts.Hooks.Fire(prefix+":before", final, definition.Name, task.Name)
	if err != nil {
		return nil, err
	}

	out := &outcome{}
	resolved, err := r.resolveActions(task, env, final, prev)
	if err != nil {
		out.err = err
	} else {
		path, err := r.opts.Runner.Run(task.Name, resolved)
		if err != nil {
			out.err = err
		} else {
			out.path = path
		}
	}

	if out.err != nil {
		r.opts.Log.Errorf("task %s failed: %s", task.Name, out.err)

		err := r.opts.Hooks.Fire(prefix+":error",
			out.err.Error(), r.partial, definition.Name, task.Name)
		if err != nil {
			return nil, err
		}
	}

	err = r.opts.Hooks.Fire(prefix+":after", r.partial, definition.Name, task.Name)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// resolveActions merges the task environment on top of the definition
// scope, resolves secrets and injects the resolved mapping into every
// mapping-shaped action parameter.  The merged mapping is resolved a
// second time because action parameters may carry aliases of their
// own.
func (r *run) resolveActions(task *defs.Task, env envx.Env, final string,
	prev string) ([]*defs.Action, error) {
	merged, err := secrets.Resolve(env.Merge(task.Env), r.opts.Secrets)
	if err != nil {
		return nil, err
	}

	merged[ReservedBackupPath] = envx.String(final)
	merged[ReservedPrevBackupPath] = envx.String(prev)

	resolved := []*defs.Action{}
	for _, action := range task.Actions {
		params, ok := action.Params.(envx.Env)
		if !ok {
			resolved = append(resolved, action)
			continue
		}

		resolvedParams, err := secrets.Resolve(params, r.opts.Secrets)
		if err != nil {
			return nil, err
		}

		injected, err := secrets.Resolve(merged.Merge(resolvedParams), r.opts.Secrets)
		if err != nil {
			return nil, err
		}

		resolved = append(resolved, &defs.Action{
			Kind:   action.Kind,
			Params: injected,
		})
	}

	return resolved, nil
}

func (r *run) seal() error {
	r.state = stateSealing

	r.sealed = filepath.Join(r.opts.BackupsDir, time.Now().UTC().Format(stampLayout))
	r.opts.Log.Infof("moving %s to %s", r.partial, r.sealed)

	err := os.Rename(r.partial, r.sealed)
	if err != nil {
		return errors.WithStack(err)
	}

	r.opts.Log.Infof("creating manifest of backup %s", r.sealed)
	err = NewManifest(r.results).Write(r.sealed)
	if err != nil {
		return err
	}

	// The sealed directory exists on disk before the alias is
	// retargeted, so current never points at a partial backup.
	current := filepath.Join(r.opts.BackupsDir, currentName)
	info, err := os.Lstat(current)
	if err == nil && info.Mode()&os.ModeSymlink != 0 {
		err := os.Remove(current)
		if err != nil {
			return errors.Wrap(err, "update current alias")
		}
	}

	err = os.Symlink(r.sealed, current)
	if err != nil {
		return errors.Wrap(err, "update current alias")
	}

	return r.opts.Hooks.Fire("backup:after", r.sealed)
}

// fail removes the partial working directory and reports the failure.
// The current symlink is only ever updated as the last step of a fully
// successful run, so it is left as it was.
func (r *run) fail(cause error) error {
	r.state = stateFailed

	err := r.opts.Hooks.Fire("backup:error", r.partial, cause.Error())
	if err != nil {
		r.opts.Log.Errorf("backup:error hook failed: %s", err)
	}

	err = os.RemoveAll(r.partial)
	if err != nil {
		r.opts.Log.Errorf("could not remove %s: %s", r.partial, err)
	}

	return cause
}
