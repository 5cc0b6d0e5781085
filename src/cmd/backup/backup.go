package backupcmd

import (
	"github.com/illikainen/snapback/src/actions"
	_ "github.com/illikainen/snapback/src/actions/exec"      // executor
	_ "github.com/illikainen/snapback/src/actions/from_file" // executor
	_ "github.com/illikainen/snapback/src/actions/to_file"   // executor
	"github.com/illikainen/snapback/src/backup"
	rootcmd "github.com/illikainen/snapback/src/cmd/root"
	"github.com/illikainen/snapback/src/hooks"
	_ "github.com/illikainen/snapback/src/secrets/file" // backend

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var command = &cobra.Command{
	Use:   "backup",
	Short: "Run a backup",
	RunE:  run,
}

var options struct {
	*rootcmd.Options
}

func Command(opts *rootcmd.Options) *cobra.Command {
	options.Options = opts
	return command
}

func init() {
	flags := command.Flags()
	flags.SortFlags = false
}

func run(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	config := options.Config
	err := config.Validate()
	if err != nil {
		return err
	}

	backends, err := config.Backends()
	if err != nil {
		return err
	}

	sealed, err := backup.Run(&backup.Options{
		BackupsDir:  config.BackupsPath,
		Definitions: config.DefinitionsPath,
		Env:         config.Env,
		Secrets:     backends,
		Hooks:       &hooks.ExecDispatcher{Dir: config.HooksPath},
		Runner:      actions.NewPipeline(),
	})
	if err != nil {
		return err
	}

	log.Infof("backup sealed at %s", sealed)
	return nil
}
