package manifestcmd

import (
	"os"
	"path/filepath"

	"github.com/illikainen/snapback/src/backup"
	rootcmd "github.com/illikainen/snapback/src/cmd/root"

	"github.com/illikainen/go-utils/src/errorx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var command = &cobra.Command{
	Use:   "manifest",
	Short: "Show the manifest of a sealed backup",
	RunE:  run,
}

var options struct {
	*rootcmd.Options
	backup string
}

func Command(opts *rootcmd.Options) *cobra.Command {
	options.Options = opts
	return command
}

func init() {
	flags := command.Flags()
	flags.SortFlags = false

	flags.StringVarP(&options.backup, "backup", "b", "current",
		"Backup directory name under the backups root")
}

func run(cmd *cobra.Command, _ []string) (err error) {
	cmd.SilenceUsage = true

	err = options.Config.Validate()
	if err != nil {
		return err
	}

	manifest, err := backup.ReadManifest(filepath.Join(options.Config.BackupsPath, options.backup))
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(os.Stdout)
	defer errorx.Defer(encoder.Close, &err)

	return encoder.Encode(manifest)
}
