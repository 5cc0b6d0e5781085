package definitionscmd

import (
	"fmt"

	rootcmd "github.com/illikainen/snapback/src/cmd/root"
	"github.com/illikainen/snapback/src/defs"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var command = &cobra.Command{
	Use:   "definitions",
	Short: "List and validate task definitions",
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

	definitions, err := defs.Load(options.Config.DefinitionsPath)
	if err != nil {
		return err
	}

	for _, definition := range definitions {
		fmt.Printf("%s (%s)\n", definition.Name, definition.FileName)
		for _, task := range definition.Tasks {
			fmt.Printf("  %s: %d action(s)%s\n", task.Name, len(task.Actions),
				lo.Ternary(task.StopOnFail, ", stops the run on failure", ""))
		}
	}

	return nil
}
