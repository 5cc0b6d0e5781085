package cmd

import (
	backupcmd "github.com/illikainen/snapback/src/cmd/backup"
	definitionscmd "github.com/illikainen/snapback/src/cmd/definitions"
	manifestcmd "github.com/illikainen/snapback/src/cmd/manifest"
	rootcmd "github.com/illikainen/snapback/src/cmd/root"

	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	c, opts := rootcmd.Command()
	c.AddCommand(backupcmd.Command(opts))
	c.AddCommand(definitionscmd.Command(opts))
	c.AddCommand(manifestcmd.Command(opts))
	return c
}
