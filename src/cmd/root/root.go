package rootcmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/illikainen/snapback/src/configs"
	"github.com/illikainen/snapback/src/metadata"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type Options struct {
	Config    *configs.Config
	config    string
	Verbosity string
}

var options = Options{}

var command = &cobra.Command{
	Use:               metadata.Name(),
	Version:           fmt.Sprintf("%s (%s)", metadata.Version(), metadata.Revision()),
	PersistentPreRunE: preRun,
}

func Command() (*cobra.Command, *Options) {
	return command, &options
}

func init() {
	flags := command.PersistentFlags()
	flags.SortFlags = false

	flags.StringVarP(&options.config, "config", "",
		filepath.Join(lo.Must1(os.UserConfigDir()), metadata.Name(), "config.yaml"),
		"Configuration file")

	levels := []string{}
	for _, level := range log.AllLevels {
		levels = append(levels, level.String())
	}
	flags.StringVarP(&options.Verbosity, "verbosity", "V", "info",
		fmt.Sprintf("Verbosity (%s)", strings.Join(levels, ", ")))

	flags.Bool("help", false, "Help for this command")
}

func preRun(_ *cobra.Command, _ []string) error {
	level, err := log.ParseLevel(options.Verbosity)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	config, err := configs.Load(&configs.Options{
		Path:         options.config,
		AllowMissing: true,
	})
	if err != nil {
		return err
	}

	options.Config = config
	return nil
}
