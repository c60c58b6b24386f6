// Package cli holds the plantmon command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/frieda566/plant-watering-system/internal/config"
	"github.com/frieda566/plant-watering-system/internal/logging"
)

const appName = "plantmon"

type rootOptions struct {
	version string
	cfgFile string
	verbose bool
}

// load reads configuration and installs the process logger.
func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	var cfg config.Config
	var err error
	if o.cfgFile == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(o.cfgFile)
	}
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	logger := logging.New(cfg, o.version, appName)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	root := &cobra.Command{
		Use:   appName,
		Short: "Plant soil-moisture monitor",
		Long: `plantmon reads moisture, temperature, humidity and tank telegrams from an
Arduino over USB serial, stores every complete reading in a local SQLite file
and serves the latest value and the history over HTTP.

Without a subcommand it behaves like "plantmon run".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (TOML or YAML); environment variables override it")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	run := newRunCommand(opts)
	root.RunE = run.RunE
	root.AddCommand(
		run,
		newReadingsCommand(opts),
		newPortsCommand(),
		newInitDBCommand(opts),
	)
	return root
}
