package cli

import (
	"github.com/spf13/cobra"

	"github.com/frieda566/plant-watering-system/internal/app"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Ingest serial telegrams and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			logger.Info("starting", "version", opts.version, "env", cfg.AppEnv, "log_level", cfg.LogLevel.String())
			return app.Run(cmd.Context(), cfg, logger)
		},
	}
}
