package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frieda566/plant-watering-system/internal/db"
)

func newInitDBCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the store file and its tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			conn, err := db.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if err := db.Close(conn); err != nil {
				return err
			}
			where := cfg.SQLitePath
			if cfg.SQLiteDSN != "" {
				where = cfg.SQLiteDSN
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store ready: %s\n", where)
			return nil
		},
	}
}
