package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/frieda566/plant-watering-system/internal/db"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/repository"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

func newReadingsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "readings",
		Aliases: []string{"r"},
		Short:   "Inspect stored readings",
	}
	cmd.AddCommand(newReadingsRecentCommand(opts))
	return cmd
}

func newReadingsRecentCommand(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		oldest bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recent readings",
		Long: `Print the most recent readings from the store.

Examples:
  plantmon readings recent
  plantmon readings recent -n 20 --oldest
  plantmon readings recent --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("-n must be > 0, got %d", limit)
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			conn, err := db.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(conn) }()

			order := types.NewestFirst
			if oldest {
				order = types.OldestFirst
			}
			rows, err := repository.NewRepository(conn).QueryRecent(cmd.Context(), limit, order)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return writeTable(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "number of readings")
	cmd.Flags().BoolVar(&oldest, "oldest", false, "print oldest first (the last n readings in ascending order)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, rows []types.Reading) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "ID\tTIMESTAMP")
	for _, f := range types.Fields {
		fmt.Fprintf(tw, "\t%s", f)
	}
	fmt.Fprintln(tw)

	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s", r.ID, r.Timestamp.Local().Format(time.DateTime))
		for _, f := range types.Fields {
			cell := "-"
			if v, ok := r.Get(f); ok {
				cell = strconv.Itoa(v)
			}
			fmt.Fprintf(tw, "\t%s", cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
