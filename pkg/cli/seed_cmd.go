package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"duck-olap/internal/db"
	"duck-olap/internal/domain"
	"duck-olap/internal/source"
)

func newSeedCmd(g *globals) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "seed [source]",
		Short: "Create a sample wikiticker fact table in a DuckDB or SQLite file",
		Example: `  duckolap seed duckdb:wiki.duckdb
  duckolap seed wiki.sqlite --table edits`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				params source.ConnectionParams
				err    error
			)
			if len(args) == 1 {
				params, err = source.ParseConnectionString(args[0])
			} else {
				params, err = g.params()
			}
			if err != nil {
				return err
			}
			if params.DSN == "" {
				return domain.ErrValidation("seed needs a file, not an in-memory database")
			}
			if table == "" {
				table = db.DemoTable
			}
			g.logger.Info("seeding", "source", params.String(), "table", table)
			if err := db.Seed(cmd.Context(), params.Driver, params.DSN, table); err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status": "ok",
					"source": params.String(),
					"table":  table,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s into %s\n", table, params.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "Name of the seeded table (default: wikiticker)")

	return cmd
}
