package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"duck-olap/internal/pipeline"
)

func newSchemaCmd(g *globals) *cobra.Command {
	var t target

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the cube schema synthesized for a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := t.request(cmd, g)
			if err != nil {
				return err
			}
			res, err := pipeline.New(pipeline.WithLogger(g.logger)).Synthesize(cmd.Context(), req)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"run_id":          res.RunID,
					"columns":         res.Columns,
					"schema_document": res.SchemaDocument,
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.SchemaDocument)
			return nil
		},
	}

	t.register(cmd)

	return cmd
}
