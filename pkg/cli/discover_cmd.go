package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"duck-olap/internal/classify"
	"duck-olap/internal/source"
)

type discoveredColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Role string `json:"role"`
}

type discoverOutput struct {
	Schema     string             `json:"schema"`
	Table      string             `json:"table"`
	Columns    []discoveredColumn `json:"columns"`
	Dimensions []string           `json:"dimensions"`
	Measures   []string           `json:"measures"`
}

func newDiscoverCmd(g *globals) *cobra.Command {
	var t target

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List a table's columns and the cube role each one gets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := t.request(cmd, g)
			if err != nil {
				return err
			}
			cols, err := source.NewDiscoverer(nil, g.logger).Describe(cmd.Context(), req.Source, req.SchemaName, req.TableName)
			if err != nil {
				return err
			}
			split := classify.Split(cols)

			o := discoverOutput{
				Schema:     req.Source.Schema(req.SchemaName),
				Table:      req.TableName,
				Columns:    make([]discoveredColumn, 0, len(cols)),
				Dimensions: split.Dimensions,
				Measures:   split.Measures,
			}
			for _, c := range cols {
				o.Columns = append(o.Columns, discoveredColumn{
					Name: c.Name,
					Type: c.TypeName,
					Role: classify.Classify(c.Type).String(),
				})
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), o)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "COLUMN\tTYPE\tROLE")
			for _, c := range o.Columns {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Type, c.Role)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\ndimensions=%s\nmeasures=%s\n",
				formatList(o.Dimensions), formatList(o.Measures))
			return nil
		},
	}

	cmd.Flags().StringVarP(&t.table, "table", "t", "", "Table to inspect")
	cmd.Flags().StringVar(&t.schema, "schema", "", "Schema holding the table (default: the source's default schema)")

	return cmd
}
