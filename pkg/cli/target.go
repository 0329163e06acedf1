package cli

import (
	"github.com/spf13/cobra"

	"duck-olap/internal/domain"
	"duck-olap/internal/pipeline"
)

// target holds the --schema, --table and --cube flags shared by the
// commands that work on a fact table.
type target struct {
	schema string
	table  string
	cube   string
}

func (t *target) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.table, "table", "t", "", "Fact table to federate")
	cmd.Flags().StringVar(&t.schema, "schema", "", "Schema holding the table (default: the source's default schema)")
	cmd.Flags().StringVar(&t.cube, "cube", "", "Cube name (default: the table name)")
}

// request resolves the target against the environment and the active
// profile and returns a pipeline request without a query.
func (t *target) request(cmd *cobra.Command, g *globals) (pipeline.Request, error) {
	params, err := g.params()
	if err != nil {
		return pipeline.Request{}, err
	}
	req := pipeline.Request{
		Source:     params,
		SchemaName: pick(cmd, "schema", t.schema, g.env.SourceSchema, g.active.Schema),
		TableName:  pick(cmd, "table", t.table, g.env.SourceTable, g.active.Table),
	}
	if req.TableName == "" {
		return pipeline.Request{}, domain.ErrValidation("no table: pass --table, set SOURCE_TABLE or add one to a profile")
	}
	if cmd.Flags().Lookup("cube") != nil {
		req.CubeName = pick(cmd, "cube", t.cube, g.env.CubeName, g.active.Cube)
	}
	return req, nil
}
