package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"duck-olap/internal/domain"
	"duck-olap/internal/layout"
	"duck-olap/internal/pipeline"
)

type runOutput struct {
	RunID          string                   `json:"run_id"`
	Columns        domain.ClassifiedColumns `json:"columns"`
	Cubes          []string                 `json:"cubes"`
	Query          string                   `json:"query"`
	SchemaDocument string                   `json:"schema_document,omitempty"`
	Result         layout.Document          `json:"result"`
}

func newRunCmd(g *globals) *cobra.Command {
	var (
		t          target
		query      string
		queryFile  string
		showSchema bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an MDX query against a table's synthesized cube",
		Long: `Discovers the columns of a table, synthesizes a single-cube schema from
them (integer columns become summed measures, everything else a dimension),
opens an MDX connection over it and prints the resulting cell set.

Without --query the default query lists every measure on columns and the
members of the first dimension, ordered by the first measure, on rows.`,
		Example: `  duckolap run --source duckdb:wiki.duckdb -t wikiticker
  duckolap run --source sqlite:wiki.sqlite -t wikiticker \
    -q 'SELECT [Measures].[added] ON COLUMNS, TopCount([countryName].Members, 3, [Measures].[added]) ON ROWS FROM [wikiticker]'
  echo 'SELECT [Measures].Members ON COLUMNS FROM [wikiticker]' | duckolap run -t wikiticker --query-file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := t.request(cmd, g)
			if err != nil {
				return err
			}
			if req.Query, err = readQuery(cmd, query, queryFile); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			asJSON := getOutputFormat(cmd) == "json"

			opts := []pipeline.Option{pipeline.WithLogger(g.logger)}
			if showSchema && !asJSON {
				opts = append(opts, pipeline.WithSchemaObserver(func(doc string) {
					_, _ = fmt.Fprintf(out, "Generated schema:\n%s\n\n", doc)
				}))
			}

			res, err := pipeline.New(opts...).Run(cmd.Context(), req)
			if err != nil {
				if showSchema && asJSON && res != nil {
					return &schemaError{err: err, document: res.SchemaDocument}
				}
				return err
			}

			if asJSON {
				o := runOutput{
					RunID:   res.RunID,
					Columns: res.Columns,
					Cubes:   res.Cubes,
					Query:   res.Query,
					Result:  layout.NewDocument(res.CellSet),
				}
				if showSchema {
					o.SchemaDocument = res.SchemaDocument
				}
				return printJSON(out, o)
			}

			if verbose {
				_, _ = fmt.Fprintf(out, "Discovering columns:\ndimensions=%s\nmeasures=%s\n\n",
					formatList(res.Columns.Dimensions), formatList(res.Columns.Measures))
				_, _ = fmt.Fprintf(out, "Discovering cubes:\n%s\n\n", strings.Join(res.Cubes, "\n"))
				_, _ = fmt.Fprintf(out, "Query:\n%s\n\n", res.Query)
			}
			return pipeline.Format(res, layout.RectangularFormatter{Compact: true}, out)
		},
	}

	t.register(cmd)
	cmd.Flags().StringVarP(&query, "query", "q", "", "MDX query to run")
	cmd.Flags().StringVar(&queryFile, "query-file", "", "Read the MDX query from a file (- for stdin)")
	cmd.Flags().BoolVar(&showSchema, "show-schema", false, "Print the synthesized schema document")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print discovered columns, cubes and the query before the result")
	cmd.MarkFlagsMutuallyExclusive("query", "query-file")

	return cmd
}

// schemaError carries the synthesized schema document of a run that failed
// after synthesis, so the JSON error output can include it.
type schemaError struct {
	err      error
	document string
}

func (e *schemaError) Error() string { return e.err.Error() }
func (e *schemaError) Unwrap() error { return e.err }

// readQuery returns the inline query or the contents of the query file.
func readQuery(cmd *cobra.Command, query, file string) (string, error) {
	if file == "" {
		return query, nil
	}
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read query file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
