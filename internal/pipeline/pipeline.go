// Package pipeline federates a relational table into an MDX cube: it
// discovers the table's columns, synthesizes a schema document, opens an
// MDX connection over that document and the relational source, and runs a
// query against it.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"duck-olap/internal/domain"
	"duck-olap/internal/layout"
	"duck-olap/internal/olap"
	"duck-olap/internal/schemagen"
	"duck-olap/internal/source"
)

// Discoverer lists and classifies the columns of a relational table.
type Discoverer interface {
	Discover(ctx context.Context, params source.ConnectionParams, schema, table string) (*domain.ClassifiedColumns, error)
}

// Session is an open MDX connection.
type Session interface {
	Cubes() []string
	Execute(ctx context.Context, mdx string) (*domain.CellSet, error)
	Close() error
}

// Connector opens MDX sessions.
type Connector interface {
	Connect(ctx context.Context, cfg olap.Config) (Session, error)
}

// olapConnector opens sessions with olap.Open.
type olapConnector struct {
	opts []olap.Option
}

func (c olapConnector) Connect(ctx context.Context, cfg olap.Config) (Session, error) {
	conn, err := olap.Open(ctx, cfg, c.opts...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Request names the table to federate and the query to run. An empty
// CubeName defaults to the table name and an empty Query to DefaultQuery.
type Request struct {
	Source     source.ConnectionParams `json:"source"`
	SchemaName string                  `json:"schema,omitempty"`
	TableName  string                  `json:"table"`
	CubeName   string                  `json:"cube,omitempty"`
	Query      string                  `json:"query,omitempty"`
}

// Result carries every intermediate product of a run.
type Result struct {
	RunID          string                   `json:"run_id"`
	Columns        domain.ClassifiedColumns `json:"columns"`
	SchemaDocument string                   `json:"schema_document"`
	Cubes          []string                 `json:"cubes,omitempty"`
	Query          string                   `json:"query,omitempty"`
	CellSet        *domain.CellSet          `json:"cellset,omitempty"`
}

// Pipeline runs the discover, synthesize, connect and execute steps. Each
// step is attempted once and the steps run strictly in order. A Pipeline
// holds no per-run state and may be shared.
type Pipeline struct {
	discoverer Discoverer
	connector  Connector
	observer   func(doc string)
	opener     source.Opener
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDiscoverer replaces the column discoverer.
func WithDiscoverer(d Discoverer) Option {
	return func(p *Pipeline) { p.discoverer = d }
}

// WithConnector replaces the MDX connector.
func WithConnector(c Connector) Option {
	return func(p *Pipeline) { p.connector = c }
}

// WithSchemaObserver registers fn to receive the synthesized schema
// document. It is called once per run, before the MDX connection is
// opened, so the document is reported even when later steps fail.
func WithSchemaObserver(fn func(doc string)) Option {
	return func(p *Pipeline) { p.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithOpener makes the default discoverer and connector open relational
// connections through o.
func WithOpener(o source.Opener) Option {
	return func(p *Pipeline) { p.opener = o }
}

// New creates a Pipeline backed by real sources unless overridden.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.discoverer == nil {
		p.discoverer = source.NewDiscoverer(p.opener, p.logger)
	}
	if p.connector == nil {
		c := olapConnector{opts: []olap.Option{olap.WithLogger(p.logger)}}
		if p.opener != nil {
			c.opts = append(c.opts, olap.WithOpener(p.opener))
		}
		p.connector = c
	}
	return p
}

// Synthesize runs the discover and synthesize steps only.
func (p *Pipeline) Synthesize(ctx context.Context, req Request) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	if err := p.synthesize(ctx, req, res, p.logger.With("run_id", res.RunID)); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) synthesize(ctx context.Context, req Request, res *Result, logger *slog.Logger) error {
	logger.Info("discovering columns", "source", req.Source.String(), "schema", req.SchemaName, "table", req.TableName)
	cols, err := p.discoverer.Discover(ctx, req.Source, req.SchemaName, req.TableName)
	if err != nil {
		logger.Error("discovery failed", "error", err)
		return err
	}
	res.Columns = *cols

	doc, err := schemagen.FromColumns(cubeName(req), req.TableName, res.Columns).Marshal()
	if err != nil {
		return fmt.Errorf("synthesize schema: %w", err)
	}
	res.SchemaDocument = doc
	logger.Debug("synthesized schema", "cube", cubeName(req),
		"dimensions", res.Columns.Dimensions, "measures", res.Columns.Measures, "document", doc)

	if p.observer != nil {
		p.observer(doc)
	}
	return nil
}

// Run performs discover, synthesize, connect and execute. Any failure
// aborts the run: discovery failures are *domain.DiscoveryError and no
// connection is attempted after them, connect failures are
// *domain.ConnectionError and execution failures *domain.ExecutionError.
//
// Once synthesis has succeeded the Result is returned even on failure, so
// callers can still report its Columns and SchemaDocument.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", res.RunID)

	if err := p.synthesize(ctx, req, res, logger); err != nil {
		return nil, err
	}

	params := req.Source
	params.DefaultSchema = params.Schema(req.SchemaName)
	logger.Info("connecting", "cube", cubeName(req))
	sess, err := p.connector.Connect(ctx, olap.Config{Source: params, CatalogContent: res.SchemaDocument})
	if err != nil {
		logger.Error("connect failed", "error", err)
		return res, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("close mdx connection", "error", cerr)
		}
	}()

	res.Cubes = sess.Cubes()
	logger.Debug("discovered cubes", "cubes", res.Cubes)

	res.Query = req.Query
	if strings.TrimSpace(res.Query) == "" {
		res.Query = DefaultQuery(cubeName(req), res.Columns)
	}
	logger.Info("executing", "query", res.Query)
	cs, err := sess.Execute(ctx, res.Query)
	if err != nil {
		logger.Error("execute failed", "error", err)
		return res, err
	}
	res.CellSet = cs
	logger.Info("run complete", "rows", cs.RowCount(), "columns", len(cs.Columns.Positions))
	return res, nil
}

// Format renders the cell set of a completed run.
func Format(res *Result, f layout.Formatter, w io.Writer) error {
	if res == nil || res.CellSet == nil {
		return domain.ErrValidation("result has no cell set")
	}
	if err := f.Format(res.CellSet, w); err != nil {
		return fmt.Errorf("format cell set: %w", err)
	}
	return nil
}

// RunAndFormat runs req and renders its cell set to w.
func (p *Pipeline) RunAndFormat(ctx context.Context, req Request, f layout.Formatter, w io.Writer) (*Result, error) {
	res, err := p.Run(ctx, req)
	if err != nil {
		return res, err
	}
	return res, Format(res, f, w)
}

// DefaultQuery returns the query run when none is given: all measures on
// columns and the members of the first dimension, ordered by the first
// measure descending, on rows.
func DefaultQuery(cube string, cols domain.ClassifiedColumns) string {
	var b strings.Builder
	if len(cols.Measures) > 0 {
		b.WriteString("SELECT [Measures].Members ON COLUMNS")
		if len(cols.Dimensions) > 0 {
			fmt.Fprintf(&b, ", Order(%s.Members, [Measures].%s, DESC) ON ROWS",
				bracket(cols.Dimensions[0]), bracket(cols.Measures[0]))
		}
	} else if len(cols.Dimensions) > 0 {
		fmt.Fprintf(&b, "SELECT %s.Members ON COLUMNS", bracket(cols.Dimensions[0]))
	} else {
		b.WriteString("SELECT {} ON COLUMNS")
	}
	b.WriteString(" FROM ")
	b.WriteString(bracket(cube))
	return b.String()
}

func cubeName(req Request) string {
	if req.CubeName != "" {
		return req.CubeName
	}
	return req.TableName
}

func bracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
