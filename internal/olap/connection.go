// Package olap is a small MDX engine over a single relational source.
//
// A Connection is configured by the relational connection parameters and an
// inline catalog (the schema document). Queries are parsed into an AST,
// their axes are evaluated into tuples of members, and every cell is
// computed by grouped SUM queries pushed down to the relational source.
package olap

import (
	"context"
	"log/slog"
	"strings"

	"duck-olap/internal/domain"
	"duck-olap/internal/schemagen"
	"duck-olap/internal/source"
)

// Config describes an MDX connection. The catalog is carried as a typed
// field; it is never spliced into a connection string.
type Config struct {
	Source         source.ConnectionParams `json:"source"`
	CatalogContent string                  `json:"catalog_content"`
}

// Connection executes MDX against the cubes of one catalog. It is safe for
// concurrent use.
type Connection struct {
	schema   *schemagen.Schema
	conn     source.Conn
	dbSchema string // relational schema holding the fact tables
	logger   *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	opener source.Opener
	logger *slog.Logger
}

// WithOpener substitutes the relational connection opener.
func WithOpener(o source.Opener) Option {
	return func(opts *options) { opts.opener = o }
}

// WithLogger sets the logger used for query tracing.
func WithLogger(l *slog.Logger) Option {
	return func(opts *options) { opts.logger = l }
}

// Open parses and validates the catalog and opens the inner relational
// connection. Every failure is returned as a *domain.ConnectionError.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Connection, error) {
	o := options{opener: source.DefaultOpener, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(cfg.CatalogContent) == "" {
		return nil, &domain.ConnectionError{Cause: domain.ErrValidation("catalog content is required")}
	}
	schema, err := schemagen.Parse(cfg.CatalogContent)
	if err != nil {
		return nil, &domain.ConnectionError{Cause: err}
	}
	if err := schema.Validate(); err != nil {
		return nil, &domain.ConnectionError{Cause: err}
	}

	conn, err := o.opener.Open(ctx, cfg.Source)
	if err != nil {
		return nil, &domain.ConnectionError{Cause: err}
	}

	o.logger.Debug("mdx connection open", "source", cfg.Source.String(), "cubes", schema.CubeNames())
	return &Connection{
		schema:   schema,
		conn:     conn,
		dbSchema: cfg.Source.DefaultSchema,
		logger:   o.logger,
	}, nil
}

// Cubes returns the cube names of the catalog in document order.
func (c *Connection) Cubes() []string {
	return c.schema.CubeNames()
}

// Schema returns the parsed catalog.
func (c *Connection) Schema() *schemagen.Schema {
	return c.schema
}

// Execute runs an MDX query. Every failure is returned as a
// *domain.ExecutionError carrying the query text.
func (c *Connection) Execute(ctx context.Context, mdx string) (*domain.CellSet, error) {
	q, err := Parse(mdx)
	if err != nil {
		return nil, &domain.ExecutionError{Query: mdx, Cause: err}
	}

	cube, ok := c.schema.Cube(q.Cube)
	if !ok {
		return nil, domain.ErrExecution(mdx, "cube %q not found", q.Cube)
	}

	ev := newEvaluator(c.conn, cube, c.dbSchema, c.logger)
	cs, err := ev.run(ctx, q)
	if err != nil {
		return nil, &domain.ExecutionError{Query: mdx, Cause: err}
	}
	return cs, nil
}

// Close releases the inner relational connection.
func (c *Connection) Close() error {
	return c.conn.Close()
}
