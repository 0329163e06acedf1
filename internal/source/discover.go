package source

import (
	"context"
	"log/slog"

	"duck-olap/internal/classify"
	"duck-olap/internal/domain"
)

// Discoverer reads a table's column metadata and classifies it.
type Discoverer struct {
	opener Opener
	logger *slog.Logger
}

// NewDiscoverer creates a Discoverer. A nil opener uses DefaultOpener and a
// nil logger discards output.
func NewDiscoverer(opener Opener, logger *slog.Logger) *Discoverer {
	if opener == nil {
		opener = DefaultOpener
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Discoverer{opener: opener, logger: logger}
}

// Discover opens a connection for the duration of the call, lists the
// columns of schema.table in catalog order and splits them into dimensions
// and measures. Every failure is returned as a *domain.DiscoveryError and no
// partial lists are returned.
func (d *Discoverer) Discover(ctx context.Context, params ConnectionParams, schema, table string) (*domain.ClassifiedColumns, error) {
	cols, err := d.Describe(ctx, params, schema, table)
	if err != nil {
		return nil, err
	}

	out := classify.Split(cols)
	for _, c := range cols {
		d.logger.Debug("classified column", "column", c.Name, "type", c.TypeName, "role", classify.Classify(c.Type))
	}
	d.logger.Info("discovered table", "table", table,
		"dimensions", len(out.Dimensions), "measures", len(out.Measures))
	return &out, nil
}

// Describe returns the raw column metadata of schema.table with the same
// error semantics as Discover.
func (d *Discoverer) Describe(ctx context.Context, params ConnectionParams, schema, table string) ([]domain.ColumnMetadata, error) {
	schema = params.Schema(schema)
	if table == "" {
		return nil, &domain.DiscoveryError{Schema: schema, Table: table, Cause: domain.ErrValidation("table name is required")}
	}

	conn, err := d.opener.Open(ctx, params)
	if err != nil {
		return nil, &domain.DiscoveryError{Schema: schema, Table: table, Cause: err}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			d.logger.Warn("close source connection", "error", cerr)
		}
	}()

	cols, err := conn.Columns(ctx, schema, table)
	if err != nil {
		return nil, &domain.DiscoveryError{Schema: schema, Table: table, Cause: err}
	}
	return cols, nil
}
