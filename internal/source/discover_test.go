package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "duck-olap/internal/db"
	"duck-olap/internal/domain"
)

// fakeConn is a Conn serving canned column metadata.
type fakeConn struct {
	cols    []domain.ColumnMetadata
	err     error
	closed  bool
	schemas []string
}

func (f *fakeConn) Columns(_ context.Context, schema, _ string) ([]domain.ColumnMetadata, error) {
	f.schemas = append(f.schemas, schema)
	return f.cols, f.err
}

func (f *fakeConn) Query(context.Context, string, ...interface{}) (*Result, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) Dialect() Dialect { return duckdbDialect }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func openerFor(conn Conn, err error) Opener {
	return OpenerFunc(func(context.Context, ConnectionParams) (Conn, error) {
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

func TestDiscover_ClassifiesInCatalogOrder(t *testing.T) {
	conn := &fakeConn{cols: []domain.ColumnMetadata{
		{Name: "id", Type: domain.SQLTypeInteger, Ordinal: 1},
		{Name: "country", Type: domain.SQLTypeVarchar, Ordinal: 2},
		{Name: "views", Type: domain.SQLTypeBigInt, Ordinal: 3},
		{Name: "price", Type: domain.SQLTypeDouble, Ordinal: 4},
		{Name: "payload", Type: domain.SQLTypeUnknown, Ordinal: 5},
	}}

	got, err := NewDiscoverer(openerFor(conn, nil), nil).Discover(t.Context(), ConnectionParams{Driver: DriverDuckDB}, "main", "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "price", "payload"}, got.Dimensions)
	assert.Equal(t, []string{"id", "views"}, got.Measures)
	assert.True(t, conn.closed)
}

func TestDiscover_DefaultSchema(t *testing.T) {
	conn := &fakeConn{cols: []domain.ColumnMetadata{{Name: "a", Type: domain.SQLTypeVarchar}}}
	d := NewDiscoverer(openerFor(conn, nil), nil)

	_, err := d.Discover(t.Context(), ConnectionParams{Driver: DriverPostgres, DefaultSchema: "public"}, "", "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, conn.schemas)
}

func TestDiscover_EmptyTable(t *testing.T) {
	conn := &fakeConn{cols: nil}

	got, err := NewDiscoverer(openerFor(conn, nil), nil).Discover(t.Context(), ConnectionParams{}, "main", "t")
	require.NoError(t, err)
	assert.Empty(t, got.Dimensions)
	assert.Empty(t, got.Measures)
	assert.NotNil(t, got.Dimensions)
}

func TestDiscover_Errors(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name   string
		opener Opener
		table  string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "open_fails",
			opener: openerFor(nil, boom),
			table:  "t",
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, boom) },
		},
		{
			name:   "lookup_fails",
			opener: openerFor(&fakeConn{err: domain.ErrNotFound("table main.t not found")}, nil),
			table:  "t",
			check: func(t *testing.T, err error) {
				var nf *domain.NotFoundError
				assert.ErrorAs(t, err, &nf)
			},
		},
		{
			name:   "missing_table_name",
			opener: openerFor(&fakeConn{}, nil),
			table:  "",
			check: func(t *testing.T, err error) {
				var verr *domain.ValidationError
				assert.ErrorAs(t, err, &verr)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewDiscoverer(tc.opener, nil).Discover(t.Context(), ConnectionParams{}, "main", tc.table)
			require.Error(t, err)
			assert.Nil(t, got)

			var derr *domain.DiscoveryError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, "main", derr.Schema)
			assert.Equal(t, tc.table, derr.Table)
			tc.check(t, err)
		})
	}
}

func TestDiscover_ClosesOnLookupFailure(t *testing.T) {
	conn := &fakeConn{err: errors.New("permission denied")}
	_, err := NewDiscoverer(openerFor(conn, nil), nil).Discover(t.Context(), ConnectionParams{}, "main", "t")
	require.Error(t, err)
	assert.True(t, conn.closed)
}

func TestDiscover_SeededSources(t *testing.T) {
	sources := map[string]ConnectionParams{
		"duckdb": {Driver: DriverDuckDB, DSN: internaldb.NewTestDuckDBSource(t), DefaultSchema: "main"},
		"sqlite": {Driver: DriverSQLite, DSN: internaldb.NewTestSQLiteSource(t), DefaultSchema: "main"},
	}

	for name, params := range sources {
		t.Run(name, func(t *testing.T) {
			got, err := NewDiscoverer(nil, nil).Discover(t.Context(), params, "", internaldb.DemoTable)
			require.NoError(t, err)
			assert.Equal(t, []string{"__time", "channel", "countryName", "page", "user", "isRobot"}, got.Dimensions)
			assert.Equal(t, []string{"added", "deleted", "delta"}, got.Measures)
		})
	}
}

func TestDescribe_MissingTable(t *testing.T) {
	params := ConnectionParams{Driver: DriverSQLite, DSN: internaldb.NewTestSQLiteSource(t), DefaultSchema: "main"}

	_, err := NewDiscoverer(nil, nil).Describe(t.Context(), params, "", "ghost")
	var derr *domain.DiscoveryError
	require.ErrorAs(t, err, &derr)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, "discover columns of main.ghost: table main.ghost not found", err.Error())
}
