package olap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "duck-olap/internal/db"
	"duck-olap/internal/domain"
	"duck-olap/internal/schemagen"
	"duck-olap/internal/source"
)

var (
	wikiDimensions = []string{"__time", "channel", "countryName", "page", "user", "isRobot"}
	wikiMeasures   = []string{"added", "deleted", "delta"}
)

func wikiCatalog() string {
	return schemagen.Render("wikiticker", internaldb.DemoTable, wikiDimensions, wikiMeasures)
}

func openWiki(t *testing.T, driver string) *Connection {
	t.Helper()

	params := source.ConnectionParams{Driver: driver, DefaultSchema: "main"}
	switch driver {
	case source.DriverDuckDB:
		params.DSN = internaldb.NewTestDuckDBSource(t)
	case source.DriverSQLite:
		params.DSN = internaldb.NewTestSQLiteSource(t)
	}

	conn, err := Open(t.Context(), Config{Source: params, CatalogContent: wikiCatalog()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// grid flattens a cell set into row header -> formatted values.
func grid(cs *domain.CellSet) ([]string, [][]string) {
	var headers []string
	var values [][]string
	for r := 0; r < cs.RowCount(); r++ {
		if cs.Rows != nil {
			var name string
			for i, m := range cs.Rows.Positions[r].Members {
				if i > 0 {
					name += "/"
				}
				name += m.Name
			}
			headers = append(headers, name)
		}
		row := make([]string, len(cs.Columns.Positions))
		for c := range row {
			row[c] = cs.Cell(c, r).FormattedValue
		}
		values = append(values, row)
	}
	return headers, values
}

func TestExecute_OrderedMeasuresByCountry(t *testing.T) {
	for _, driver := range []string{source.DriverDuckDB, source.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			conn := openWiki(t, driver)

			cs, err := conn.Execute(t.Context(), `SELECT {[Measures].[added], [Measures].[deleted]} ON COLUMNS,
				Order([countryName].Members, [Measures].[added], DESC) ON ROWS
				FROM [wikiticker]`)
			require.NoError(t, err)

			assert.Equal(t, "wikiticker", cs.Cube)
			require.Len(t, cs.Columns.Positions, 2)
			assert.Equal(t, "added", cs.Columns.Positions[0].Members[0].Name)

			headers, values := grid(cs)
			assert.Equal(t, []string{"All countryNames", "United States", "Germany", NullMemberName, "Japan", "France"}, headers)
			assert.Equal(t, [][]string{
				{"268", "61"},
				{"115", "22"},
				{"53", "8"},
				{"43", "0"},
				{"40", "0"},
				{"17", "31"},
			}, values)
			assert.True(t, cs.Rows.Positions[0].Members[0].All)
			assert.True(t, cs.Rows.Positions[3].Members[0].Null)
			assert.Equal(t, int64(268), cs.Cell(0, 0).Value)
		})
	}
}

func TestExecute_DefaultMeasureAndColumnsOnly(t *testing.T) {
	conn := openWiki(t, source.DriverDuckDB)

	cs, err := conn.Execute(t.Context(), "SELECT [countryName].[countryName].Members ON COLUMNS FROM [wikiticker]")
	require.NoError(t, err)

	assert.Nil(t, cs.Rows)
	assert.Equal(t, 1, cs.RowCount())
	_, values := grid(cs)
	// Default measure is the first one (added); members sort by key, NULL last.
	assert.Equal(t, [][]string{{"17", "53", "40", "115", "43"}}, values)
	assert.Equal(t, "France", cs.Columns.Positions[0].Members[0].Name)
	assert.Equal(t, NullMemberName, cs.Columns.Positions[4].Members[0].Name)
}

func TestExecute_SlicerAndNonEmpty(t *testing.T) {
	conn := openWiki(t, source.DriverDuckDB)

	cs, err := conn.Execute(t.Context(), `SELECT [Measures].[added] ON COLUMNS,
		[channel].[channel].Members ON ROWS
		FROM [wikiticker] WHERE [countryName].[Germany]`)
	require.NoError(t, err)
	headers, values := grid(cs)
	assert.Equal(t, []string{"#de.wikipedia", "#en.wikipedia", "#fr.wikipedia", "#ja.wikipedia"}, headers)
	assert.Equal(t, [][]string{{"53"}, {""}, {""}, {""}}, values)
	assert.Nil(t, cs.Cell(0, 1).Value)

	cs, err = conn.Execute(t.Context(), `SELECT [Measures].[added] ON COLUMNS,
		NON EMPTY [channel].[channel].Members ON ROWS
		FROM [wikiticker] WHERE [countryName].[Germany]`)
	require.NoError(t, err)
	headers, values = grid(cs)
	assert.Equal(t, []string{"#de.wikipedia"}, headers)
	assert.Equal(t, [][]string{{"53"}}, values)
}

func TestExecute_NullMemberSlicer(t *testing.T) {
	conn := openWiki(t, source.DriverSQLite)

	cs, err := conn.Execute(t.Context(), `SELECT {[Measures].[added], [Measures].[delta]} ON 0
		FROM [wikiticker] WHERE [countryName].[#null]`)
	require.NoError(t, err)
	_, values := grid(cs)
	assert.Equal(t, [][]string{{"43", "43"}}, values)
}

func TestExecute_SlicerMeasure(t *testing.T) {
	conn := openWiki(t, source.DriverDuckDB)

	_, err := conn.Execute(t.Context(), `SELECT Order([countryName].[countryName].Members, BASC) ON 0
		FROM [wikiticker] WHERE [Measures].[deleted]`)
	require.Error(t, err, "BASC alone is not a value expression")

	cs, err := conn.Execute(t.Context(), `SELECT [countryName].[countryName].Members ON 0
		FROM [wikiticker] WHERE [Measures].[deleted]`)
	require.NoError(t, err)
	_, values := grid(cs)
	assert.Equal(t, [][]string{{"31", "8", "0", "22", "0"}}, values)
}

func TestExecute_CrossJoinNonEmpty(t *testing.T) {
	conn := openWiki(t, source.DriverDuckDB)

	cs, err := conn.Execute(t.Context(), `SELECT [Measures].[added] ON 0,
		NON EMPTY CrossJoin([isRobot].[isRobot].Members, [channel].[channel].Members) ON 1
		FROM [wikiticker]`)
	require.NoError(t, err)
	headers, values := grid(cs)
	assert.Equal(t, []string{
		"false/#de.wikipedia",
		"false/#en.wikipedia",
		"false/#fr.wikipedia",
		"false/#ja.wikipedia",
		"true/#de.wikipedia",
		"true/#en.wikipedia",
	}, headers)
	assert.Equal(t, [][]string{{"50"}, {"58"}, {"17"}, {"40"}, {"3"}, {"100"}}, values)
}

func TestExecute_TopBottomHeadTail(t *testing.T) {
	conn := openWiki(t, source.DriverDuckDB)

	tests := []struct {
		name string
		set  string
		want []string
	}{
		{"topcount", "TopCount([countryName].[countryName].Members, 2, [Measures].[added])", []string{"United States", "Germany"}},
		{"bottomcount", "BottomCount([countryName].[countryName].Members, 2, [Measures].[deleted])", []string{"Japan", NullMemberName}},
		{"topcount_no_value", "TopCount([countryName].[countryName].Members, 2)", []string{"France", "Germany"}},
		{"head", "Head([countryName].Members, 2)", []string{"All countryNames", "France"}},
		{"tail", "Tail([countryName].[countryName].Members, 2)", []string{"United States", NullMemberName}},
		{"tail_default", "Tail([countryName].[countryName].Members)", []string{NullMemberName}},
		{"order_bdesc", "Order([countryName].Members, [Measures].[deleted], BDESC)", []string{"All countryNames", "France", "United States", "Germany", "Japan", NullMemberName}},
		{"order_asc", "Order([countryName].Members, [Measures].[added])", []string{"All countryNames", "France", "Japan", NullMemberName, "Germany", "United States"}},
		{"explicit_members", "{[countryName].[Japan], [countryName].[countryName].[France]}", []string{"Japan", "France"}},
		{"all_member", "{[countryName].[All countryNames]}", []string{"All countryNames"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cs, err := conn.Execute(t.Context(), "SELECT [Measures].[added] ON 0, "+tc.set+" ON 1 FROM [wikiticker]")
			require.NoError(t, err)
			headers, _ := grid(cs)
			assert.Equal(t, tc.want, headers)
		})
	}
}

func TestExecute_Errors(t *testing.T) {
	conn := openWiki(t, source.DriverDuckDB)

	tests := []struct {
		name    string
		mdx     string
		wantErr string
	}{
		{"parse", "SELECT FROM", "parse error"},
		{"unknown_cube", "SELECT [Measures].Members ON 0 FROM [sales]", `cube "sales" not found`},
		{"unknown_measure", "SELECT [Measures].[nope] ON 0 FROM [wikiticker]", `measure "nope" not found`},
		{"unknown_dimension", "SELECT [city].Members ON 0 FROM [wikiticker]", `dimension "city" not found`},
		{"unknown_member", "SELECT {[countryName].[Atlantis]} ON 0 FROM [wikiticker]", "member [countryName].[Atlantis] not found"},
		{"two_measures_in_tuple", "SELECT ([Measures].[added], [Measures].[deleted]) ON 0 FROM [wikiticker]", "more than one member"},
		{"same_dimension_two_axes", "SELECT [countryName].Members ON 0, [countryName].Members ON 1 FROM [wikiticker]", "appears on more than one axis"},
		{"axis_and_slicer", "SELECT [Measures].Members ON 0 FROM [wikiticker] WHERE [Measures].[added]", "appears on an axis and in the slicer"},
		{"crossjoin_overlap", "SELECT CrossJoin([channel].Members, [channel].Members) ON 0 FROM [wikiticker]", "appears in both sets"},
		{"mixed_set", "SELECT {[Measures].[added], [channel].[#de.wikipedia]} ON 0 FROM [wikiticker]", "set mixes tuples"},
		{"rows_without_columns", "SELECT [Measures].Members ON ROWS FROM [wikiticker]", "no COLUMNS axis"},
		{"pages_axis", "SELECT [Measures].Members ON 0, [channel].Members ON 1, [user].Members ON 2 FROM [wikiticker]", "axis 2 is not supported"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cs, err := conn.Execute(t.Context(), tc.mdx)
			require.Error(t, err)
			assert.Nil(t, cs)

			var ee *domain.ExecutionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tc.mdx, ee.Query)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestExecute_NoMeasures(t *testing.T) {
	params := source.ConnectionParams{Driver: source.DriverDuckDB, DSN: internaldb.NewTestDuckDBSource(t), DefaultSchema: "main"}
	catalog := schemagen.Render("dims", internaldb.DemoTable, []string{"channel"}, nil)

	conn, err := Open(t.Context(), Config{Source: params, CatalogContent: catalog})
	require.NoError(t, err)
	defer conn.Close()

	cs, err := conn.Execute(t.Context(), "SELECT [channel].Members ON 0 FROM [dims]")
	require.NoError(t, err)
	require.NotEmpty(t, cs.Columns.Positions)
	assert.True(t, cs.Columns.Positions[0].Members[0].All)
	require.Len(t, cs.Cells, len(cs.Columns.Positions))
	for _, c := range cs.Cells {
		assert.Nil(t, c.Value)
		assert.Empty(t, c.FormattedValue)
	}

	cs, err = conn.Execute(t.Context(), "SELECT [Measures].Members ON COLUMNS, [channel].Members ON ROWS FROM [dims]")
	require.NoError(t, err)
	assert.Empty(t, cs.Columns.Positions)
	assert.Empty(t, cs.Cells)
}

func TestExecute_MissingColumnIsExecutionError(t *testing.T) {
	params := source.ConnectionParams{Driver: source.DriverDuckDB, DSN: internaldb.NewTestDuckDBSource(t), DefaultSchema: "main"}
	catalog := schemagen.Render("wiki", internaldb.DemoTable, nil, []string{"ghost"})

	conn, err := Open(t.Context(), Config{Source: params, CatalogContent: catalog})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Execute(t.Context(), "SELECT [Measures].Members ON 0 FROM [wiki]")
	var ee *domain.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, err.Error(), "compute cells")
}

func TestOpen_Errors(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	failing := source.OpenerFunc(func(context.Context, source.ConnectionParams) (source.Conn, error) {
		return nil, boom
	})

	tests := []struct {
		name    string
		catalog string
		opts    []Option
		check   func(t *testing.T, err error)
	}{
		{
			name:    "empty_catalog",
			catalog: "  ",
			check: func(t *testing.T, err error) {
				var verr *domain.ValidationError
				assert.ErrorAs(t, err, &verr)
			},
		},
		{
			name:    "malformed_catalog",
			catalog: "<Schema name=",
			check:   func(t *testing.T, err error) { assert.Contains(t, err.Error(), "open mdx connection") },
		},
		{
			name:    "duplicate_dimensions",
			catalog: schemagen.Render("c", "t", []string{"a", "a"}, []string{"m"}),
			check: func(t *testing.T, err error) {
				var verr *domain.ValidationError
				assert.ErrorAs(t, err, &verr)
				assert.Contains(t, err.Error(), `duplicate dimension "a"`)
			},
		},
		{
			name:    "source_unreachable",
			catalog: wikiCatalog(),
			opts:    []Option{WithOpener(failing)},
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, boom) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := Open(t.Context(), Config{CatalogContent: tc.catalog}, tc.opts...)
			require.Error(t, err)
			assert.Nil(t, conn)

			var cerr *domain.ConnectionError
			require.ErrorAs(t, err, &cerr)
			tc.check(t, err)
		})
	}
}

func TestConnection_Cubes(t *testing.T) {
	conn := openWiki(t, source.DriverSQLite)
	assert.Equal(t, []string{"wikiticker"}, conn.Cubes())
	assert.Equal(t, "wikiticker", conn.Schema().Cubes[0].Name)
}
