package source

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-olap/internal/domain"
)

// fakeBroker serves /status and answers /druid/v2/sql through handle.
func fakeBroker(t *testing.T, handle func(q druidQuery) (int, string)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"version":"31.0.0"}`))
		case "/druid/v2/sql":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var q druidQuery
			require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
			status, body := handle(q)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func openDruidTest(t *testing.T, srv *httptest.Server) Conn {
	t.Helper()
	conn, err := Open(t.Context(), ConnectionParams{Driver: DriverDruid, DSN: srv.URL + "/", DefaultSchema: "druid"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestDruid_Columns(t *testing.T) {
	srv := fakeBroker(t, func(q druidQuery) (int, string) {
		assert.Contains(t, q.Query, "INFORMATION_SCHEMA.COLUMNS")
		assert.Equal(t, "array", q.ResultFormat)
		assert.True(t, q.Header)
		require.Len(t, q.Parameters, 2)
		assert.Equal(t, druidParameter{Type: "VARCHAR", Value: "druid"}, q.Parameters[0])
		assert.Equal(t, druidParameter{Type: "VARCHAR", Value: "wikiticker"}, q.Parameters[1])
		return http.StatusOK, `[
			["COLUMN_NAME","DATA_TYPE","JDBC_TYPE","ORDINAL_POSITION"],
			["__time","TIMESTAMP",93,1],
			["countryName","VARCHAR",12,2],
			["added","BIGINT",-5,3],
			["ratio","DOUBLE",8,4]
		]`
	})

	cols, err := openDruidTest(t, srv).Columns(t.Context(), "druid", "wikiticker")
	require.NoError(t, err)
	assert.Equal(t, []domain.ColumnMetadata{
		{Name: "__time", Type: domain.SQLTypeTimestamp, TypeName: "TIMESTAMP", Ordinal: 1},
		{Name: "countryName", Type: domain.SQLTypeVarchar, TypeName: "VARCHAR", Ordinal: 2},
		{Name: "added", Type: domain.SQLTypeBigInt, TypeName: "BIGINT", Ordinal: 3},
		{Name: "ratio", Type: domain.SQLTypeDouble, TypeName: "DOUBLE", Ordinal: 4},
	}, cols)
}

func TestDruid_ColumnsMissingTable(t *testing.T) {
	srv := fakeBroker(t, func(druidQuery) (int, string) {
		return http.StatusOK, `[["COLUMN_NAME","DATA_TYPE","JDBC_TYPE","ORDINAL_POSITION"]]`
	})

	_, err := openDruidTest(t, srv).Columns(t.Context(), "druid", "nope")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDruid_Query(t *testing.T) {
	srv := fakeBroker(t, func(q druidQuery) (int, string) {
		require.Len(t, q.Parameters, 1)
		assert.Equal(t, "VARCHAR", q.Parameters[0].Type)
		return http.StatusOK, `[["country","added","avg"],["France",17,8.5],[null,43,21.5]]`
	})

	res, err := openDruidTest(t, srv).Query(t.Context(), "SELECT ...", "France")
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "added", "avg"}, res.Columns)
	assert.Equal(t, [][]interface{}{
		{"France", int64(17), 8.5},
		{nil, int64(43), 21.5},
	}, res.Rows)
}

func TestDruid_QueryFailure(t *testing.T) {
	srv := fakeBroker(t, func(druidQuery) (int, string) {
		return http.StatusBadRequest, `{"error":"Plan validation failed"}`
	})

	_, err := openDruidTest(t, srv).Query(t.Context(), "SELECT nope")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 400"))
	assert.Contains(t, err.Error(), "Plan validation failed")
}

func TestDruid_PingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Open(t.Context(), ConnectionParams{Driver: DriverDruid, DSN: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestToDruidParameter(t *testing.T) {
	assert.Equal(t, druidParameter{Type: "BIGINT", Value: int64(3)}, toDruidParameter(int64(3)))
	assert.Equal(t, druidParameter{Type: "DOUBLE", Value: 1.5}, toDruidParameter(1.5))
	assert.Equal(t, druidParameter{Type: "BOOLEAN", Value: true}, toDruidParameter(true))
	assert.Equal(t, druidParameter{Type: "VARCHAR", Value: "x"}, toDruidParameter("x"))
}
