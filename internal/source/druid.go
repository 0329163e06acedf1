package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"duck-olap/internal/classify"
	"duck-olap/internal/domain"
)

// druidConn talks to a Druid broker through its SQL HTTP API.
type druidConn struct {
	baseURL    string
	httpClient *http.Client
}

// druidQuery is the body of POST /druid/v2/sql. Array results with a header
// row keep the column order that object results lose.
type druidQuery struct {
	Query        string           `json:"query"`
	ResultFormat string           `json:"resultFormat"`
	Header       bool             `json:"header"`
	Parameters   []druidParameter `json:"parameters,omitempty"`
}

type druidParameter struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

func openDruid(ctx context.Context, params ConnectionParams) (Conn, error) {
	c := &druidConn{
		baseURL:    strings.TrimRight(params.DSN, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	if err := c.ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *druidConn) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to druid: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("druid status check failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *druidConn) Columns(ctx context.Context, schema, table string) ([]domain.ColumnMetadata, error) {
	res, err := c.Query(ctx, `SELECT COLUMN_NAME, DATA_TYPE, JDBC_TYPE, ORDINAL_POSITION
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, schema, table)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, domain.ErrNotFound("table %s.%s not found", schema, table)
	}

	cols := make([]domain.ColumnMetadata, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("unexpected column row width %d", len(row))
		}
		name, _ := row[0].(string)
		typeName, _ := row[1].(string)
		jdbc, _ := row[2].(int64)
		ordinal, _ := row[3].(int64)
		cols = append(cols, domain.ColumnMetadata{
			Name:     name,
			Type:     classify.FromJDBCType(int(jdbc)),
			TypeName: typeName,
			Ordinal:  int(ordinal),
		})
	}
	return cols, nil
}

func (c *druidConn) Query(ctx context.Context, query string, args ...interface{}) (*Result, error) {
	body := druidQuery{Query: query, ResultFormat: "array", Header: true}
	for _, a := range args {
		body.Parameters = append(body.Parameters, toDruidParameter(a))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/druid/v2/sql", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return decodeDruidArrays(raw)
}

func (c *druidConn) Dialect() Dialect { return druidDialect }

func (c *druidConn) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// decodeDruidArrays parses an array result whose first row is the header.
// Integral numbers decode as int64, other numbers as float64.
func decodeDruidArrays(raw []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var rows [][]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(rows) == 0 {
		return &Result{}, nil
	}

	res := &Result{Columns: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		res.Columns[i] = fmt.Sprint(h)
	}
	for _, row := range rows[1:] {
		for i, v := range row {
			if n, ok := v.(json.Number); ok {
				if iv, err := n.Int64(); err == nil {
					row[i] = iv
				} else if fv, err := n.Float64(); err == nil {
					row[i] = fv
				}
			}
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func toDruidParameter(v interface{}) druidParameter {
	switch x := v.(type) {
	case int:
		return druidParameter{Type: "BIGINT", Value: x}
	case int64:
		return druidParameter{Type: "BIGINT", Value: x}
	case float64:
		return druidParameter{Type: "DOUBLE", Value: x}
	case bool:
		return druidParameter{Type: "BOOLEAN", Value: x}
	case string:
		return druidParameter{Type: "VARCHAR", Value: x}
	default:
		return druidParameter{Type: "VARCHAR", Value: fmt.Sprint(x)}
	}
}
