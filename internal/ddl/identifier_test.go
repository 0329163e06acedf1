package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		// Valid cases
		{name: "simple", input: "users"},
		{name: "underscore_prefix", input: "_temp"},
		{name: "mixed_case", input: "MyTable"},
		{name: "with_digits", input: "table1"},
		{name: "all_upper", input: "SCHEMA"},
		{name: "max_length", input: strings.Repeat("a", 128)},

		// Invalid cases
		{name: "empty", input: "", wantErr: "name is required"},
		{name: "too_long", input: strings.Repeat("a", 129), wantErr: "at most 128 characters"},
		{name: "starts_with_digit", input: "1table", wantErr: "must match"},
		{name: "contains_space", input: "my table", wantErr: "must match"},
		{name: "contains_hyphen", input: "my-table", wantErr: "must match"},
		{name: "contains_dot", input: "schema.table", wantErr: "must match"},
		{name: "contains_semicolon", input: "foo;bar", wantErr: "must match"},
		{name: "contains_quote", input: `foo"bar`, wantErr: "must match"},
		{name: "sql_injection", input: "foo; DROP TABLE", wantErr: "must match"},
		{name: "contains_paren", input: "foo()", wantErr: "must match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "users", want: `"users"`},
		{name: "with_double_quote", input: `my"table`, want: `"my""table"`},
		{name: "multiple_quotes", input: `a"b"c`, want: `"a""b""c"`},
		{name: "empty", input: "", want: `""`},
		{name: "uppercase", input: "Users", want: `"Users"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuoteIdentifier(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		table  string
		want   string
	}{
		{name: "with_schema", schema: "main", table: "wikiticker", want: `"main"."wikiticker"`},
		{name: "no_schema", schema: "", table: "wikiticker", want: `"wikiticker"`},
		{name: "quotes_escaped", schema: `we"ird`, table: `t"1`, want: `"we""ird"."t""1"`},
		{name: "mixed_case", schema: "druid", table: "WikiTicker", want: `"druid"."WikiTicker"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QualifiedName(tt.schema, tt.table))
		})
	}
}
