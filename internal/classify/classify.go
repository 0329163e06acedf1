// Package classify decides whether a relational column becomes a measure or
// a dimension of the synthesized cube.
//
// The rule is a single-axis heuristic over the declared type: plain integer
// and big-integer columns are summable measures, everything else is a
// dimension. Floating point measures and numeric identifiers are therefore
// misclassified on purpose.
package classify

import (
	"regexp"
	"strings"

	"duck-olap/internal/domain"
)

// Classify maps a column type code to its role. Unrecognized codes fall
// through to RoleDimension.
func Classify(t domain.SQLType) domain.ColumnRole {
	switch t {
	case domain.SQLTypeInteger, domain.SQLTypeBigInt:
		return domain.RoleMeasure
	default:
		return domain.RoleDimension
	}
}

// Split partitions columns by role, preserving catalog order within each list.
func Split(columns []domain.ColumnMetadata) domain.ClassifiedColumns {
	out := domain.ClassifiedColumns{
		Dimensions: []string{},
		Measures:   []string{},
	}
	for _, c := range columns {
		switch Classify(c.Type) {
		case domain.RoleMeasure:
			out.Measures = append(out.Measures, c.Name)
		default:
			out.Dimensions = append(out.Dimensions, c.Name)
		}
	}
	return out
}

// typeParamsRe matches precision/scale parameters, e.g. the "(10,2)" of DECIMAL(10,2).
var typeParamsRe = regexp.MustCompile(`\s*\(\s*\d+\s*(?:,\s*\d+\s*)?\)`)

// typeNames maps declared type names from DuckDB, PostgreSQL, SQLite and
// Druid onto type codes. Keys are upper-case with parameters removed.
var typeNames = map[string]domain.SQLType{
	"BOOLEAN": domain.SQLTypeBoolean,
	"BOOL":    domain.SQLTypeBoolean,
	"LOGICAL": domain.SQLTypeBoolean,

	"TINYINT":  domain.SQLTypeTinyInt,
	"INT1":     domain.SQLTypeTinyInt,
	"SMALLINT": domain.SQLTypeSmallInt,
	"INT2":     domain.SQLTypeSmallInt,
	"SHORT":    domain.SQLTypeSmallInt,

	"INTEGER": domain.SQLTypeInteger,
	"INT":     domain.SQLTypeInteger,
	"INT4":    domain.SQLTypeInteger,
	"SIGNED":  domain.SQLTypeInteger,
	"SERIAL":  domain.SQLTypeInteger,

	"BIGINT":    domain.SQLTypeBigInt,
	"INT8":      domain.SQLTypeBigInt,
	"INT64":     domain.SQLTypeBigInt,
	"LONG":      domain.SQLTypeBigInt,
	"BIGSERIAL": domain.SQLTypeBigInt,

	"HUGEINT":   domain.SQLTypeHugeInt,
	"INT128":    domain.SQLTypeHugeInt,
	"UTINYINT":  domain.SQLTypeUTinyInt,
	"USMALLINT": domain.SQLTypeUSmallInt,
	"UINTEGER":  domain.SQLTypeUInteger,
	"UBIGINT":   domain.SQLTypeUBigInt,

	"DECIMAL": domain.SQLTypeDecimal,
	"NUMERIC": domain.SQLTypeDecimal,
	"REAL":    domain.SQLTypeReal,
	"FLOAT4":  domain.SQLTypeReal,
	"FLOAT":   domain.SQLTypeReal,
	"DOUBLE":  domain.SQLTypeDouble,
	"FLOAT8":  domain.SQLTypeDouble,

	"DOUBLE PRECISION": domain.SQLTypeDouble,

	"CHAR":              domain.SQLTypeChar,
	"CHARACTER":         domain.SQLTypeChar,
	"BPCHAR":            domain.SQLTypeChar,
	"VARCHAR":           domain.SQLTypeVarchar,
	"CHARACTER VARYING": domain.SQLTypeVarchar,
	"TEXT":              domain.SQLTypeVarchar,
	"STRING":            domain.SQLTypeVarchar,
	"CLOB":              domain.SQLTypeVarchar,

	"DATE":                        domain.SQLTypeDate,
	"TIME":                        domain.SQLTypeTime,
	"TIME WITHOUT TIME ZONE":      domain.SQLTypeTime,
	"TIMESTAMP":                   domain.SQLTypeTimestamp,
	"DATETIME":                    domain.SQLTypeTimestamp,
	"TIMESTAMP WITHOUT TIME ZONE": domain.SQLTypeTimestamp,
	"TIMESTAMPTZ":                 domain.SQLTypeTimestampTZ,
	"TIMESTAMP WITH TIME ZONE":    domain.SQLTypeTimestampTZ,
	"INTERVAL":                    domain.SQLTypeInterval,

	"BLOB":      domain.SQLTypeBlob,
	"BYTEA":     domain.SQLTypeBlob,
	"BINARY":    domain.SQLTypeBlob,
	"VARBINARY": domain.SQLTypeBlob,
	"UUID":      domain.SQLTypeUUID,
	"JSON":      domain.SQLTypeJSON,
	"JSONB":     domain.SQLTypeJSON,

	"ARRAY":  domain.SQLTypeList,
	"LIST":   domain.SQLTypeList,
	"STRUCT": domain.SQLTypeStruct,
	"MAP":    domain.SQLTypeMap,
	"OTHER":  domain.SQLTypeOther,
}

// ParseTypeName maps a declared column type name to a type code.
// Parameters (VARCHAR(255), DECIMAL(18,3)) are ignored, array types
// (INTEGER[], _int4) map to SQLTypeList and composite DuckDB types
// (STRUCT(...), MAP(...)) map by their constructor name.
func ParseTypeName(name string) domain.SQLType {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return domain.SQLTypeUnknown
	}
	if strings.HasSuffix(n, "[]") || strings.HasPrefix(n, "_") {
		return domain.SQLTypeList
	}
	if i := strings.IndexByte(n, '('); i > 0 {
		head := strings.TrimSpace(n[:i])
		switch head {
		case "STRUCT", "MAP", "UNION", "LIST":
			if t, ok := typeNames[head]; ok {
				return t
			}
			return domain.SQLTypeOther
		}
	}
	n = typeParamsRe.ReplaceAllString(n, "")
	n = strings.Join(strings.Fields(n), " ")
	if t, ok := typeNames[n]; ok {
		return t
	}
	return domain.SQLTypeUnknown
}

// JDBC type codes as reported by Druid's INFORMATION_SCHEMA.COLUMNS.JDBC_TYPE.
const (
	jdbcBit           = -7
	jdbcTinyInt       = -6
	jdbcSmallInt      = 5
	jdbcInteger       = 4
	jdbcBigInt        = -5
	jdbcFloat         = 6
	jdbcReal          = 7
	jdbcDouble        = 8
	jdbcNumeric       = 2
	jdbcDecimal       = 3
	jdbcChar          = 1
	jdbcVarchar       = 12
	jdbcLongVarchar   = -1
	jdbcDate          = 91
	jdbcTime          = 92
	jdbcTimestamp     = 93
	jdbcBinary        = -2
	jdbcVarbinary     = -3
	jdbcLongVarbinary = -4
	jdbcOther         = 1111
	jdbcArray         = 2003
	jdbcBlob          = 2004
	jdbcClob          = 2005
	jdbcBoolean       = 16
	jdbcStruct        = 2002
	jdbcTimeTZ        = 2013
	jdbcTimestampTZ   = 2014
)

// FromJDBCType maps a JDBC type code to a type code. Unknown codes map to
// SQLTypeUnknown.
func FromJDBCType(code int) domain.SQLType {
	switch code {
	case jdbcBit, jdbcBoolean:
		return domain.SQLTypeBoolean
	case jdbcTinyInt:
		return domain.SQLTypeTinyInt
	case jdbcSmallInt:
		return domain.SQLTypeSmallInt
	case jdbcInteger:
		return domain.SQLTypeInteger
	case jdbcBigInt:
		return domain.SQLTypeBigInt
	case jdbcReal, jdbcFloat:
		return domain.SQLTypeReal
	case jdbcDouble:
		return domain.SQLTypeDouble
	case jdbcNumeric, jdbcDecimal:
		return domain.SQLTypeDecimal
	case jdbcChar:
		return domain.SQLTypeChar
	case jdbcVarchar, jdbcLongVarchar, jdbcClob:
		return domain.SQLTypeVarchar
	case jdbcDate:
		return domain.SQLTypeDate
	case jdbcTime, jdbcTimeTZ:
		return domain.SQLTypeTime
	case jdbcTimestamp:
		return domain.SQLTypeTimestamp
	case jdbcTimestampTZ:
		return domain.SQLTypeTimestampTZ
	case jdbcBinary, jdbcVarbinary, jdbcLongVarbinary, jdbcBlob:
		return domain.SQLTypeBlob
	case jdbcArray:
		return domain.SQLTypeList
	case jdbcStruct:
		return domain.SQLTypeStruct
	case jdbcOther:
		return domain.SQLTypeOther
	default:
		return domain.SQLTypeUnknown
	}
}
