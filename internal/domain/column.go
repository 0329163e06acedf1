package domain

// SQLType is the normalized type code of a relational column. Backends map
// their own type vocabularies onto this closed set.
type SQLType int

// SQLTypeUnknown and friends enumerate the recognized type codes.
const (
	SQLTypeUnknown SQLType = iota
	SQLTypeBoolean
	SQLTypeTinyInt
	SQLTypeSmallInt
	SQLTypeInteger
	SQLTypeBigInt
	SQLTypeHugeInt
	SQLTypeUTinyInt
	SQLTypeUSmallInt
	SQLTypeUInteger
	SQLTypeUBigInt
	SQLTypeDecimal
	SQLTypeReal
	SQLTypeDouble
	SQLTypeChar
	SQLTypeVarchar
	SQLTypeDate
	SQLTypeTime
	SQLTypeTimestamp
	SQLTypeTimestampTZ
	SQLTypeInterval
	SQLTypeBlob
	SQLTypeUUID
	SQLTypeJSON
	SQLTypeList
	SQLTypeStruct
	SQLTypeMap
	SQLTypeOther
)

var sqlTypeNames = map[SQLType]string{
	SQLTypeUnknown:     "UNKNOWN",
	SQLTypeBoolean:     "BOOLEAN",
	SQLTypeTinyInt:     "TINYINT",
	SQLTypeSmallInt:    "SMALLINT",
	SQLTypeInteger:     "INTEGER",
	SQLTypeBigInt:      "BIGINT",
	SQLTypeHugeInt:     "HUGEINT",
	SQLTypeUTinyInt:    "UTINYINT",
	SQLTypeUSmallInt:   "USMALLINT",
	SQLTypeUInteger:    "UINTEGER",
	SQLTypeUBigInt:     "UBIGINT",
	SQLTypeDecimal:     "DECIMAL",
	SQLTypeReal:        "REAL",
	SQLTypeDouble:      "DOUBLE",
	SQLTypeChar:        "CHAR",
	SQLTypeVarchar:     "VARCHAR",
	SQLTypeDate:        "DATE",
	SQLTypeTime:        "TIME",
	SQLTypeTimestamp:   "TIMESTAMP",
	SQLTypeTimestampTZ: "TIMESTAMPTZ",
	SQLTypeInterval:    "INTERVAL",
	SQLTypeBlob:        "BLOB",
	SQLTypeUUID:        "UUID",
	SQLTypeJSON:        "JSON",
	SQLTypeList:        "LIST",
	SQLTypeStruct:      "STRUCT",
	SQLTypeMap:         "MAP",
	SQLTypeOther:       "OTHER",
}

func (t SQLType) String() string {
	if name, ok := sqlTypeNames[t]; ok {
		return name
	}
	return sqlTypeNames[SQLTypeUnknown]
}

// ColumnRole is the role a column plays in the synthesized cube.
type ColumnRole int

// RoleDimension is the zero value so that an unset role is never aggregated.
const (
	RoleDimension ColumnRole = iota
	RoleMeasure
)

func (r ColumnRole) String() string {
	if r == RoleMeasure {
		return "measure"
	}
	return "dimension"
}

// ColumnMetadata describes one column as reported by the source catalog.
type ColumnMetadata struct {
	Name     string
	Type     SQLType
	TypeName string // declared type as reported by the source, e.g. "VARCHAR(255)"
	Ordinal  int    // 1-based catalog position
}

// ClassifiedColumns holds column names split by role. Both slices keep the
// order in which the catalog reported the columns.
type ClassifiedColumns struct {
	Dimensions []string `json:"dimensions"`
	Measures   []string `json:"measures"`
}
