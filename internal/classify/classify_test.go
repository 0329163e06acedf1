package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"duck-olap/internal/domain"
)

func TestClassify_IntegerTypesAreMeasures(t *testing.T) {
	assert.Equal(t, domain.RoleMeasure, Classify(domain.SQLTypeInteger))
	assert.Equal(t, domain.RoleMeasure, Classify(domain.SQLTypeBigInt))
}

func TestClassify_EverythingElseIsDimension(t *testing.T) {
	for typ := domain.SQLTypeUnknown; typ <= domain.SQLTypeOther; typ++ {
		if typ == domain.SQLTypeInteger || typ == domain.SQLTypeBigInt {
			continue
		}
		t.Run(typ.String(), func(t *testing.T) {
			assert.Equal(t, domain.RoleDimension, Classify(typ))
		})
	}
}

func TestClassify_UnrecognizedCodeDefaultsToDimension(t *testing.T) {
	assert.Equal(t, domain.RoleDimension, Classify(domain.SQLType(-1)))
	assert.Equal(t, domain.RoleDimension, Classify(domain.SQLType(9999)))
}

func TestSplit_PreservesCatalogOrder(t *testing.T) {
	cols := []domain.ColumnMetadata{
		{Name: "channel", Type: domain.SQLTypeVarchar},
		{Name: "added", Type: domain.SQLTypeBigInt},
		{Name: "countryName", Type: domain.SQLTypeVarchar},
		{Name: "deleted", Type: domain.SQLTypeInteger},
		{Name: "delta", Type: domain.SQLTypeDouble},
		{Name: "__time", Type: domain.SQLTypeTimestamp},
	}

	got := Split(cols)

	assert.Equal(t, []string{"channel", "countryName", "delta", "__time"}, got.Dimensions)
	assert.Equal(t, []string{"added", "deleted"}, got.Measures)
}

func TestSplit_EmptyInputYieldsEmptyLists(t *testing.T) {
	got := Split(nil)
	assert.NotNil(t, got.Dimensions)
	assert.NotNil(t, got.Measures)
	assert.Empty(t, got.Dimensions)
	assert.Empty(t, got.Measures)
}

func TestSplit_ScenarioIDAndCountry(t *testing.T) {
	got := Split([]domain.ColumnMetadata{
		{Name: "id", Type: domain.SQLTypeInteger},
		{Name: "country", Type: domain.SQLTypeVarchar},
	})
	assert.Equal(t, []string{"country"}, got.Dimensions)
	assert.Equal(t, []string{"id"}, got.Measures)
}

func TestParseTypeName(t *testing.T) {
	tests := []struct {
		input string
		want  domain.SQLType
	}{
		{"INTEGER", domain.SQLTypeInteger},
		{"integer", domain.SQLTypeInteger},
		{"int4", domain.SQLTypeInteger},
		{"INT", domain.SQLTypeInteger},
		{"BIGINT", domain.SQLTypeBigInt},
		{"int8", domain.SQLTypeBigInt},
		{"SMALLINT", domain.SQLTypeSmallInt},
		{"HUGEINT", domain.SQLTypeHugeInt},
		{"UBIGINT", domain.SQLTypeUBigInt},
		{"VARCHAR", domain.SQLTypeVarchar},
		{"VARCHAR(255)", domain.SQLTypeVarchar},
		{"character varying", domain.SQLTypeVarchar},
		{"TEXT", domain.SQLTypeVarchar},
		{"DECIMAL(10,2)", domain.SQLTypeDecimal},
		{"NUMERIC( 18 , 3 )", domain.SQLTypeDecimal},
		{"DOUBLE", domain.SQLTypeDouble},
		{"double precision", domain.SQLTypeDouble},
		{"FLOAT", domain.SQLTypeReal},
		{"DATE", domain.SQLTypeDate},
		{"TIMESTAMP", domain.SQLTypeTimestamp},
		{"timestamp with time zone", domain.SQLTypeTimestampTZ},
		{"TIMESTAMP(3) WITH TIME ZONE", domain.SQLTypeTimestampTZ},
		{"BOOLEAN", domain.SQLTypeBoolean},
		{"BLOB", domain.SQLTypeBlob},
		{"INTEGER[]", domain.SQLTypeList},
		{"_int4", domain.SQLTypeList},
		{"STRUCT(a INTEGER, b VARCHAR)", domain.SQLTypeStruct},
		{"MAP(VARCHAR, INTEGER)", domain.SQLTypeMap},
		{"UNION(num INTEGER, str VARCHAR)", domain.SQLTypeOther},
		{"", domain.SQLTypeUnknown},
		{"GEOMETRY", domain.SQLTypeUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTypeName(tc.input))
		})
	}
}

func TestFromJDBCType(t *testing.T) {
	tests := []struct {
		name string
		code int
		want domain.SQLType
	}{
		{"integer", 4, domain.SQLTypeInteger},
		{"bigint", -5, domain.SQLTypeBigInt},
		{"varchar", 12, domain.SQLTypeVarchar},
		{"timestamp", 93, domain.SQLTypeTimestamp},
		{"double", 8, domain.SQLTypeDouble},
		{"float", 6, domain.SQLTypeReal},
		{"other", 1111, domain.SQLTypeOther},
		{"unknown", 424242, domain.SQLTypeUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FromJDBCType(tc.code))
		})
	}
}

func TestClassify_DruidWikitickerTypes(t *testing.T) {
	// Druid reports LONG metrics as BIGINT and dimensions as VARCHAR.
	assert.Equal(t, domain.RoleMeasure, Classify(FromJDBCType(-5)))
	assert.Equal(t, domain.RoleDimension, Classify(FromJDBCType(12)))
	assert.Equal(t, domain.RoleDimension, Classify(FromJDBCType(93)))
}
