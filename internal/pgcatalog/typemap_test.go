package pgcatalog

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapType(t *testing.T) {
	tests := []struct {
		name    string
		dt      arrow.DataType
		oid     uint32
		length  int16
		byVal   bool
		align   string
		storage string
	}{
		{"bool", arrow.FixedWidthTypes.Boolean, pgtype.BoolOID, 1, true, "c", "p"},
		{"int8", arrow.PrimitiveTypes.Int8, pgtype.QCharOID, 1, true, "i", "p"},
		{"uint8", arrow.PrimitiveTypes.Uint8, pgtype.QCharOID, 1, true, "i", "p"},
		{"int16", arrow.PrimitiveTypes.Int16, pgtype.Int2OID, 2, true, "i", "p"},
		{"uint16", arrow.PrimitiveTypes.Uint16, pgtype.Int2OID, 2, true, "i", "p"},
		{"int32", arrow.PrimitiveTypes.Int32, pgtype.Int4OID, 4, true, "i", "p"},
		{"uint32", arrow.PrimitiveTypes.Uint32, pgtype.Int4OID, 4, true, "i", "p"},
		{"int64", arrow.PrimitiveTypes.Int64, pgtype.Int8OID, 8, true, "d", "p"},
		{"uint64", arrow.PrimitiveTypes.Uint64, pgtype.Int8OID, 8, true, "d", "p"},
		{"float16", arrow.FixedWidthTypes.Float16, pgtype.Float4OID, 4, true, "i", "p"},
		{"float32", arrow.PrimitiveTypes.Float32, pgtype.Float4OID, 4, true, "i", "p"},
		{"float64", arrow.PrimitiveTypes.Float64, pgtype.Float8OID, 8, true, "d", "p"},
		{"utf8", arrow.BinaryTypes.String, pgtype.TextOID, -1, false, "i", "x"},
		{"large utf8", arrow.BinaryTypes.LargeString, pgtype.TextOID, -1, false, "i", "x"},
		{"utf8 view", arrow.BinaryTypes.StringView, pgtype.TextOID, -1, false, "i", "x"},
		{"binary", arrow.BinaryTypes.Binary, pgtype.ByteaOID, -1, false, "i", "x"},
		{"fixed size binary", &arrow.FixedSizeBinaryType{ByteWidth: 16}, pgtype.ByteaOID, -1, false, "i", "p"},
		{"date32", arrow.FixedWidthTypes.Date32, pgtype.DateOID, 4, true, "i", "p"},
		{"date64", arrow.FixedWidthTypes.Date64, pgtype.DateOID, 8, true, "d", "p"},
		{"time32", arrow.FixedWidthTypes.Time32ms, pgtype.TimeOID, -1, false, "i", "p"},
		{"time64", arrow.FixedWidthTypes.Time64us, pgtype.TimeOID, -1, false, "i", "p"},
		{"timestamp", &arrow.TimestampType{Unit: arrow.Microsecond}, pgtype.TimestampOID, 8, true, "d", "p"},
		{"timestamptz", &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, pgtype.TimestamptzOID, 8, true, "d", "p"},
		{"interval", arrow.FixedWidthTypes.MonthDayNanoInterval, pgtype.IntervalOID, -1, false, "i", "p"},
		{"duration", arrow.FixedWidthTypes.Duration_s, pgtype.IntervalOID, -1, false, "i", "p"},
		{"decimal128", &arrow.Decimal128Type{Precision: 10, Scale: 2}, pgtype.NumericOID, -1, false, "i", "p"},
		{"decimal256", &arrow.Decimal256Type{Precision: 50, Scale: 0}, pgtype.NumericOID, -1, false, "i", "p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := MapType(tt.dt)
			assert.True(t, info.Mapped)
			assert.False(t, info.IsArray)
			assert.Equal(t, tt.oid, info.Oid)
			assert.Equal(t, tt.length, info.Len)
			assert.Equal(t, tt.byVal, info.ByVal)
			assert.Equal(t, tt.align, info.Align)
			assert.Equal(t, tt.storage, info.Storage)
		})
	}
}

func TestMapType_Lists(t *testing.T) {
	tests := []struct {
		name string
		dt   arrow.DataType
		oid  uint32
	}{
		{"list of int32", arrow.ListOf(arrow.PrimitiveTypes.Int32), pgtype.Int4ArrayOID},
		{"large list of text", arrow.LargeListOf(arrow.BinaryTypes.String), pgtype.TextArrayOID},
		{"fixed size list of float64", arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Float64), pgtype.Float8ArrayOID},
		{"list of int8", arrow.ListOf(arrow.PrimitiveTypes.Int8), pgtype.QCharArrayOID},
		{"nested list", arrow.ListOf(arrow.ListOf(arrow.PrimitiveTypes.Int16)), pgtype.Int2ArrayOID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := MapType(tt.dt)
			assert.True(t, info.Mapped)
			assert.True(t, info.IsArray)
			assert.Equal(t, tt.oid, info.Oid)
			assert.Equal(t, int16(-1), info.Len)
			assert.Equal(t, "p", info.Storage, "only text and variable-length binary use extended storage")
		})
	}
}

func TestMapType_Unwraps(t *testing.T) {
	dict := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: arrow.BinaryTypes.String}
	assert.Equal(t, uint32(pgtype.TextOID), MapType(dict).Oid)

	ree := arrow.RunEndEncodedOf(arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Float64)
	assert.Equal(t, uint32(pgtype.Float8OID), MapType(ree).Oid)
}

func TestMapType_UnknownFallback(t *testing.T) {
	for name, dt := range map[string]arrow.DataType{
		"nil":            nil,
		"null":           arrow.Null,
		"struct":         arrow.StructOf(arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Int32}),
		"map":            arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int32),
		"list of struct": arrow.ListOf(arrow.StructOf(arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Int32})),
	} {
		t.Run(name, func(t *testing.T) {
			info := MapType(dt)
			assert.False(t, info.Mapped)
			assert.Equal(t, uint32(pgtype.UnknownOID), info.Oid)
			assert.Equal(t, int16(-1), info.Len)
			assert.Equal(t, "i", info.Align)
			assert.Equal(t, "p", info.Storage)
		})
	}
}

func TestMapType_OidsListedInPgType(t *testing.T) {
	listed := make(map[uint32]bool)
	for _, row := range typeRows() {
		listed[row.Oid] = true
	}

	for _, dt := range []arrow.DataType{
		arrow.FixedWidthTypes.Boolean,
		arrow.PrimitiveTypes.Int8,
		arrow.PrimitiveTypes.Uint16,
		arrow.PrimitiveTypes.Int32,
		arrow.PrimitiveTypes.Uint64,
		arrow.FixedWidthTypes.Float16,
		arrow.PrimitiveTypes.Float64,
		arrow.BinaryTypes.LargeString,
		arrow.BinaryTypes.Binary,
		arrow.FixedWidthTypes.Date32,
		arrow.FixedWidthTypes.Time64ns,
		&arrow.TimestampType{Unit: arrow.Second},
		&arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "Europe/Oslo"},
		arrow.FixedWidthTypes.DayTimeInterval,
		&arrow.Decimal128Type{Precision: 38, Scale: 0},
		arrow.ListOf(arrow.FixedWidthTypes.Date32),
		arrow.ListOf(&arrow.Decimal128Type{Precision: 5, Scale: 1}),
		arrow.Null,
	} {
		oid := MapType(dt).Oid
		assert.True(t, listed[oid], "oid %d for %s is not in pg_type", oid, dt)
	}
}

func TestArrayOid(t *testing.T) {
	oid, ok := ArrayOid(pgtype.TimestamptzOID)
	assert.True(t, ok)
	assert.Equal(t, uint32(pgtype.TimestamptzArrayOID), oid)

	_, ok = ArrayOid(pgtype.UnknownOID)
	assert.False(t, ok)
}

func TestLookupType(t *testing.T) {
	row, ok := LookupType(pgtype.Int8OID)
	require.True(t, ok)
	assert.Equal(t, "int8", row.Name)
	assert.Equal(t, int16(8), row.Len)

	row, ok = LookupType(pgtype.TextArrayOID)
	require.True(t, ok)
	assert.Equal(t, "_text", row.Name)
	assert.Equal(t, uint32(pgtype.TextOID), row.Elem)

	_, ok = LookupType(999999)
	assert.False(t, ok)
}
