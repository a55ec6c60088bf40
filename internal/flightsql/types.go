package flightsql

import (
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowflightsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/jackc/pgx/v5/pgtype"

	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/pgcatalog"
)

// arrowTypeForOid maps a result column type oid back to an Arrow type. Types
// without a direct counterpart travel as text.
func arrowTypeForOid(oid uint32) arrow.DataType {
	switch oid {
	case pgtype.BoolOID:
		return arrow.FixedWidthTypes.Boolean
	case pgtype.Int2OID:
		return arrow.PrimitiveTypes.Int16
	case pgtype.Int4OID:
		return arrow.PrimitiveTypes.Int32
	case pgtype.Int8OID:
		return arrow.PrimitiveTypes.Int64
	case pgtype.Float4OID:
		return arrow.PrimitiveTypes.Float32
	case pgtype.Float8OID:
		return arrow.PrimitiveTypes.Float64
	case pgtype.ByteaOID:
		return arrow.BinaryTypes.Binary
	case pgtype.DateOID:
		return arrow.FixedWidthTypes.Date32
	case pgtype.TimestampOID:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case pgtype.TimestamptzOID:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	}
	if t, ok := pgcatalog.LookupType(oid); ok && t.Elem != 0 {
		return arrow.ListOf(arrowTypeForOid(t.Elem))
	}
	return arrow.BinaryTypes.String
}

func typeName(oid uint32) string {
	if t, ok := pgcatalog.LookupType(oid); ok {
		return t.Name
	}
	return "unknown"
}

// schemaForResult builds the Arrow schema of a statement result. Every
// column is nullable and carries its PostgreSQL type name.
func schemaForResult(res *engine.Result) *arrow.Schema {
	fields := make([]arrow.Field, len(res.Columns))
	for i, col := range res.Columns {
		name := col.Name
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		fields[i] = arrow.Field{
			Name:     name,
			Type:     arrowTypeForOid(col.TypeOid),
			Nullable: true,
			Metadata: arrow.NewMetadata([]string{arrowflightsql.TypeNameKey}, []string{typeName(col.TypeOid)}),
		}
	}
	return arrow.NewSchema(fields, nil)
}

func recordForResult(mem memory.Allocator, schema *arrow.Schema, res *engine.Result) (arrow.Record, error) {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for r, row := range res.Rows {
		for c := range schema.Fields() {
			var v any
			if c < len(row) {
				v = row[c]
			}
			if err := appendValue(b.Field(c), v); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r+1, schema.Field(c).Name, err)
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch bb := b.(type) {
	case *array.StringBuilder:
		if s, ok := v.(string); ok {
			bb.Append(s)
		} else {
			bb.Append(fmt.Sprint(v))
		}
		return nil
	case *array.BooleanBuilder:
		if x, ok := v.(bool); ok {
			bb.Append(x)
			return nil
		}
	case *array.Int16Builder:
		if n, ok := toInt64(v); ok && n >= math.MinInt16 && n <= math.MaxInt16 {
			bb.Append(int16(n))
			return nil
		}
	case *array.Int32Builder:
		if n, ok := toInt64(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			bb.Append(int32(n))
			return nil
		}
	case *array.Int64Builder:
		if n, ok := toInt64(v); ok {
			bb.Append(n)
			return nil
		}
	case *array.Float32Builder:
		if f, ok := toFloat64(v); ok {
			bb.Append(float32(f))
			return nil
		}
	case *array.Float64Builder:
		if f, ok := toFloat64(v); ok {
			bb.Append(f)
			return nil
		}
	case *array.BinaryBuilder:
		if x, ok := v.([]byte); ok {
			bb.Append(x)
			return nil
		}
	case *array.Date32Builder:
		if t, ok := v.(time.Time); ok {
			bb.Append(arrow.Date32FromTime(t))
			return nil
		}
	case *array.TimestampBuilder:
		if t, ok := v.(time.Time); ok {
			bb.Append(arrow.Timestamp(t.UnixMicro()))
			return nil
		}
	case *array.ListBuilder:
		if items, ok := v.([]any); ok {
			bb.Append(true)
			for _, item := range items {
				if err := appendValue(bb.ValueBuilder(), item); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return fmt.Errorf("cannot store %T in a %s column", v, b.Type())
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

// tableSchema describes a walked table with the Flight SQL column metadata
// keys clients use for catalog browsing.
func tableSchema(catalog, dbSchema string, table pgcatalog.WalkedTable) *arrow.Schema {
	fields := make([]arrow.Field, len(table.Columns))
	for i, col := range table.Columns {
		info := pgcatalog.MapType(col.Type)
		precision, scale := 0, 0
		if dec, ok := col.Type.(arrow.DecimalType); ok {
			precision, scale = int(dec.GetPrecision()), int(dec.GetScale())
		}
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     col.Type,
			Nullable: col.Nullable,
			Metadata: arrow.NewMetadata(
				[]string{
					arrowflightsql.CatalogNameKey,
					arrowflightsql.SchemaNameKey,
					arrowflightsql.TableNameKey,
					arrowflightsql.TypeNameKey,
					arrowflightsql.PrecisionKey,
					arrowflightsql.ScaleKey,
					arrowflightsql.IsAutoIncrementKey,
					arrowflightsql.IsCaseSensitiveKey,
					arrowflightsql.IsReadOnlyKey,
					arrowflightsql.IsSearchableKey,
				},
				[]string{
					catalog,
					dbSchema,
					table.Name,
					typeName(info.Oid),
					fmt.Sprint(precision),
					fmt.Sprint(scale),
					"0",
					boolAsFlag(info.Oid == pgtype.TextOID || info.Oid == pgtype.VarcharOID),
					"1",
					"1",
				},
			),
		}
	}
	return arrow.NewSchema(fields, nil)
}

func boolAsFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
