package catalog

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"duck-pgcatalog/internal/domain"
)

var scalarTypes = map[string]arrow.DataType{
	"boolean": arrow.FixedWidthTypes.Boolean,
	"bool":    arrow.FixedWidthTypes.Boolean,

	"tinyint":  arrow.PrimitiveTypes.Int8,
	"int1":     arrow.PrimitiveTypes.Int8,
	"\"char\"": arrow.PrimitiveTypes.Int8,

	"smallint": arrow.PrimitiveTypes.Int16,
	"int2":     arrow.PrimitiveTypes.Int16,
	"short":    arrow.PrimitiveTypes.Int16,

	"integer": arrow.PrimitiveTypes.Int32,
	"int":     arrow.PrimitiveTypes.Int32,
	"int4":    arrow.PrimitiveTypes.Int32,
	"signed":  arrow.PrimitiveTypes.Int32,

	"bigint": arrow.PrimitiveTypes.Int64,
	"int8":   arrow.PrimitiveTypes.Int64,
	"long":   arrow.PrimitiveTypes.Int64,

	"utinyint":  arrow.PrimitiveTypes.Uint8,
	"usmallint": arrow.PrimitiveTypes.Uint16,
	"uinteger":  arrow.PrimitiveTypes.Uint32,
	"ubigint":   arrow.PrimitiveTypes.Uint64,

	"hugeint":  &arrow.Decimal128Type{Precision: 38, Scale: 0},
	"uhugeint": &arrow.Decimal128Type{Precision: 38, Scale: 0},

	"real":   arrow.PrimitiveTypes.Float32,
	"float4": arrow.PrimitiveTypes.Float32,
	"float":  arrow.PrimitiveTypes.Float32,

	"double":           arrow.PrimitiveTypes.Float64,
	"double precision": arrow.PrimitiveTypes.Float64,
	"float8":           arrow.PrimitiveTypes.Float64,

	"varchar":           arrow.BinaryTypes.String,
	"character varying": arrow.BinaryTypes.String,
	"text":              arrow.BinaryTypes.String,
	"string":            arrow.BinaryTypes.String,
	"char":              arrow.BinaryTypes.String,
	"character":         arrow.BinaryTypes.String,
	"bpchar":            arrow.BinaryTypes.String,
	"name":              arrow.BinaryTypes.String,
	"uuid":              arrow.BinaryTypes.String,
	"json":              arrow.BinaryTypes.String,
	"jsonb":             arrow.BinaryTypes.String,

	"blob":   arrow.BinaryTypes.Binary,
	"bytea":  arrow.BinaryTypes.Binary,
	"binary": arrow.BinaryTypes.Binary,
	"bit":    arrow.BinaryTypes.Binary,

	"date": arrow.FixedWidthTypes.Date32,

	"time":                   arrow.FixedWidthTypes.Time64us,
	"time without time zone": arrow.FixedWidthTypes.Time64us,

	"timestamp":                   &arrow.TimestampType{Unit: arrow.Microsecond},
	"datetime":                    &arrow.TimestampType{Unit: arrow.Microsecond},
	"timestamp without time zone": &arrow.TimestampType{Unit: arrow.Microsecond},
	"timestamp_s":                 &arrow.TimestampType{Unit: arrow.Second},
	"timestamp_ms":                &arrow.TimestampType{Unit: arrow.Millisecond},
	"timestamp_ns":                &arrow.TimestampType{Unit: arrow.Nanosecond},
	"timestamptz":                 &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"},
	"timestamp with time zone":    &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"},

	"interval": arrow.FixedWidthTypes.MonthDayNanoInterval,

	"null": arrow.Null,
}

// ParseType converts a PostgreSQL or DuckDB type name into an Arrow type.
// Array forms ("int4[]", "_int4") become lists. Nested types without a
// PostgreSQL counterpart (STRUCT, MAP, UNION) become Null.
func ParseType(name string) (arrow.DataType, error) {
	n := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if n == "" {
		return nil, domain.ErrValidation("empty type name")
	}

	if strings.HasSuffix(n, "[]") {
		elem, err := ParseType(strings.TrimSuffix(n, "[]"))
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	}
	if strings.HasPrefix(n, "_") {
		elem, err := ParseType(n[1:])
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	}

	base, args := splitModifiers(n)
	switch base {
	case "struct", "map", "union", "enum":
		return arrow.Null, nil
	case "decimal", "numeric":
		return parseDecimal(args)
	}
	if dt, ok := scalarTypes[base]; ok {
		return dt, nil
	}
	return nil, domain.ErrValidation("unsupported type %q", name)
}

// splitModifiers splits "decimal(10,2)" into "decimal" and ["10", "2"].
func splitModifiers(n string) (string, []string) {
	open := strings.IndexByte(n, '(')
	if open < 0 || !strings.HasSuffix(n, ")") {
		return n, nil
	}
	base := strings.TrimSpace(n[:open])
	inner := n[open+1 : len(n)-1]
	var args []string
	for _, a := range strings.Split(inner, ",") {
		args = append(args, strings.TrimSpace(a))
	}
	return base, args
}

func parseDecimal(args []string) (arrow.DataType, error) {
	precision, scale := int64(18), int64(3)
	var err error
	switch len(args) {
	case 0:
	case 1, 2:
		if precision, err = strconv.ParseInt(args[0], 10, 32); err != nil {
			return nil, domain.ErrValidation("invalid decimal precision %q", args[0])
		}
		scale = 0
		if len(args) == 2 {
			if scale, err = strconv.ParseInt(args[1], 10, 32); err != nil {
				return nil, domain.ErrValidation("invalid decimal scale %q", args[1])
			}
		}
	default:
		return nil, domain.ErrValidation("decimal takes at most two modifiers")
	}
	if precision > 38 {
		return &arrow.Decimal256Type{Precision: int32(precision), Scale: int32(scale)}, nil
	}
	return &arrow.Decimal128Type{Precision: int32(precision), Scale: int32(scale)}, nil
}
