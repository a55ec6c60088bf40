package pgcatalog

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5/pgtype"
)

// TypeInfo describes how a native column type appears on the wire and in
// pg_attribute.
type TypeInfo struct {
	Oid     uint32
	Len     int16
	ByVal   bool
	Align   string
	Storage string
	IsArray bool
	// Mapped is false when the native type has no PostgreSQL counterpart and
	// the unknown pseudo-type was substituted.
	Mapped bool
}

var unknownType = TypeInfo{Oid: pgtype.UnknownOID, Len: -1, Align: "i", Storage: "p"}

// arrayOids maps a scalar type oid to its array type oid.
var arrayOids = map[uint32]uint32{
	pgtype.BoolOID:        pgtype.BoolArrayOID,
	pgtype.QCharOID:       pgtype.QCharArrayOID,
	pgtype.Int2OID:        pgtype.Int2ArrayOID,
	pgtype.Int4OID:        pgtype.Int4ArrayOID,
	pgtype.Int8OID:        pgtype.Int8ArrayOID,
	pgtype.Float4OID:      pgtype.Float4ArrayOID,
	pgtype.Float8OID:      pgtype.Float8ArrayOID,
	pgtype.TextOID:        pgtype.TextArrayOID,
	pgtype.VarcharOID:     pgtype.VarcharArrayOID,
	pgtype.ByteaOID:       pgtype.ByteaArrayOID,
	pgtype.DateOID:        pgtype.DateArrayOID,
	pgtype.TimeOID:        pgtype.TimeArrayOID,
	pgtype.TimestampOID:   pgtype.TimestampArrayOID,
	pgtype.TimestamptzOID: pgtype.TimestamptzArrayOID,
	pgtype.IntervalOID:    pgtype.IntervalArrayOID,
	pgtype.NumericOID:     pgtype.NumericArrayOID,
}

// ArrayOid returns the array type oid for a scalar type oid.
func ArrayOid(elem uint32) (uint32, bool) {
	oid, ok := arrayOids[elem]
	return oid, ok
}

func fixed(oid uint32, length int16, align string) TypeInfo {
	return TypeInfo{Oid: oid, Len: length, ByVal: true, Align: align, Storage: "p", Mapped: true}
}

func varlena(oid uint32, storage string) TypeInfo {
	return TypeInfo{Oid: oid, Len: -1, Align: "i", Storage: storage, Mapped: true}
}

// MapType maps a native column type to its PostgreSQL type descriptor. It is
// total: types without a counterpart map to the unknown pseudo-type.
func MapType(dt arrow.DataType) TypeInfo {
	if dt == nil {
		return unknownType
	}
	switch t := dt.(type) {
	case *arrow.DictionaryType:
		return MapType(t.ValueType)
	case *arrow.RunEndEncodedType:
		return MapType(t.Encoded())
	case arrow.ExtensionType:
		return MapType(t.StorageType())
	}

	switch dt.ID() {
	case arrow.BOOL:
		return fixed(pgtype.BoolOID, 1, "c")
	case arrow.INT8, arrow.UINT8:
		return fixed(pgtype.QCharOID, 1, "i")
	case arrow.INT16, arrow.UINT16:
		return fixed(pgtype.Int2OID, 2, "i")
	case arrow.INT32, arrow.UINT32:
		return fixed(pgtype.Int4OID, 4, "i")
	case arrow.INT64, arrow.UINT64:
		return fixed(pgtype.Int8OID, 8, "d")
	case arrow.FLOAT16, arrow.FLOAT32:
		return fixed(pgtype.Float4OID, 4, "i")
	case arrow.FLOAT64:
		return fixed(pgtype.Float8OID, 8, "d")
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return varlena(pgtype.TextOID, "x")
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.BINARY_VIEW:
		return varlena(pgtype.ByteaOID, "x")
	case arrow.FIXED_SIZE_BINARY:
		return varlena(pgtype.ByteaOID, "p")
	case arrow.DATE32:
		return fixed(pgtype.DateOID, 4, "i")
	case arrow.DATE64:
		return fixed(pgtype.DateOID, 8, "d")
	case arrow.TIME32, arrow.TIME64:
		return varlena(pgtype.TimeOID, "p")
	case arrow.TIMESTAMP:
		ts := dt.(*arrow.TimestampType)
		if ts.TimeZone != "" {
			return fixed(pgtype.TimestamptzOID, 8, "d")
		}
		return fixed(pgtype.TimestampOID, 8, "d")
	case arrow.INTERVAL_MONTHS, arrow.INTERVAL_DAY_TIME, arrow.INTERVAL_MONTH_DAY_NANO, arrow.DURATION:
		return varlena(pgtype.IntervalOID, "p")
	case arrow.DECIMAL32, arrow.DECIMAL64, arrow.DECIMAL128, arrow.DECIMAL256:
		return varlena(pgtype.NumericOID, "p")
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		return mapList(dt.(arrow.ListLikeType))
	}
	return unknownType
}

func mapList(lt arrow.ListLikeType) TypeInfo {
	elem := MapType(lt.Elem())
	if !elem.Mapped {
		return unknownType
	}
	oid := elem.Oid
	if !elem.IsArray {
		arr, ok := ArrayOid(elem.Oid)
		if !ok {
			return unknownType
		}
		oid = arr
	}
	info := varlena(oid, "p")
	info.IsArray = true
	return info
}
