package pgcatalog

import "github.com/apache/arrow-go/v18/arrow"

const PgAm = "pg_am"

// pg_am has its full column set but no rows: access methods are not modeled.
var accessMethodSchema = arrow.NewSchema([]arrow.Field{
	field("oid", int32Type),
	field("amname", utf8Type),
	field("amhandler", int32Type),
	field("amtype", utf8Type),
	field("amstrategies", int32Type),
	field("amsupport", int32Type),
	field("amcanorder", boolType),
	field("amcanorderbyop", boolType),
	field("amcanbackward", boolType),
	field("amcanunique", boolType),
	field("amcanmulticol", boolType),
	field("amoptionalkey", boolType),
	field("amsearcharray", boolType),
	field("amsearchnulls", boolType),
	field("amstorage", boolType),
	field("amclusterable", boolType),
	field("ampredlocks", boolType),
	field("amcanparallel", boolType),
	field("amcanbeginscan", boolType),
	field("amcanmarkpos", boolType),
	field("amcanfetch", boolType),
	field("amkeytype", int32Type),
}, nil)

// AccessMethodRow is one pg_am entry.
type AccessMethodRow struct {
	Oid     uint32
	Name    string
	Handler uint32
	Kind    string
}

func (r AccessMethodRow) values() []any {
	vals := []any{int32(r.Oid), r.Name, int32(r.Handler), r.Kind, int32(0), int32(0)}
	for range 15 {
		vals = append(vals, false)
	}
	return append(vals, int32(0))
}

var accessMethodRows []AccessMethodRow
