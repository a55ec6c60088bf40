package pgcatalog

import (
	"github.com/apache/arrow-go/v18/arrow"

	"duck-pgcatalog/internal/domain"
)

const (
	ServerVersion    = "16.1"
	ServerVersionNum = "160100"
	VersionString    = "DuckPG 0.5.1 (pg_catalog bridge), compatible with PostgreSQL 16.1"

	DefaultUserName   = "postgres"
	DefaultCatalog    = "duckdb"
	DefaultSchemaName = "public"
	ServerEncoding    = "UTF8"

	// FunctionOidBase numbers the registered functions in registry order.
	FunctionOidBase uint32 = 2200
)

// Volatility tells the host engine whether a function may be folded.
type Volatility string

const VolatilityImmutable Volatility = "immutable"

// FunctionArg is one declared input of a ScalarFunction.
type FunctionArg struct {
	Name string
	Type arrow.DataType
}

// ScalarFunction is an introspection function registered with the host
// engine and listed in pg_proc.
type ScalarFunction struct {
	Oid        uint32
	Name       string
	Args       []FunctionArg
	ReturnType arrow.DataType
	Volatility Volatility
	// Source is what pg_proc reports as prosrc.
	Source string
	// Eval receives one value per declared argument; nil is SQL NULL.
	Eval func(args []any) (any, error)
}

// ReturnOid is the wire type of the function result.
func (f ScalarFunction) ReturnOid() uint32 { return MapType(f.ReturnType).Oid }

// Call checks arity and evaluates the function. Functions are strict: a NULL
// argument yields NULL.
func (f ScalarFunction) Call(args []any) (any, error) {
	if len(args) != len(f.Args) {
		return nil, domain.ErrValidation("function %s expects %d argument(s), got %d", f.Name, len(f.Args), len(args))
	}
	for _, a := range args {
		if a == nil {
			return nil, nil
		}
	}
	return f.Eval(args)
}

// FunctionRegistry is implemented by the host engine.
type FunctionRegistry interface {
	RegisterFunction(fn ScalarFunction) error
}

// FunctionOptions carries the session identity reported by the functions.
type FunctionOptions struct {
	DatabaseName string
	UserName     string
}

func (o FunctionOptions) withDefaults() FunctionOptions {
	if o.DatabaseName == "" {
		o.DatabaseName = DefaultCatalog
	}
	if o.UserName == "" {
		o.UserName = DefaultUserName
	}
	return o
}

func constant(v string) func([]any) (any, error) {
	return func([]any) (any, error) { return v, nil }
}

// CurrentSchemas returns the search path, optionally with the implicit
// schemas appended.
func CurrentSchemas(includeImplicit bool) []string {
	schemas := []string{DefaultSchemaName}
	if includeImplicit {
		schemas = append(schemas, "information_schema", IntrospectionSchema)
	}
	return schemas
}

var textList = arrow.ListOfField(arrow.Field{Name: "schema", Type: arrow.BinaryTypes.String})

// Functions returns the introspection functions in registration order. Oids
// are assigned from FunctionOidBase in that order.
func Functions(opts FunctionOptions) []ScalarFunction {
	opts = opts.withDefaults()
	text := arrow.BinaryTypes.String

	fns := []ScalarFunction{
		{Name: "version", ReturnType: text, Source: "SELECT '" + VersionString + "'", Eval: constant(VersionString)},
		{Name: "pg_version_num", ReturnType: text, Source: "SELECT '" + ServerVersionNum + "'", Eval: constant(ServerVersionNum)},
		{Name: "current_database", ReturnType: text, Source: "SELECT '" + opts.DatabaseName + "'", Eval: constant(opts.DatabaseName)},
		{Name: "current_user", ReturnType: text, Source: "SELECT '" + opts.UserName + "'", Eval: constant(opts.UserName)},
		{Name: "session_user", ReturnType: text, Source: "SELECT '" + opts.UserName + "'", Eval: constant(opts.UserName)},
		{Name: "user", ReturnType: text, Source: "SELECT '" + opts.UserName + "'", Eval: constant(opts.UserName)},
		{Name: "current_schema", ReturnType: text, Source: "SELECT '" + DefaultSchemaName + "'", Eval: constant(DefaultSchemaName)},
		{
			Name:       "current_schemas",
			Args:       []FunctionArg{{Name: "implicit", Type: arrow.FixedWidthTypes.Boolean}},
			ReturnType: textList,
			Source:     "SELECT ARRAY['public']",
			Eval: func(args []any) (any, error) {
				implicit, ok := args[0].(bool)
				if !ok {
					return nil, domain.ErrValidation("current_schemas expects a boolean argument, got %T", args[0])
				}
				return CurrentSchemas(implicit), nil
			},
		},
		{Name: "getdatabaseencoding", ReturnType: text, Source: "SELECT '" + ServerEncoding + "'", Eval: constant(ServerEncoding)},
		{
			Name:       "pg_encoding_to_char",
			Args:       []FunctionArg{{Name: "encoding_id", Type: arrow.PrimitiveTypes.Int32}},
			ReturnType: text,
			Source:     "SELECT '" + ServerEncoding + "'",
			Eval:       constant(ServerEncoding),
		},
	}
	for i := range fns {
		fns[i].Oid = FunctionOidBase + uint32(i)
		fns[i].Volatility = VolatilityImmutable
	}
	return fns
}
