package sqlrewrite

import (
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Folder evaluates a call to name with constant arguments. ok=false leaves
// the call in place.
type Folder func(name string, args []any) (value any, ok bool, err error)

// sqlValueFunctions maps keyword forms to the function that answers them.
var sqlValueFunctions = map[pg_query.SQLValueFunctionOp]string{
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_USER:    "current_user",
	pg_query.SQLValueFunctionOp_SVFOP_SESSION_USER:    "session_user",
	pg_query.SQLValueFunctionOp_SVFOP_USER:            "user",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_SCHEMA:  "current_schema",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_CATALOG: "current_database",
}

// FoldConstants replaces function calls whose arguments are all constants
// with the literal fold returns. A select target that loses its call keeps
// the function name as its column name. It returns the number of folded
// calls.
func FoldConstants(stmt *pg_query.Node, fold Folder) (int, error) {
	var (
		folded  int
		failure error
	)
	walk(stmt, func(node *pg_query.Node) bool {
		if failure != nil {
			return false
		}
		call := node
		var target *pg_query.ResTarget
		switch n := node.Node.(type) {
		case *pg_query.Node_ResTarget:
			if n.ResTarget.Val == nil {
				return true
			}
			target, call = n.ResTarget, n.ResTarget.Val
		case *pg_query.Node_FuncCall, *pg_query.Node_SqlvalueFunction:
		default:
			return true
		}

		name, args, ok := callOf(call)
		if !ok {
			return true
		}
		// Arguments are constants from here on; nothing below can fold.
		value, ok, err := fold(name, args)
		if err != nil {
			failure = err
			return false
		}
		if !ok {
			return false
		}
		lit, err := MakeLiteral(value)
		if err != nil {
			failure = err
			return false
		}
		if target != nil && target.Name == "" {
			target.Name = columnName(call, name)
		}
		call.Node = lit.Node
		folded++
		return false
	})
	if failure != nil {
		return 0, failure
	}
	return folded, nil
}

// columnName is the output name PostgreSQL gives an unaliased call.
func columnName(call *pg_query.Node, fn string) string {
	if svf := call.GetSqlvalueFunction(); svf != nil && svf.Op == pg_query.SQLValueFunctionOp_SVFOP_CURRENT_CATALOG {
		return "current_catalog"
	}
	return fn
}

// callOf recognises a plain scalar call: optionally pg_catalog-qualified,
// not an aggregate or window, with constant arguments only.
func callOf(node *pg_query.Node) (string, []any, bool) {
	switch n := node.Node.(type) {
	case *pg_query.Node_SqlvalueFunction:
		name, ok := sqlValueFunctions[n.SqlvalueFunction.Op]
		return name, nil, ok
	case *pg_query.Node_FuncCall:
		fc := n.FuncCall
		if fc.AggStar || fc.AggDistinct || fc.FuncVariadic || fc.Over != nil || fc.AggFilter != nil ||
			len(fc.AggOrder) > 0 {
			return "", nil, false
		}
		name, ok := functionName(fc.Funcname)
		if !ok {
			return "", nil, false
		}
		args := make([]any, 0, len(fc.Args))
		for _, arg := range fc.Args {
			v, ok := constValue(arg)
			if !ok {
				return "", nil, false
			}
			args = append(args, v)
		}
		return name, args, true
	}
	return "", nil, false
}

func functionName(parts []*pg_query.Node) (string, bool) {
	var names []string
	for _, p := range parts {
		s, ok := p.Node.(*pg_query.Node_String_)
		if !ok {
			return "", false
		}
		names = append(names, s.String_.Sval)
	}
	switch {
	case len(names) == 1:
		return strings.ToLower(names[0]), true
	case len(names) == 2 && names[0] == "pg_catalog":
		return strings.ToLower(names[1]), true
	}
	return "", false
}

// constValue extracts the Go value of a literal argument. Casts are looked
// through; the callee coerces.
func constValue(node *pg_query.Node) (any, bool) {
	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		c := n.AConst
		if c.Isnull {
			return nil, true
		}
		switch v := c.Val.(type) {
		case *pg_query.A_Const_Ival:
			return int64(v.Ival.Ival), true
		case *pg_query.A_Const_Fval:
			f, err := strconv.ParseFloat(v.Fval.Fval, 64)
			if err != nil {
				return nil, false
			}
			return f, true
		case *pg_query.A_Const_Boolval:
			return v.Boolval.Boolval, true
		case *pg_query.A_Const_Sval:
			return v.Sval.Sval, true
		}
	case *pg_query.Node_TypeCast:
		if n.TypeCast.Arg == nil {
			return nil, false
		}
		return constValue(n.TypeCast.Arg)
	}
	return nil, false
}
