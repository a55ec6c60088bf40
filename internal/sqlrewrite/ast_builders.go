package sqlrewrite

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// MakeLiteral creates a constant node for the given Go value. String slices
// become ARRAY[...] expressions and nil becomes NULL.
func MakeLiteral(v any) (*pg_query.Node, error) {
	switch val := v.(type) {
	case nil:
		return makeNullConst(), nil
	case int:
		return makeIntegerConst(int64(val)), nil
	case int8:
		return makeIntegerConst(int64(val)), nil
	case int16:
		return makeIntegerConst(int64(val)), nil
	case int32:
		return makeIntegerConst(int64(val)), nil
	case int64:
		return makeIntegerConst(val), nil
	case uint32:
		return makeIntegerConst(int64(val)), nil
	case float32:
		return makeFloatConst(fmt.Sprintf("%g", val)), nil
	case float64:
		return makeFloatConst(fmt.Sprintf("%g", val)), nil
	case string:
		return makeStringConst(val), nil
	case bool:
		return makeBoolConst(val), nil
	case []string:
		elems := make([]*pg_query.Node, len(val))
		for i, s := range val {
			elems[i] = makeStringConst(s)
		}
		return makeArrayExpr(elems), nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

func makeIntegerConst(v int64) *pg_query.Node {
	// If value fits in int32, use Ival; otherwise use Fval (string representation)
	// to avoid silent overflow.
	if v >= -2147483648 && v <= 2147483647 {
		return &pg_query.Node{
			Node: &pg_query.Node_AConst{
				AConst: &pg_query.A_Const{
					Val: &pg_query.A_Const_Ival{
						Ival: &pg_query.Integer{Ival: int32(v)},
					},
				},
			},
		}
	}
	// Large values: represent as numeric string
	return makeFloatConst(fmt.Sprintf("%d", v))
}

func makeFloatConst(v string) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{
				Val: &pg_query.A_Const_Fval{
					Fval: &pg_query.Float{Fval: v},
				},
			},
		},
	}
}

func makeStringConst(v string) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{
				Val: &pg_query.A_Const_Sval{
					Sval: &pg_query.String{Sval: v},
				},
			},
		},
	}
}

func makeBoolConst(v bool) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{
				Val: &pg_query.A_Const_Boolval{
					Boolval: &pg_query.Boolean{Boolval: v},
				},
			},
		},
	}
}

func makeNullConst() *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{Isnull: true},
		},
	}
}

func makeArrayExpr(elems []*pg_query.Node) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AArrayExpr{
			AArrayExpr: &pg_query.A_ArrayExpr{Elements: elems},
		},
	}
}
