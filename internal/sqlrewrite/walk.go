package sqlrewrite

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// visitFunc is called for every node before its children. Returning false
// skips the children. The visitor may replace node.Node in place.
type visitFunc func(node *pg_query.Node) bool

// walk visits every *pg_query.Node reachable from root, depth first.
func walk(root *pg_query.Node, visit visitFunc) {
	if root == nil {
		return
	}
	walkMessage(root.ProtoReflect(), visit)
}

func walkMessage(m protoreflect.Message, visit visitFunc) {
	if n, ok := m.Interface().(*pg_query.Node); ok && !visit(n) {
		return
	}
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.Kind() != protoreflect.MessageKind || fd.IsMap() {
			return true
		}
		if fd.IsList() {
			list := v.List()
			for i := 0; i < list.Len(); i++ {
				walkMessage(list.Get(i).Message(), visit)
			}
			return true
		}
		walkMessage(v.Message(), visit)
		return true
	})
}
