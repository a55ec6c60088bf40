package pgcatalog

const (
	// RelationOidBase seeds the numbering shared by namespaces, classes and
	// attributes discovered in the catalog.
	RelationOidBase uint32 = 10000
	// DatabaseOidBase seeds the numbering of pg_database rows.
	DatabaseOidBase uint32 = 16384
	// DatabaseOidSpan is the width of the block reserved for database oids.
	// The relation counter jumps over it.
	DatabaseOidSpan uint32 = 1024

	PgCatalogNamespaceOid         uint32 = 11
	InformationSchemaNamespaceOid uint32 = 12
	PublicNamespaceOid            uint32 = 2200

	// BootstrapSuperuserOid owns every fixed namespace, type and function.
	BootstrapSuperuserOid int32 = 10
)

// systemNamespaces are emitted by pg_namespace before any discovered schema,
// in this order, and never receive a dynamic oid.
var systemNamespaces = []struct {
	name string
	oid  uint32
}{
	{name: IntrospectionSchema, oid: PgCatalogNamespaceOid},
	{name: "public", oid: PublicNamespaceOid},
	{name: "information_schema", oid: InformationSchemaNamespaceOid},
}

func systemNamespaceOid(name string) (uint32, bool) {
	for _, ns := range systemNamespaces {
		if ns.name == name {
			return ns.oid, true
		}
	}
	return 0, false
}

// OidAssigner hands out increasing oids from a base, skipping reserved values.
// One assigner serves exactly one relation fetch.
type OidAssigner struct {
	next     uint32
	reserved func(uint32) bool
}

// NewOidAssigner returns an assigner whose first oid is base.
func NewOidAssigner(base uint32) *OidAssigner {
	return &OidAssigner{next: base, reserved: func(uint32) bool { return false }}
}

// newRelationOidAssigner returns the assigner used for namespace, class and
// attribute numbering. It never yields a fixed namespace oid or an oid from
// the database block.
func newRelationOidAssigner() *OidAssigner {
	a := NewOidAssigner(RelationOidBase)
	a.reserved = func(oid uint32) bool {
		if oid >= DatabaseOidBase && oid < DatabaseOidBase+DatabaseOidSpan {
			return true
		}
		_, fixed := fixedNamespaceOids[oid]
		return fixed
	}
	return a
}

var fixedNamespaceOids = map[uint32]struct{}{
	PgCatalogNamespaceOid:         {},
	InformationSchemaNamespaceOid: {},
	PublicNamespaceOid:            {},
}

// Next returns the next unreserved oid.
func (a *OidAssigner) Next() uint32 {
	for a.reserved(a.next) {
		a.next++
	}
	oid := a.next
	a.next++
	return oid
}

// plannedTable is a walked table with its class oid.
type plannedTable struct {
	WalkedTable
	Oid uint32
}

// plannedSchema is a walked schema with its namespace oid and planned tables.
type plannedSchema struct {
	Catalog string
	Name    string
	Oid     uint32
	System  bool
	Tables  []plannedTable
}

// assignOids replays a walk through a fresh relation assigner. A schema
// consumes one oid before its tables consume one each; schemas that map onto
// a fixed system namespace keep the fixed oid and consume nothing.
func assignOids(schemas []WalkedSchema) []plannedSchema {
	assigner := newRelationOidAssigner()
	planned := make([]plannedSchema, 0, len(schemas))
	for _, s := range schemas {
		ps := plannedSchema{Catalog: s.Catalog, Name: s.Name, Oid: s.SystemOid, System: s.SystemOid != 0}
		if !ps.System {
			ps.Oid = assigner.Next()
		}
		ps.Tables = make([]plannedTable, 0, len(s.Tables))
		for _, t := range s.Tables {
			ps.Tables = append(ps.Tables, plannedTable{WalkedTable: t, Oid: assigner.Next()})
		}
		planned = append(planned, ps)
	}
	return planned
}
