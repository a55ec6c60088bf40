package sqlrewrite

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// TableRef is a relation named in a FROM clause.
type TableRef struct {
	Catalog string
	Schema  string
	Name    string
	Alias   string
}

// RefName is the name the rest of the statement uses for the relation.
func (r TableRef) RefName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Name
}

// RelationSource returns the query standing in for ref. ok=false keeps the
// reference untouched.
type RelationSource func(ref TableRef) (query string, ok bool, err error)

// ReplaceRelations swaps every relation reference in stmt that source
// claims for a derived table over the source query, aliased to the
// reference's name so column references keep resolving. Unqualified names
// that match a CTE of the statement are left alone. It returns the replaced
// references in visit order.
func ReplaceRelations(stmt *pg_query.Node, source RelationSource) ([]TableRef, error) {
	ctes := collectCTENames(stmt)

	var (
		replaced []TableRef
		failure  error
	)
	walk(stmt, func(node *pg_query.Node) bool {
		if failure != nil {
			return false
		}
		rv, ok := node.Node.(*pg_query.Node_RangeVar)
		if !ok {
			return true
		}
		ref := TableRef{
			Catalog: rv.RangeVar.Catalogname,
			Schema:  rv.RangeVar.Schemaname,
			Name:    rv.RangeVar.Relname,
		}
		if rv.RangeVar.Alias != nil {
			ref.Alias = rv.RangeVar.Alias.Aliasname
		}
		if ref.Schema == "" && ctes[ref.Name] {
			return false
		}

		query, ok, err := source(ref)
		if err != nil {
			failure = err
			return false
		}
		if !ok {
			return false
		}
		sub, err := derivedTable(query, ref.RefName())
		if err != nil {
			failure = err
			return false
		}
		node.Node = sub
		replaced = append(replaced, ref)
		return false
	})
	if failure != nil {
		return nil, failure
	}
	return replaced, nil
}

// derivedTable parses "SELECT * FROM (query) AS alias" and lifts out the
// RangeSubselect.
func derivedTable(query, alias string) (*pg_query.Node_RangeSubselect, error) {
	wrapper := "SELECT * FROM (" + query + ") AS " + QuoteIdentifier(alias)
	result, err := pg_query.Parse(wrapper)
	if err != nil {
		return nil, fmt.Errorf("parse derived table %s: %w", alias, err)
	}
	if len(result.Stmts) != 1 {
		return nil, fmt.Errorf("derived table %s: expected one statement, got %d", alias, len(result.Stmts))
	}
	sel := result.Stmts[0].Stmt.GetSelectStmt()
	if sel == nil || len(sel.FromClause) != 1 {
		return nil, fmt.Errorf("derived table %s: unexpected wrapper shape", alias)
	}
	sub, ok := sel.FromClause[0].Node.(*pg_query.Node_RangeSubselect)
	if !ok {
		return nil, fmt.Errorf("derived table %s: unexpected wrapper shape", alias)
	}
	return sub, nil
}

func collectCTENames(stmt *pg_query.Node) map[string]bool {
	names := make(map[string]bool)
	walk(stmt, func(node *pg_query.Node) bool {
		if cte, ok := node.Node.(*pg_query.Node_CommonTableExpr); ok {
			names[cte.CommonTableExpr.Ctename] = true
		}
		return true
	})
	return names
}
