// Package sqlrewrite parses PostgreSQL-dialect SQL and rewrites it for the
// host engine.
//
// Statements are parsed with pg_query, mutated in place (introspection
// relations become derived tables, constant function calls become literals)
// and deparsed back to SQL text for DuckDB.
package sqlrewrite

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"duck-pgcatalog/internal/domain"
)

// StatementType represents the kind of SQL statement.
type StatementType int

// SQL statement types identified during query classification.
const (
	StmtSelect StatementType = iota
	StmtInsert
	StmtUpdate
	StmtDelete
	StmtDDL
	StmtSet
	StmtShow
	StmtTransaction
	StmtSession
	StmtOther
)

func (t StatementType) String() string {
	switch t {
	case StmtSelect:
		return "SELECT"
	case StmtInsert:
		return "INSERT"
	case StmtUpdate:
		return "UPDATE"
	case StmtDelete:
		return "DELETE"
	case StmtDDL:
		return "DDL"
	case StmtSet:
		return "SET"
	case StmtShow:
		return "SHOW"
	case StmtTransaction:
		return "TRANSACTION"
	case StmtSession:
		return "SESSION"
	default:
		return "OTHER"
	}
}

// Statement is one parsed statement of a query string.
type Statement struct {
	Node *pg_query.Node
	// SQL is the statement's own text, without the trailing semicolon.
	SQL  string
	Type StatementType
}

// Parse splits sql into its statements. A parse failure is a
// *domain.SyntaxError; empty input yields no statements.
func Parse(sql string) ([]Statement, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, domain.ErrSyntax("%v", err)
	}

	stmts := make([]Statement, 0, len(result.Stmts))
	for _, raw := range result.Stmts {
		if raw.Stmt == nil {
			continue
		}
		stmts = append(stmts, Statement{
			Node: raw.Stmt,
			SQL:  statementText(sql, raw),
			Type: classify(raw.Stmt),
		})
	}
	return stmts, nil
}

// statementText slices the statement out of the source. A zero length means
// the statement runs to the end of the input.
func statementText(sql string, raw *pg_query.RawStmt) string {
	start := int(raw.StmtLocation)
	if start < 0 || start > len(sql) {
		return strings.TrimSpace(sql)
	}
	end := len(sql)
	if raw.StmtLen > 0 && start+int(raw.StmtLen) <= len(sql) {
		end = start + int(raw.StmtLen)
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql[start:end]), ";"))
}

// Deparse renders a single statement back to SQL text.
func Deparse(node *pg_query.Node) (string, error) {
	out, err := pg_query.Deparse(&pg_query.ParseResult{
		Stmts: []*pg_query.RawStmt{{Stmt: node}},
	})
	if err != nil {
		return "", domain.ErrSyntax("deparse: %v", err)
	}
	return out, nil
}

func classify(node *pg_query.Node) StatementType {
	switch node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return StmtSelect
	case *pg_query.Node_InsertStmt:
		return StmtInsert
	case *pg_query.Node_UpdateStmt:
		return StmtUpdate
	case *pg_query.Node_DeleteStmt:
		return StmtDelete
	case *pg_query.Node_CreateStmt, *pg_query.Node_CreateSchemaStmt, *pg_query.Node_CreateTableAsStmt,
		*pg_query.Node_ViewStmt, *pg_query.Node_IndexStmt, *pg_query.Node_DropStmt,
		*pg_query.Node_AlterTableStmt, *pg_query.Node_RenameStmt:
		return StmtDDL
	case *pg_query.Node_VariableSetStmt:
		return StmtSet
	case *pg_query.Node_VariableShowStmt:
		return StmtShow
	case *pg_query.Node_TransactionStmt:
		return StmtTransaction
	case *pg_query.Node_DiscardStmt, *pg_query.Node_DeallocateStmt:
		return StmtSession
	default:
		return StmtOther
	}
}

// QuoteIdentifier unconditionally quotes a SQL identifier using double quotes.
// Internal double quotes are escaped by doubling them ("" → ").
func QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteLiteral renders s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
