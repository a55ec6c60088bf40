// Package engine runs PostgreSQL-dialect queries on DuckDB with the
// pg_catalog relations and introspection functions spliced in.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"duck-pgcatalog/internal/catalog/duckdbcat"
	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/pgcatalog"
	"duck-pgcatalog/internal/sqlrewrite"
)

// Compile-time check.
var _ pgcatalog.FunctionRegistry = (*Engine)(nil)

// Column describes one result column.
type Column struct {
	Name    string `json:"name"`
	TypeOid uint32 `json:"type_oid"`
}

// Result is the outcome of one statement.
type Result struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
	// Tag is the PostgreSQL command tag, e.g. "SELECT 3" or "SET".
	Tag string `json:"tag"`
}

// Engine executes queries against DuckDB. Relation references to pg_catalog
// are materialized from the provider and calls to registered immutable
// functions are folded into literals before DuckDB sees the statement.
type Engine struct {
	db     *sql.DB
	logger *slog.Logger

	mu        sync.RWMutex
	provider  *pgcatalog.Provider
	functions map[string]pgcatalog.ScalarFunction
	order     []string
}

// New creates an Engine over db.
func New(db *sql.DB, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:        db,
		logger:    logger.With("component", "engine"),
		functions: make(map[string]pgcatalog.ScalarFunction),
	}
}

// SetProvider attaches the pg_catalog provider.
func (e *Engine) SetProvider(p *pgcatalog.Provider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.provider = p
}

// RegisterFunction makes fn available for constant folding. Names are
// unique.
func (e *Engine) RegisterFunction(fn pgcatalog.ScalarFunction) error {
	name := strings.ToLower(fn.Name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.functions[name]; ok {
		return domain.ErrConflict("function %q already registered", fn.Name)
	}
	e.functions[name] = fn
	e.order = append(e.order, name)
	return nil
}

// Functions returns the registered functions in registration order.
func (e *Engine) Functions() []pgcatalog.ScalarFunction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fns := make([]pgcatalog.ScalarFunction, len(e.order))
	for i, name := range e.order {
		fns[i] = e.functions[name]
	}
	return fns
}

// Query runs every statement of sqlQuery in order and returns one result
// per statement. On failure the results of the statements that already ran
// are returned with the error. Text pg_query cannot parse is handed to
// DuckDB untouched.
func (e *Engine) Query(ctx context.Context, sqlQuery string) ([]*Result, error) {
	stmts, err := sqlrewrite.Parse(sqlQuery)
	if err != nil {
		var syntaxErr *domain.SyntaxError
		if !errors.As(err, &syntaxErr) {
			return nil, err
		}
		e.logger.Debug("passing unparsed statement through", "error", err)
		res, err := e.run(ctx, sqlQuery, sqlrewrite.Statement{Type: sqlrewrite.StmtOther})
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	}

	results := make([]*Result, 0, len(stmts))
	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.execute(ctx, stmt)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) execute(ctx context.Context, stmt sqlrewrite.Statement) (*Result, error) {
	switch stmt.Type {
	case sqlrewrite.StmtSet:
		return &Result{Tag: setTag(stmt.Node)}, nil
	case sqlrewrite.StmtTransaction:
		tag, err := transactionTag(stmt.Node)
		if err != nil {
			return nil, err
		}
		return &Result{Tag: tag}, nil
	case sqlrewrite.StmtSession:
		return &Result{Tag: sessionTag(stmt.Node)}, nil
	case sqlrewrite.StmtShow:
		if res, ok := showParameter(stmt.Node); ok {
			return res, nil
		}
		return e.run(ctx, stmt.SQL, stmt)
	}

	query, err := e.rewrite(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, query, stmt)
}

// rewrite splices the provider relations and folds constant calls. A
// statement that needs neither keeps its original text.
func (e *Engine) rewrite(ctx context.Context, stmt sqlrewrite.Statement) (string, error) {
	var records []releaser
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	refs, err := sqlrewrite.ReplaceRelations(stmt.Node, func(ref sqlrewrite.TableRef) (string, bool, error) {
		rel, ok := e.relation(ref)
		if !ok {
			return "", false, nil
		}
		rec, err := rel.Fetch(ctx)
		if err != nil {
			return "", false, err
		}
		records = append(records, rec)
		query, err := materializeRecord(rec)
		if err != nil {
			return "", false, err
		}
		return query, true, nil
	})
	if err != nil {
		return "", err
	}

	folded, err := sqlrewrite.FoldConstants(stmt.Node, e.fold)
	if err != nil {
		return "", err
	}
	if len(refs) == 0 && folded == 0 {
		return stmt.SQL, nil
	}

	out, err := sqlrewrite.Deparse(stmt.Node)
	if err != nil {
		return "", err
	}
	e.logger.Debug("rewrote statement", "relations", len(refs), "folded", folded)
	return out, nil
}

type releaser interface{ Release() }

func (e *Engine) relation(ref sqlrewrite.TableRef) (pgcatalog.Relation, bool) {
	if ref.Schema != "" && ref.Schema != pgcatalog.IntrospectionSchema {
		return nil, false
	}
	e.mu.RLock()
	p := e.provider
	e.mu.RUnlock()
	if p == nil {
		return nil, false
	}
	return p.Relation(ref.Name)
}

// fold evaluates registered immutable functions for FoldConstants.
func (e *Engine) fold(name string, args []any) (any, bool, error) {
	e.mu.RLock()
	fn, ok := e.functions[name]
	e.mu.RUnlock()
	if !ok || fn.Volatility != pgcatalog.VolatilityImmutable {
		return nil, false, nil
	}
	coerced, err := coerceArgs(fn, args)
	if err != nil {
		return nil, false, err
	}
	v, err := fn.Call(coerced)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// run executes query on DuckDB and collects the full result.
func (e *Engine) run(ctx context.Context, query string, stmt sqlrewrite.Statement) (*Result, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	res := &Result{Columns: make([]Column, len(colTypes))}
	for i, ct := range colTypes {
		res.Columns[i] = Column{
			Name:    ct.Name(),
			TypeOid: pgcatalog.MapType(duckdbcat.ArrowType(ct.DatabaseTypeName())).Oid,
		}
	}

	for rows.Next() {
		vals := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	res.Tag = commandTag(stmt, res)
	return res, nil
}

// commandTag derives the PostgreSQL command tag. DuckDB reports affected
// row counts of DML as a single "Count" row, which is folded into the tag.
func commandTag(stmt sqlrewrite.Statement, res *Result) string {
	switch stmt.Type {
	case sqlrewrite.StmtInsert, sqlrewrite.StmtUpdate, sqlrewrite.StmtDelete:
		n := affectedRows(res)
		res.Columns, res.Rows = nil, nil
		if stmt.Type == sqlrewrite.StmtInsert {
			return fmt.Sprintf("INSERT 0 %d", n)
		}
		return fmt.Sprintf("%s %d", stmt.Type, n)
	case sqlrewrite.StmtDDL:
		res.Columns, res.Rows = nil, nil
		return ddlTag(stmt.Node)
	}
	if len(res.Columns) == 0 {
		return "OK"
	}
	return fmt.Sprintf("SELECT %d", len(res.Rows))
}

func affectedRows(res *Result) int64 {
	if len(res.Rows) != 1 || len(res.Rows[0]) != 1 {
		return 0
	}
	switch n := res.Rows[0][0].(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	}
	return 0
}

func ddlTag(node *pg_query.Node) string {
	switch n := node.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return "CREATE TABLE"
	case *pg_query.Node_CreateSchemaStmt:
		return "CREATE SCHEMA"
	case *pg_query.Node_ViewStmt:
		return "CREATE VIEW"
	case *pg_query.Node_CreateTableAsStmt:
		return "CREATE TABLE AS"
	case *pg_query.Node_IndexStmt:
		return "CREATE INDEX"
	case *pg_query.Node_DropStmt:
		switch n.DropStmt.RemoveType {
		case pg_query.ObjectType_OBJECT_TABLE:
			return "DROP TABLE"
		case pg_query.ObjectType_OBJECT_VIEW:
			return "DROP VIEW"
		case pg_query.ObjectType_OBJECT_SCHEMA:
			return "DROP SCHEMA"
		case pg_query.ObjectType_OBJECT_INDEX:
			return "DROP INDEX"
		}
		return "DROP"
	case *pg_query.Node_AlterTableStmt, *pg_query.Node_RenameStmt:
		return "ALTER TABLE"
	}
	return "OK"
}
