package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5/pgtype"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/pgcatalog"
)

type parameter struct {
	name  string
	value string
}

// sessionParameters answers SHOW for the settings clients probe on connect.
// Keys are lower case.
var sessionParameters = map[string]parameter{
	"server_version":                {"server_version", pgcatalog.ServerVersion},
	"server_version_num":            {"server_version_num", pgcatalog.ServerVersionNum},
	"server_encoding":               {"server_encoding", pgcatalog.ServerEncoding},
	"client_encoding":               {"client_encoding", pgcatalog.ServerEncoding},
	"search_path":                   {"search_path", `"$user", public`},
	"transaction_isolation":         {"transaction_isolation", "read committed"},
	"default_transaction_isolation": {"default_transaction_isolation", "read committed"},
	"transaction_read_only":         {"transaction_read_only", "off"},
	"standard_conforming_strings":   {"standard_conforming_strings", "on"},
	"datestyle":                     {"DateStyle", "ISO, MDY"},
	"intervalstyle":                 {"IntervalStyle", "postgres"},
	"integer_datetimes":             {"integer_datetimes", "on"},
	"timezone":                      {"TimeZone", "UTC"},
	"max_identifier_length":         {"max_identifier_length", "63"},
}

func showParameter(node *pg_query.Node) (*Result, bool) {
	show := node.GetVariableShowStmt()
	if show == nil {
		return nil, false
	}
	p, ok := sessionParameters[strings.ToLower(show.Name)]
	if !ok {
		return nil, false
	}
	return &Result{
		Columns: []Column{{Name: p.name, TypeOid: pgtype.TextOID}},
		Rows:    [][]any{{p.value}},
		Tag:     "SHOW",
	}, true
}

func setTag(node *pg_query.Node) string {
	if set := node.GetVariableSetStmt(); set != nil {
		switch set.Kind {
		case pg_query.VariableSetKind_VAR_RESET, pg_query.VariableSetKind_VAR_RESET_ALL:
			return "RESET"
		}
	}
	return "SET"
}

func transactionTag(node *pg_query.Node) (string, error) {
	tx := node.GetTransactionStmt()
	if tx == nil {
		return "", domain.ErrNotImplemented("unsupported transaction statement")
	}
	switch tx.Kind {
	case pg_query.TransactionStmtKind_TRANS_STMT_BEGIN, pg_query.TransactionStmtKind_TRANS_STMT_START:
		return "BEGIN", nil
	case pg_query.TransactionStmtKind_TRANS_STMT_COMMIT:
		return "COMMIT", nil
	case pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK, pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK_TO:
		return "ROLLBACK", nil
	case pg_query.TransactionStmtKind_TRANS_STMT_SAVEPOINT:
		return "SAVEPOINT", nil
	case pg_query.TransactionStmtKind_TRANS_STMT_RELEASE:
		return "RELEASE", nil
	}
	return "", domain.ErrNotImplemented("two-phase commit is not supported")
}

func sessionTag(node *pg_query.Node) string {
	switch {
	case node.GetDiscardStmt() != nil:
		return "DISCARD ALL"
	case node.GetDeallocateStmt() != nil:
		if node.GetDeallocateStmt().Name == "" {
			return "DEALLOCATE ALL"
		}
		return "DEALLOCATE"
	}
	return "OK"
}

// coerceArgs converts literal arguments to the Go types the function's
// declared Arrow argument types expect.
func coerceArgs(fn pgcatalog.ScalarFunction, args []any) ([]any, error) {
	if len(args) != len(fn.Args) {
		return args, nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		v, ok := coerce(arg, fn.Args[i].Type)
		if !ok {
			return nil, domain.ErrValidation("function %s: cannot use %v as %s for argument %s",
				fn.Name, arg, fn.Args[i].Type, fn.Args[i].Name)
		}
		out[i] = v
	}
	return out, nil
}

func coerce(v any, dt arrow.DataType) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch dt.ID() {
	case arrow.BOOL:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "t", "true", "on", "yes", "y", "1":
				return true, true
			case "f", "false", "off", "no", "n", "0":
				return false, true
			}
		}
	case arrow.INT32:
		switch n := v.(type) {
		case int64:
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return int32(n), true
			}
		case string:
			if parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 32); err == nil {
				return int32(parsed), true
			}
		}
	case arrow.STRING:
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return nil, false
}
