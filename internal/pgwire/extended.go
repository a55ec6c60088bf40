package pgwire

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/sqlrewrite"
)

type preparedStatement struct {
	query     string
	paramOIDs []uint32
	// returnsRows marks statements Describe may run to learn their columns.
	returnsRows bool
}

type portal struct {
	stmt    *preparedStatement
	query   string
	formats []int16
	// results holds the outcome of a Describe that had to run the query, so
	// the following Execute does not run it again.
	results []*engine.Result
}

func (c *session) handleExtended(msg pgproto3.FrontendMessage) error {
	switch m := msg.(type) {
	case *pgproto3.Parse:
		return c.handleParse(m)
	case *pgproto3.Bind:
		return c.handleBind(m)
	case *pgproto3.Describe:
		return c.handleDescribe(m)
	case *pgproto3.Execute:
		return c.handleExecute(m)
	case *pgproto3.Close:
		return c.handleClose(m)
	}
	return domain.ErrNotImplemented("unsupported frontend message %T", msg)
}

func (c *session) handleParse(m *pgproto3.Parse) error {
	if _, exists := c.statements[m.Name]; exists && m.Name != "" {
		return domain.ErrConflict("prepared statement %q already exists", m.Name)
	}

	stmt := &preparedStatement{query: m.Query}
	stmts, err := sqlrewrite.Parse(m.Query)
	switch {
	case err != nil:
		// DuckDB-only syntax still executes, but is never run by Describe.
	case len(stmts) > 1:
		return domain.ErrSyntax("cannot insert multiple commands into a prepared statement")
	case len(stmts) == 1:
		switch stmts[0].Type {
		case sqlrewrite.StmtSelect, sqlrewrite.StmtShow:
			stmt.returnsRows = true
		}
	default:
		stmt.query = ""
	}

	stmt.paramOIDs = make([]uint32, max(paramCount(m.Query), len(m.ParameterOIDs)))
	copy(stmt.paramOIDs, m.ParameterOIDs)
	for i, oid := range stmt.paramOIDs {
		if oid == 0 {
			stmt.paramOIDs[i] = pgtype.TextOID
		}
	}

	c.statements[m.Name] = stmt
	c.backend.Send(&pgproto3.ParseComplete{})
	return nil
}

func (c *session) handleBind(m *pgproto3.Bind) error {
	stmt, ok := c.statements[m.PreparedStatement]
	if !ok {
		return domain.ErrNotFound("prepared statement %q does not exist", m.PreparedStatement)
	}
	if _, exists := c.portals[m.DestinationPortal]; exists && m.DestinationPortal != "" {
		return domain.ErrConflict("portal %q already exists", m.DestinationPortal)
	}
	if len(m.Parameters) != len(stmt.paramOIDs) {
		return domain.ErrValidation("bind message supplies %d parameters, but prepared statement %q requires %d",
			len(m.Parameters), m.PreparedStatement, len(stmt.paramOIDs))
	}

	params, err := c.decodeParams(stmt.paramOIDs, m.ParameterFormatCodes, m.Parameters)
	if err != nil {
		return err
	}
	query, err := substituteParams(stmt.query, params)
	if err != nil {
		return err
	}

	c.portals[m.DestinationPortal] = &portal{
		stmt:    stmt,
		query:   query,
		formats: append([]int16(nil), m.ResultFormatCodes...),
	}
	c.backend.Send(&pgproto3.BindComplete{})
	return nil
}

func (c *session) handleDescribe(m *pgproto3.Describe) error {
	switch m.ObjectType {
	case 'S':
		stmt, ok := c.statements[m.Name]
		if !ok {
			return domain.ErrNotFound("prepared statement %q does not exist", m.Name)
		}
		c.backend.Send(&pgproto3.ParameterDescription{ParameterOIDs: stmt.paramOIDs})
		if !stmt.returnsRows {
			c.backend.Send(&pgproto3.NoData{})
			return nil
		}
		nulls := make([]string, len(stmt.paramOIDs))
		for i := range nulls {
			nulls[i] = "NULL"
		}
		query, err := substituteParams(stmt.query, nulls)
		if err != nil {
			return err
		}
		results, err := c.runOne(query)
		if err != nil {
			return err
		}
		c.describeResult(results, nil)
		return nil
	case 'P':
		p, ok := c.portals[m.Name]
		if !ok {
			return domain.ErrNotFound("portal %q does not exist", m.Name)
		}
		if !p.stmt.returnsRows {
			c.backend.Send(&pgproto3.NoData{})
			return nil
		}
		if p.results == nil {
			results, err := c.runOne(p.query)
			if err != nil {
				return err
			}
			p.results = results
		}
		c.describeResult(p.results, p.formats)
		return nil
	}
	return domain.ErrValidation("invalid Describe target %q", m.ObjectType)
}

func (c *session) describeResult(results []*engine.Result, formats []int16) {
	if len(results) == 0 || len(results[0].Columns) == 0 {
		c.backend.Send(&pgproto3.NoData{})
		return
	}
	c.backend.Send(rowDescription(results[0].Columns, formats))
}

func (c *session) handleExecute(m *pgproto3.Execute) error {
	p, ok := c.portals[m.Portal]
	if !ok {
		return domain.ErrNotFound("portal %q does not exist", m.Portal)
	}
	if strings.TrimSpace(p.query) == "" {
		c.backend.Send(&pgproto3.EmptyQueryResponse{})
		return nil
	}

	results := p.results
	p.results = nil
	if results == nil {
		var err error
		if results, err = c.runOne(p.query); err != nil {
			return err
		}
	}
	if len(results) == 0 {
		c.backend.Send(&pgproto3.EmptyQueryResponse{})
		return nil
	}
	return c.sendResult(results[0], p.formats, false)
}

func (c *session) handleClose(m *pgproto3.Close) error {
	switch m.ObjectType {
	case 'S':
		delete(c.statements, m.Name)
	case 'P':
		delete(c.portals, m.Name)
	default:
		return domain.ErrValidation("invalid Close target %q", m.ObjectType)
	}
	c.backend.Send(&pgproto3.CloseComplete{})
	return nil
}

// runOne runs a single-statement query of the extended protocol.
func (c *session) runOne(query string) ([]*engine.Result, error) {
	results, err := c.run(query)
	if err != nil {
		return nil, err
	}
	if len(results) > 1 {
		return nil, fmt.Errorf("prepared statement produced %d results", len(results))
	}
	return results, nil
}
