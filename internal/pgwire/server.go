// Package pgwire serves the engine over the PostgreSQL frontend/backend
// protocol, so psql, JDBC and pgx clients can run catalog queries.
package pgwire

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/pgcatalog"
)

// QueryExecutor runs every statement of sqlQuery on behalf of principal.
// On failure it returns the results of the statements that completed.
type QueryExecutor func(ctx context.Context, principal string, sqlQuery string) ([]*engine.Result, error)

// startupParameters are reported with ParameterStatus after authentication.
var startupParameters = map[string]string{
	"server_version":              pgcatalog.ServerVersion,
	"server_encoding":             pgcatalog.ServerEncoding,
	"client_encoding":             pgcatalog.ServerEncoding,
	"DateStyle":                   "ISO, MDY",
	"integer_datetimes":           "on",
	"standard_conforming_strings": "on",
	"TimeZone":                    "UTC",
}

// Server is a PostgreSQL wire listener. Authentication is trust: any
// non-empty startup user is accepted.
type Server struct {
	addr   string
	logger *slog.Logger
	query  QueryExecutor

	mu            sync.Mutex
	ln            net.Listener
	conns         map[net.Conn]struct{}
	wg            sync.WaitGroup // accept loop and sessions
	queryMu       sync.Mutex
	activeQueries map[cancelKey]context.CancelFunc
}

type cancelKey struct {
	processID uint32
	secretKey uint32
}

func NewServer(addr string, logger *slog.Logger, query QueryExecutor) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if query == nil {
		query = func(_ context.Context, _ string, _ string) ([]*engine.Result, error) {
			return nil, fmt.Errorf("pgwire query executor is not configured")
		}
	}
	return &Server{
		addr:          addr,
		logger:        logger.With("component", "pgwire"),
		query:         query,
		conns:         make(map[net.Conn]struct{}),
		activeQueries: make(map[cancelKey]context.CancelFunc),
	}
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return fmt.Errorf("pgwire listener already started")
	}

	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen pgwire: %w", err)
	}
	s.ln = ln
	s.wg.Add(1)
	go s.acceptLoop(ln)
	s.logger.Info("PG-wire listener enabled", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops accepting connections and waits for open sessions to end.
// When ctx expires first, the remaining connections are closed and their
// in-flight queries canceled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	if err := ln.Close(); err != nil {
		return fmt.Errorf("close pgwire listener: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.closeConns()
		return fmt.Errorf("pgwire shutdown: %w", ctx.Err())
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		if !s.trackConn(conn) {
			_ = conn.Close()
			return
		}
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(conn)
			s.handleConn(conn)
		}()
	}
}

// trackConn registers conn as a session and reports false once shutdown has
// begun.
func (s *Server) trackConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return false
	}
	s.wg.Add(1)
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	_ = conn.Close()
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.queryMu.Lock()
	for _, cancel := range s.activeQueries {
		cancel()
	}
	s.queryMu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	backend := pgproto3.NewBackend(conn, conn)

	for {
		msg, err := backend.ReceiveStartupMessage()
		if err != nil {
			return
		}

		switch m := msg.(type) {
		case *pgproto3.SSLRequest, *pgproto3.GSSEncRequest:
			if _, err := conn.Write([]byte{'N'}); err != nil {
				return
			}
		case *pgproto3.CancelRequest:
			s.cancelQuery(cancelKey{processID: m.ProcessID, secretKey: m.SecretKey})
			return
		case *pgproto3.StartupMessage:
			principal := strings.TrimSpace(m.Parameters["user"])
			if principal == "" {
				sendFatal(backend, "28000", "startup user is required")
				return
			}
			key := newCancelKey()
			backend.Send(&pgproto3.AuthenticationOk{})
			for _, name := range sortedKeys(startupParameters) {
				backend.Send(&pgproto3.ParameterStatus{Name: name, Value: startupParameters[name]})
			}
			backend.Send(&pgproto3.BackendKeyData{ProcessID: key.processID, SecretKey: key.secretKey})
			backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
			if err := backend.Flush(); err != nil {
				return
			}
			s.logger.Debug("session started", "user", principal, "remote", conn.RemoteAddr().String())
			newSession(s, backend, principal, key).serve()
			return
		default:
			sendFatal(backend, "08P01", "unsupported startup protocol")
			return
		}
	}
}

// session holds the per-connection protocol state.
type session struct {
	srv       *Server
	backend   *pgproto3.Backend
	principal string
	key       cancelKey
	types     *pgtype.Map

	statements map[string]*preparedStatement
	portals    map[string]*portal
	// skipToSync discards extended-protocol messages after an error until
	// the next Sync.
	skipToSync bool
}

func newSession(srv *Server, backend *pgproto3.Backend, principal string, key cancelKey) *session {
	return &session{
		srv:        srv,
		backend:    backend,
		principal:  principal,
		key:        key,
		types:      pgtype.NewMap(),
		statements: make(map[string]*preparedStatement),
		portals:    make(map[string]*portal),
	}
}

func (c *session) serve() {
	for {
		msg, err := c.backend.Receive()
		if err != nil {
			return
		}

		switch m := msg.(type) {
		case *pgproto3.Query:
			c.handleSimpleQuery(m.String)
		case *pgproto3.Sync:
			c.skipToSync = false
			clear(c.portals)
			c.backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
		case *pgproto3.Flush:
		case *pgproto3.Terminate:
			return
		case *pgproto3.Parse, *pgproto3.Bind, *pgproto3.Describe, *pgproto3.Execute, *pgproto3.Close:
			if c.skipToSync {
				continue
			}
			if err := c.handleExtended(m); err != nil {
				c.sendError(err)
				c.skipToSync = true
			}
		default:
			c.sendError(domain.ErrNotImplemented("unsupported frontend message %T", msg))
			c.backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
		}

		if err := c.backend.Flush(); err != nil {
			return
		}
	}
}

func (c *session) handleSimpleQuery(query string) {
	if strings.TrimSpace(strings.Trim(strings.TrimSpace(query), ";")) == "" {
		c.backend.Send(&pgproto3.EmptyQueryResponse{})
		c.backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
		return
	}

	results, err := c.run(query)
	for _, res := range results {
		if sendErr := c.sendResult(res, nil, true); sendErr != nil {
			err = sendErr
			break
		}
	}
	if err != nil {
		c.sendError(err)
	}
	c.backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
}

// run executes query through the executor, registering it for
// cancellation under the session's backend key.
func (c *session) run(query string) ([]*engine.Result, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.srv.trackActiveQuery(c.key, cancel)
	defer c.srv.untrackActiveQuery(c.key)

	results, err := c.srv.query(ctx, c.principal, query)
	if err != nil {
		c.srv.logger.Warn("query failed", "user", c.principal, "error", err)
	}
	return results, err
}

// sendResult writes one statement result. formats are the result format
// codes requested by Bind; nil means text for every column.
func (c *session) sendResult(res *engine.Result, formats []int16, describe bool) error {
	if len(res.Columns) > 0 {
		if describe {
			c.backend.Send(rowDescription(res.Columns, formats))
		}
		for _, row := range res.Rows {
			dr, err := c.dataRow(res.Columns, formats, row)
			if err != nil {
				return err
			}
			c.backend.Send(dr)
		}
	}
	c.backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(res.Tag)})
	return nil
}

func (c *session) sendError(err error) {
	c.backend.Send(errorResponse(sqlStateForError(err), err.Error()))
}

func sendFatal(backend *pgproto3.Backend, code, message string) {
	resp := errorResponse(code, message)
	resp.Severity, resp.SeverityUnlocalized = "FATAL", "FATAL"
	backend.Send(resp)
	_ = backend.Flush()
}

func errorResponse(code, message string) *pgproto3.ErrorResponse {
	return &pgproto3.ErrorResponse{
		Severity:            "ERROR",
		SeverityUnlocalized: "ERROR",
		Code:                code,
		Message:             message,
	}
}

func (s *Server) trackActiveQuery(key cancelKey, cancel context.CancelFunc) {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()
	s.activeQueries[key] = cancel
}

func (s *Server) untrackActiveQuery(key cancelKey) {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()
	delete(s.activeQueries, key)
}

func (s *Server) cancelQuery(key cancelKey) {
	s.queryMu.Lock()
	cancel := s.activeQueries[key]
	s.queryMu.Unlock()
	if cancel != nil {
		s.logger.Info("query canceled", "pid", key.processID)
		cancel()
	}
}

func newCancelKey() cancelKey {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return cancelKey{processID: 1, secretKey: 1}
	}
	pid := binary.BigEndian.Uint32(b[:4])
	if pid == 0 {
		pid = 1
	}
	return cancelKey{processID: pid, secretKey: binary.BigEndian.Uint32(b[4:])}
}

// sqlStateForError maps domain errors to SQLSTATE codes.
func sqlStateForError(err error) string {
	if errors.Is(err, context.Canceled) {
		return "57014"
	}

	var lookup *domain.CatalogLookupError
	var syntax *domain.SyntaxError
	var accessDenied *domain.AccessDeniedError
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var notImplemented *domain.NotImplementedError

	switch {
	case errors.As(err, &lookup):
		return "42P01"
	case errors.As(err, &syntax):
		return "42601"
	case errors.As(err, &accessDenied):
		return "42501"
	case errors.As(err, &notFound):
		return "42704"
	case errors.As(err, &validation):
		return "22023"
	case errors.As(err, &conflict):
		return "23505"
	case errors.As(err, &notImplemented):
		return "0A000"
	default:
		return "XX000"
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
