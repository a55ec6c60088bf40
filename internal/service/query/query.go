// Package query runs SQL for the HTTP API, the CLI and the wire listeners and
// keeps a short in-memory history of what ran.
package query

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
)

// Engine is implemented by *engine.Engine.
type Engine interface {
	Query(ctx context.Context, sqlQuery string) ([]*engine.Result, error)
}

const defaultHistorySize = 100

// Status values recorded in the history.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// HistoryEntry records one Execute call.
type HistoryEntry struct {
	Principal  string    `json:"principal"`
	SQL        string    `json:"sql"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Statements int       `json:"statements"`
	Rows       int       `json:"rows"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
}

// QueryService wraps the engine and records every execution.
//
//nolint:revive // Name chosen for clarity across package boundaries
type QueryService struct {
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	history []HistoryEntry
	size    int
	next    int
	full    bool
}

// NewQueryService creates a new QueryService. historySize <= 0 keeps the
// last 100 executions.
func NewQueryService(eng Engine, logger *slog.Logger, historySize int) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &QueryService{
		engine:  eng,
		logger:  logger.With("component", "query"),
		history: make([]HistoryEntry, historySize),
		size:    historySize,
	}
}

// Execute runs sqlQuery as principal. Results of the statements that ran
// before a failure are returned with the error.
func (s *QueryService) Execute(ctx context.Context, principal, sqlQuery string) ([]*engine.Result, error) {
	if strings.TrimSpace(sqlQuery) == "" {
		return nil, domain.ErrValidation("sql query is required")
	}

	start := time.Now()
	results, err := s.engine.Query(ctx, sqlQuery)
	duration := time.Since(start)

	entry := HistoryEntry{
		Principal:  principal,
		SQL:        sqlQuery,
		Status:     StatusOK,
		Statements: len(results),
		DurationMs: duration.Milliseconds(),
		StartedAt:  start.UTC(),
	}
	for _, res := range results {
		entry.Rows += len(res.Rows)
	}
	if err != nil {
		entry.Status = StatusFailed
		entry.Error = err.Error()
	}
	s.record(entry)

	s.logger.Debug("query executed", "principal", principal, "statements", entry.Statements, "rows", entry.Rows, "duration", duration, "status", entry.Status)
	return results, err
}

func (s *QueryService) record(entry HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[s.next] = entry
	s.next = (s.next + 1) % s.size
	if s.next == 0 {
		s.full = true
	}
}

// History returns up to limit entries, newest first. limit <= 0 returns
// everything retained.
func (s *QueryService) History(limit int) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.next
	if s.full {
		count = s.size
	}
	if limit <= 0 || limit > count {
		limit = count
	}
	out := make([]HistoryEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, s.history[(s.next-i+s.size)%s.size])
	}
	return out
}
