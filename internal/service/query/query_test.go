package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
)

type mockEngine struct {
	queryFn func(ctx context.Context, sqlQuery string) ([]*engine.Result, error)
	calls   []string
}

func (m *mockEngine) Query(ctx context.Context, sqlQuery string) ([]*engine.Result, error) {
	m.calls = append(m.calls, sqlQuery)
	if m.queryFn != nil {
		return m.queryFn(ctx, sqlQuery)
	}
	panic("unexpected call to mockEngine.Query")
}

func oneRow(tag string) *engine.Result {
	return &engine.Result{Columns: []engine.Column{{Name: "x"}}, Rows: [][]any{{1}}, Tag: tag}
}

func TestQueryService_Execute(t *testing.T) {
	tests := []struct {
		name       string
		sqlQuery   string
		queryFn    func(context.Context, string) ([]*engine.Result, error)
		wantErr    bool
		wantCalls  int
		wantStatus string
		wantRows   int
	}{
		{
			name:     "empty SQL returns validation error",
			sqlQuery: "   \t\n ",
			wantErr:  true,
		},
		{
			name:     "results pass through",
			sqlQuery: "SELECT 1; SELECT 2",
			queryFn: func(context.Context, string) ([]*engine.Result, error) {
				return []*engine.Result{oneRow("SELECT 1"), oneRow("SELECT 1")}, nil
			},
			wantCalls:  1,
			wantStatus: StatusOK,
			wantRows:   2,
		},
		{
			name:     "engine error keeps completed results",
			sqlQuery: "SELECT 1; SELECT * FROM missing",
			queryFn: func(context.Context, string) ([]*engine.Result, error) {
				return []*engine.Result{oneRow("SELECT 1")}, fmt.Errorf("table missing does not exist")
			},
			wantErr:    true,
			wantCalls:  1,
			wantStatus: StatusFailed,
			wantRows:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &mockEngine{queryFn: tt.queryFn}
			svc := NewQueryService(eng, nil, 10)

			results, err := svc.Execute(context.Background(), "alice", tt.sqlQuery)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, eng.calls, tt.wantCalls)

			history := svc.History(0)
			if tt.wantCalls == 0 {
				var validation *domain.ValidationError
				assert.ErrorAs(t, err, &validation)
				assert.Empty(t, history, "validation failures are not recorded")
				return
			}
			require.Len(t, history, 1)
			assert.Equal(t, "alice", history[0].Principal)
			assert.Equal(t, tt.sqlQuery, history[0].SQL)
			assert.Equal(t, tt.wantStatus, history[0].Status)
			assert.Equal(t, tt.wantRows, history[0].Rows)
			assert.Equal(t, len(results), history[0].Statements)
			if tt.wantErr {
				assert.NotEmpty(t, history[0].Error)
			}
		})
	}
}

func TestQueryService_HistoryWrapsNewestFirst(t *testing.T) {
	eng := &mockEngine{queryFn: func(context.Context, string) ([]*engine.Result, error) {
		return nil, nil
	}}
	svc := NewQueryService(eng, nil, 3)

	for i := 1; i <= 5; i++ {
		_, err := svc.Execute(context.Background(), "bob", fmt.Sprintf("SELECT %d", i))
		require.NoError(t, err)
	}

	history := svc.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, "SELECT 5", history[0].SQL)
	assert.Equal(t, "SELECT 4", history[1].SQL)
	assert.Equal(t, "SELECT 3", history[2].SQL)

	limited := svc.History(2)
	require.Len(t, limited, 2)
	assert.Equal(t, "SELECT 5", limited[0].SQL)
}

func TestQueryService_HistoryBeforeWrap(t *testing.T) {
	eng := &mockEngine{queryFn: func(context.Context, string) ([]*engine.Result, error) {
		return nil, nil
	}}
	svc := NewQueryService(eng, nil, 0)
	assert.Empty(t, svc.History(5))

	_, err := svc.Execute(context.Background(), "bob", "SELECT 1")
	require.NoError(t, err)
	assert.Len(t, svc.History(5), 1)
}
