// Package probe periodically materializes the core pg_catalog relations and
// logs how large they are and how long the walk took.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"duck-pgcatalog/internal/service/introspection"
)

// DefaultRelations are the relations fetched on every run.
var DefaultRelations = []string{"pg_namespace", "pg_class", "pg_attribute"}

// Fetcher is implemented by *introspection.RelationService.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (*introspection.RelationData, error)
}

// Result is the outcome of probing one relation.
type Result struct {
	Relation string        `json:"relation"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Probe runs the fetches on a cron schedule.
type Probe struct {
	fetcher   Fetcher
	schedule  cron.Schedule
	spec      string
	relations []string
	timeout   time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	last []Result
}

// New parses spec as a standard five-field cron expression (descriptors
// such as "@every 5m" are accepted too).
func New(fetcher Fetcher, spec string, logger *slog.Logger) (*Probe, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse probe schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		fetcher:   fetcher,
		schedule:  schedule,
		spec:      spec,
		relations: DefaultRelations,
		timeout:   30 * time.Second,
		logger:    logger.With("component", "probe"),
	}, nil
}

// RunOnce fetches every relation in turn. A failing relation is logged and
// does not stop the others.
func (p *Probe) RunOnce(ctx context.Context) []Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]Result, 0, len(p.relations))
	for _, name := range p.relations {
		start := time.Now()
		data, err := p.fetcher.Fetch(ctx, name)
		res := Result{Relation: name, Duration: time.Since(start)}
		if err != nil {
			res.Error = err.Error()
			p.logger.Warn("catalog probe failed", "relation", name, "duration", res.Duration, "error", err)
		} else {
			res.Rows = data.RowCount
			p.logger.Info("catalog probe", "relation", name, "rows", res.Rows, "duration", res.Duration)
		}
		results = append(results, res)
	}

	p.mu.Lock()
	p.last = results
	p.mu.Unlock()
	return results
}

// Last returns the results of the most recent run, or nil before the first.
func (p *Probe) Last() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run schedules the probe and blocks until ctx is canceled. A run in
// progress when ctx ends is allowed to finish.
func (p *Probe) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(p.schedule, cron.FuncJob(func() { p.RunOnce(ctx) }))
	c.Start()
	p.logger.Info("catalog probe started", "schedule", p.spec)

	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("catalog probe stopped")
	return nil
}
