package trigger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Engine evaluates rules against the durable firing records.
type Engine struct {
	store       FiringStore
	concurrency int
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConcurrency bounds how many organizations are evaluated at once.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine backed by store. Panics on nil store.
func NewEngine(store FiringStore, opts ...EngineOption) *Engine {
	if store == nil {
		panic("trigger: firing store cannot be nil")
	}
	e := &Engine{
		store:       store,
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the firing store the engine reads.
func (e *Engine) Store() FiringStore { return e.store }

// Evaluate loads the firings of one organization and evaluates it.
func (e *Engine) Evaluate(ctx context.Context, now time.Time, s Snapshot) ([]Due, error) {
	firings, err := e.store.Firings(ctx, s.OrganizationID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	return Evaluate(now, s, NewFiringSet(firings...)), nil
}

// EvaluateAll evaluates every snapshot in parallel. The result is ordered by
// organization id, then by rule order. A store failure aborts the whole run.
func (e *Engine) EvaluateAll(ctx context.Context, now time.Time, snapshots []Snapshot) ([]Due, error) {
	results := make([][]Due, len(snapshots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, s := range snapshots {
		g.Go(func() error {
			due, err := e.Evaluate(ctx, now, s)
			if err != nil {
				return fmt.Errorf("organization %s: %w", s.OrganizationID, err)
			}
			results[i] = due
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Due
	for _, due := range results {
		all = append(all, due...)
	}
	slices.SortStableFunc(all, func(a, b Due) int {
		if c := bytes.Compare(a.OrganizationID[:], b.OrganizationID[:]); c != 0 {
			return c
		}
		return rank[a.Key] - rank[b.Key]
	})

	e.logger.DebugContext(ctx, "triggers evaluated",
		slog.Int("organizations", len(snapshots)),
		slog.Int("due", len(all)),
	)
	return all, nil
}
