// Package feed fetches and normalizes regulatory updates from their source
// feeds. Each source is wrapped in a SourceAdapter; the Registry fans out
// fetches concurrently and collects per-source failures without aborting the
// cycle.
package feed

import (
	"context"
	"log/slog"

	"github.com/RegPulseAI/regpulse/engine/domain"
	"github.com/RegPulseAI/regpulse/pkg/fn"
)

// SourceAdapter fetches raw items from one regulatory source and returns them
// as normalized updates.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Update, error)
}

// Report is the outcome of one fetch cycle across all adapters. A source
// failure lands in Failures; it never discards the other sources' updates.
type Report struct {
	Updates   []domain.Update
	Succeeded []string // sources that fetched without error
	Failures  map[string]error
}

// Failed reports whether every adapter failed.
func (r Report) Failed(total int) bool {
	return total > 0 && len(r.Failures) == total
}

// Registry holds the configured source adapters.
type Registry struct {
	adapters []SourceAdapter
	workers  int
	log      *slog.Logger
}

// NewRegistry creates an empty registry. workers bounds concurrent fetches.
func NewRegistry(workers int, log *slog.Logger) *Registry {
	if workers <= 0 {
		workers = 4
	}
	return &Registry{workers: workers, log: log}
}

// Register adds an adapter.
func (r *Registry) Register(a SourceAdapter) {
	r.adapters = append(r.adapters, a)
}

// Adapters returns the registered adapters.
func (r *Registry) Adapters() []SourceAdapter { return r.adapters }

// DefaultRegistry builds a registry for the named sources using the default
// public endpoints. Unknown source names are logged and skipped.
func DefaultRegistry(sources []string, workers int, log *slog.Logger) *Registry {
	r := NewRegistry(workers, log)
	for _, s := range sources {
		switch domain.Source(s) {
		case domain.SourceSEC:
			r.Register(NewRSSAdapter(domain.SourceSEC, SECFeedURL))
		case domain.SourceFederalRegister:
			r.Register(NewFederalRegisterAdapter(""))
		case domain.SourceEUOfficialJournal:
			r.Register(NewRSSAdapter(domain.SourceEUOfficialJournal, EUOJFeedURL))
		default:
			log.Warn("unknown feed source, skipping", "source", s)
		}
	}
	return r
}

type fetchOutcome struct {
	name    string
	updates []domain.Update
	err     error
}

// Fetch runs the given adapters concurrently and merges the results.
// Individual adapter errors are collected into the report's Failures;
// successes are attributed per source in Succeeded.
func (r *Registry) Fetch(ctx context.Context, adapters []SourceAdapter) Report {
	results := fn.ParMapResult(adapters, r.workers, func(a SourceAdapter) fn.Result[fetchOutcome] {
		updates, err := a.Fetch(ctx)
		return fn.Ok(fetchOutcome{name: a.Name(), updates: updates, err: err})
	})

	report := Report{Failures: make(map[string]error)}
	for _, res := range results {
		out, _ := res.Unwrap()
		if out.err != nil {
			r.log.Warn("source fetch failed", "source", out.name, "error", out.err)
			report.Failures[out.name] = out.err
			continue
		}
		r.log.Debug("source fetched", "source", out.name, "count", len(out.updates))
		report.Succeeded = append(report.Succeeded, out.name)
		report.Updates = append(report.Updates, out.updates...)
	}
	return report
}

// FetchAll fetches every registered adapter.
func (r *Registry) FetchAll(ctx context.Context) Report {
	return r.Fetch(ctx, r.adapters)
}
