// Package monitor drives the recurring fetch→dedup→score→publish cycle.
// One cycle is active at a time; a tick that lands while a cycle is running
// is skipped and logged.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RegPulseAI/regpulse/engine/dedup"
	"github.com/RegPulseAI/regpulse/engine/domain"
	"github.com/RegPulseAI/regpulse/engine/feed"
	"github.com/RegPulseAI/regpulse/engine/score"
	"github.com/RegPulseAI/regpulse/pkg/fn"
	"github.com/RegPulseAI/regpulse/pkg/metrics"
)

// Phase labels the stage a cycle is in.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseScoring    Phase = "scoring"
	PhasePublishing Phase = "publishing"
)

// sourceState tracks per-source failure backoff. A source inside its backoff
// window is skipped for the cycle without blocking the others.
type sourceState struct {
	attempts     int
	nextEligible time.Time
	lastSuccess  time.Time
}

// CycleStats summarizes one completed cycle.
type CycleStats struct {
	Fetched   int
	New       int
	Published int
	Skipped   []string         // sources inside their backoff window
	Failures  map[string]error // sources that failed this cycle
}

// Options configures the monitor. Fetch concurrency is bounded by the feed
// registry, not here.
type Options struct {
	Interval    time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Monitor owns the monitoring loop state.
type Monitor struct {
	registry *feed.Registry
	store    *dedup.Store
	scorer   *score.Scorer
	profile  domain.BusinessProfile
	sinks    []Sink
	opts     Options
	log      *slog.Logger
	now      func() time.Time // injectable for tests

	inFlight atomic.Bool
	phase    atomic.Value // Phase

	mu     sync.Mutex
	states map[string]*sourceState

	cyclesRun     *metrics.Counter
	cyclesSkipped *metrics.Counter
	fetched       *metrics.Counter
	invalid       *metrics.Counter
	newUpdates    *metrics.Counter
	published     *metrics.Counter
	reg           *metrics.Registry
}

// New creates a monitor.
func New(registry *feed.Registry, store *dedup.Store, scorer *score.Scorer,
	profile domain.BusinessProfile, sinks []Sink, opts Options,
	reg *metrics.Registry, log *slog.Logger) *Monitor {

	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Minute
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = time.Hour
	}

	m := &Monitor{
		registry: registry,
		store:    store,
		scorer:   scorer,
		profile:  profile,
		sinks:    sinks,
		opts:     opts,
		log:      log,
		now:      time.Now,
		states:   make(map[string]*sourceState),
		reg:      reg,

		cyclesRun:     reg.Counter("monitor_cycles_total", "Completed monitor cycles"),
		cyclesSkipped: reg.Counter("monitor_cycles_skipped_total", "Ticks skipped due to an in-flight cycle"),
		fetched:       reg.Counter("monitor_updates_fetched_total", "Updates fetched across all sources"),
		invalid:       reg.Counter("monitor_updates_invalid_total", "Fetched updates dropped by validation"),
		newUpdates:    reg.Counter("monitor_updates_new_total", "Updates passing the novelty check"),
		published:     reg.Counter("monitor_updates_published_total", "Scored updates handed to sinks"),
	}
	m.phase.Store(PhaseIdle)
	return m
}

// Phase returns the current cycle phase.
func (m *Monitor) Phase() Phase {
	return m.phase.Load().(Phase)
}

// Run ticks until ctx is cancelled. The first cycle starts immediately.
func (m *Monitor) Run(ctx context.Context) {
	m.tick(ctx)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if !m.inFlight.CompareAndSwap(false, true) {
		m.cyclesSkipped.Inc()
		m.log.Warn("cycle still in flight, skipping tick")
		return
	}
	defer m.inFlight.Store(false)
	stats := m.RunCycle(ctx)
	m.log.Info("cycle complete",
		"fetched", stats.Fetched, "new", stats.New,
		"published", stats.Published, "failures", len(stats.Failures))
}

// RunCycle executes one fetch→score→publish cycle. Fetching honors ctx;
// scoring and publishing of already-fetched updates run to completion even if
// ctx is cancelled mid-cycle, so no update is recorded but left unscored.
func (m *Monitor) RunCycle(ctx context.Context) CycleStats {
	stats := CycleStats{Failures: make(map[string]error)}
	now := m.now()

	m.phase.Store(PhaseFetching)
	defer m.phase.Store(PhaseIdle)

	m.mu.Lock()
	eligible := fn.Filter(m.registry.Adapters(), func(a feed.SourceAdapter) bool {
		if now.Before(m.stateFor(a.Name()).nextEligible) {
			stats.Skipped = append(stats.Skipped, a.Name())
			return false
		}
		return true
	})
	m.mu.Unlock()
	if len(stats.Skipped) > 0 {
		m.log.Debug("sources in backoff", "sources", stats.Skipped)
	}

	report := m.registry.Fetch(ctx, eligible)
	for name, err := range report.Failures {
		stats.Failures[name] = err
		m.noteFailure(name, now)
		m.reg.Counter(metrics.WithLabels("monitor_source_failures_total", "source", name),
			"Per-source fetch failures").Inc()
	}
	for _, name := range report.Succeeded {
		m.noteSuccess(name, now)
	}
	updates := report.Updates
	stats.Fetched = len(updates)
	m.fetched.Add(int64(len(updates)))

	// Shield scoring and publishing from cancellation: fetched work is
	// finished, not dropped half-recorded.
	cycleCtx := context.WithoutCancel(ctx)

	m.phase.Store(PhaseScoring)
	var scored []dedup.ScoredUpdate
	for _, u := range updates {
		if err := domain.ValidateUpdate(u); err != nil {
			m.log.Warn("dropping invalid update", "source", u.Source, "error", err)
			m.invalid.Inc()
			continue
		}
		isNew, err := m.store.CheckAndRecord(cycleCtx, u)
		if err != nil {
			m.log.Error("dedup check failed", "update", u.ID, "error", err)
			continue
		}
		if !isNew {
			continue
		}
		imp := m.scorer.Score(u, m.profile)
		if err := m.store.SaveImpact(cycleCtx, imp); err != nil {
			m.log.Error("saving impact failed", "update", u.ID, "error", err)
			continue
		}
		scored = append(scored, dedup.ScoredUpdate{Update: u, Impact: imp})
	}
	stats.New = len(scored)
	m.newUpdates.Add(int64(len(scored)))

	m.phase.Store(PhasePublishing)
	if len(scored) > 0 {
		for _, sink := range m.sinks {
			if err := sink.Publish(cycleCtx, scored); err != nil {
				m.log.Error("publish failed", "sink", sink.Name(), "error", err)
				continue
			}
		}
		stats.Published = len(scored)
		m.published.Add(int64(len(scored)))
	}

	m.cyclesRun.Inc()
	return stats
}

// stateFor must be called with mu held.
func (m *Monitor) stateFor(name string) *sourceState {
	st, ok := m.states[name]
	if !ok {
		st = &sourceState{}
		m.states[name] = st
	}
	return st
}

func (m *Monitor) noteFailure(name string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stateFor(name)
	st.attempts++
	wait := m.opts.BackoffBase << (st.attempts - 1)
	if wait > m.opts.BackoffMax || wait <= 0 {
		wait = m.opts.BackoffMax
	}
	st.nextEligible = now.Add(wait)
	m.log.Warn("source backing off", "source", name, "attempts", st.attempts, "wait", wait)
}

func (m *Monitor) noteSuccess(name string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stateFor(name)
	st.attempts = 0
	st.nextEligible = time.Time{}
	st.lastSuccess = now
}

// LastSuccess returns when the named source last fetched successfully.
func (m *Monitor) LastSuccess(name string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateFor(name).lastSuccess
}
