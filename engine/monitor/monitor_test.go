package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RegPulseAI/regpulse/engine/dedup"
	"github.com/RegPulseAI/regpulse/engine/domain"
	"github.com/RegPulseAI/regpulse/engine/feed"
	"github.com/RegPulseAI/regpulse/engine/score"
	"github.com/RegPulseAI/regpulse/pkg/metrics"
)

var monNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

type stubAdapter struct {
	name    string
	updates []domain.Update
	err     error
	calls   int
}

func (s *stubAdapter) Name() string { return s.name }
func (s *stubAdapter) Fetch(context.Context) ([]domain.Update, error) {
	s.calls++
	return s.updates, s.err
}

type captureSink struct {
	mu      sync.Mutex
	batches [][]dedup.ScoredUpdate
	err     error
}

func (c *captureSink) Name() string { return "capture" }
func (c *captureSink) Publish(_ context.Context, scored []dedup.ScoredUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.batches = append(c.batches, scored)
	return nil
}

func (c *captureSink) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func relevantUpdate(title string) domain.Update {
	published := monNow.Add(-3 * time.Hour)
	return domain.Update{
		ID:          domain.UpdateID(domain.SourceSEC, title, published),
		Source:      domain.SourceSEC,
		Title:       title,
		BodySummary: "Disclosure and reporting requirements for securities issuers.",
		PublishedAt: published,
		FetchedAt:   monNow,
	}
}

func newTestMonitor(t *testing.T, adapters []feed.SourceAdapter, sinks []Sink) *Monitor {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := dedup.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	registry := feed.NewRegistry(2, log)
	for _, a := range adapters {
		registry.Register(a)
	}

	scorer := score.NewScorer(score.DefaultWeights)

	profile := domain.BusinessProfile{
		Industry:             "finance",
		Jurisdictions:        []string{"us"},
		RegisteredActivities: []string{"securities"},
	}

	m := New(registry, store, scorer, profile, sinks,
		Options{Interval: time.Hour, BackoffBase: time.Minute, BackoffMax: 8 * time.Minute},
		metrics.New(), log)
	m.now = func() time.Time { return monNow }
	return m
}

func TestRunCycle_ScoresAndPublishesNewUpdates(t *testing.T) {
	adapter := &stubAdapter{name: "sec", updates: []domain.Update{
		relevantUpdate("rule one"), relevantUpdate("rule two"),
	}}
	sink := &captureSink{}
	m := newTestMonitor(t, []feed.SourceAdapter{adapter}, []Sink{sink})

	stats := m.RunCycle(context.Background())
	if stats.Fetched != 2 || stats.New != 2 || stats.Published != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if sink.total() != 2 {
		t.Errorf("sink received %d updates, want 2", sink.total())
	}
	for _, su := range sink.batches[0] {
		if su.Impact.Score <= 0 {
			t.Errorf("published update %s has zero score", su.Update.ID)
		}
	}
}

func TestRunCycle_RefetchProducesNothingNew(t *testing.T) {
	adapter := &stubAdapter{name: "sec", updates: []domain.Update{relevantUpdate("repeat rule")}}
	sink := &captureSink{}
	m := newTestMonitor(t, []feed.SourceAdapter{adapter}, []Sink{sink})

	first := m.RunCycle(context.Background())
	if first.New != 1 {
		t.Fatalf("first cycle: %+v", first)
	}

	second := m.RunCycle(context.Background())
	if second.Fetched != 1 {
		t.Fatalf("second cycle should refetch: %+v", second)
	}
	if second.New != 0 || second.Published != 0 {
		t.Errorf("refetch produced new work: %+v", second)
	}
	if sink.total() != 1 {
		t.Errorf("sink received %d updates total, want 1", sink.total())
	}
}

func TestRunCycle_DropsInvalidUpdates(t *testing.T) {
	published := monNow.Add(-time.Hour)
	invalid := domain.Update{ // no title
		ID:          domain.UpdateID(domain.SourceSEC, "", published),
		Source:      domain.SourceSEC,
		PublishedAt: published,
	}
	adapter := &stubAdapter{name: "sec", updates: []domain.Update{invalid, relevantUpdate("valid rule")}}
	sink := &captureSink{}
	m := newTestMonitor(t, []feed.SourceAdapter{adapter}, []Sink{sink})

	stats := m.RunCycle(context.Background())
	if stats.Fetched != 2 {
		t.Fatalf("fetched = %d, want 2", stats.Fetched)
	}
	if stats.New != 1 || sink.total() != 1 {
		t.Errorf("invalid update leaked past validation: %+v", stats)
	}
	if isNew, _ := m.store.IsNew(context.Background(), invalid.ID); !isNew {
		t.Error("invalid update must not be recorded")
	}
}

func TestRunCycle_FailedSourceBacksOff(t *testing.T) {
	failing := &stubAdapter{name: "eu_official_journal", err: errors.New("connection refused")}
	healthy := &stubAdapter{name: "sec", updates: []domain.Update{relevantUpdate("healthy rule")}}
	m := newTestMonitor(t, []feed.SourceAdapter{failing, healthy}, []Sink{&captureSink{}})

	stats := m.RunCycle(context.Background())
	if stats.Failures["eu_official_journal"] == nil {
		t.Fatal("expected recorded failure")
	}
	if stats.New != 1 {
		t.Errorf("healthy source should still be processed: %+v", stats)
	}

	// Next cycle inside the backoff window skips only the failed source.
	stats = m.RunCycle(context.Background())
	if len(stats.Skipped) != 1 || stats.Skipped[0] != "eu_official_journal" {
		t.Fatalf("skipped = %v", stats.Skipped)
	}
	if failing.calls != 1 {
		t.Errorf("failed adapter fetched %d times, want 1", failing.calls)
	}
	if healthy.calls != 2 {
		t.Errorf("healthy adapter fetched %d times, want 2", healthy.calls)
	}
}

func TestBackoffGrowsAndResets(t *testing.T) {
	adapter := &stubAdapter{name: "sec", err: errors.New("boom")}
	m := newTestMonitor(t, []feed.SourceAdapter{adapter}, nil)

	now := monNow
	m.now = func() time.Time { return now }

	m.RunCycle(context.Background()) // attempt 1: wait 1m
	now = now.Add(90 * time.Second)
	m.RunCycle(context.Background()) // attempt 2: wait 2m
	now = now.Add(3 * time.Minute)
	m.RunCycle(context.Background()) // attempt 3: wait 4m
	if adapter.calls != 3 {
		t.Fatalf("calls = %d, want 3", adapter.calls)
	}

	// Inside the 4m window: skipped.
	now = now.Add(time.Minute)
	stats := m.RunCycle(context.Background())
	if len(stats.Skipped) != 1 {
		t.Fatalf("expected skip inside backoff window: %+v", stats)
	}

	// Window elapsed and the source recovers: counter resets.
	now = now.Add(5 * time.Minute)
	adapter.err = nil
	m.RunCycle(context.Background())
	if !m.LastSuccess("sec").Equal(now) {
		t.Error("success not recorded")
	}

	// A fresh failure starts from the base wait again.
	adapter.err = errors.New("boom again")
	m.RunCycle(context.Background())
	now = now.Add(90 * time.Second)
	if stats := m.RunCycle(context.Background()); len(stats.Skipped) != 0 {
		t.Errorf("first failure after reset should back off by the base wait only: %+v", stats)
	}
}

func TestBackoffCappedAtMax(t *testing.T) {
	adapter := &stubAdapter{name: "sec", err: errors.New("down")}
	m := newTestMonitor(t, []feed.SourceAdapter{adapter}, nil)

	now := monNow
	m.now = func() time.Time { return now }

	// Drive attempts well past the 8m ceiling.
	for i := 0; i < 10; i++ {
		m.RunCycle(context.Background())
		now = now.Add(9 * time.Minute) // always past the capped window
	}
	if adapter.calls != 10 {
		t.Errorf("ceiling not applied: adapter fetched %d times, want 10", adapter.calls)
	}
}

func TestTick_SkipsWhileInFlight(t *testing.T) {
	m := newTestMonitor(t, nil, nil)

	m.inFlight.Store(true)
	m.tick(context.Background())
	if got := m.reg.Counter("monitor_cycles_skipped_total", "").Value(); got != 1 {
		t.Errorf("skipped counter = %d, want 1", got)
	}

	m.inFlight.Store(false)
	m.tick(context.Background())
	if got := m.reg.Counter("monitor_cycles_total", "").Value(); got != 1 {
		t.Errorf("cycles counter = %d, want 1", got)
	}
}

func TestRunCycle_SinkFailureDoesNotBlock(t *testing.T) {
	adapter := &stubAdapter{name: "sec", updates: []domain.Update{relevantUpdate("sink fail rule")}}
	bad := &captureSink{err: errors.New("broker down")}
	good := &captureSink{}
	m := newTestMonitor(t, []feed.SourceAdapter{adapter}, []Sink{bad, good})

	stats := m.RunCycle(context.Background())
	if stats.New != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if good.total() != 1 {
		t.Error("second sink should still receive the batch")
	}
}
