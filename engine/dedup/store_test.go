package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

func testUpdate(title string) domain.Update {
	published := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	return domain.Update{
		ID:          domain.UpdateID(domain.SourceSEC, title, published),
		Source:      domain.SourceSEC,
		Title:       title,
		BodySummary: "summary",
		PublishedAt: published,
		FetchedAt:   published.Add(time.Hour),
		Category:    "8-K",
		RawURL:      "https://example.com/" + title,
	}
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestCheckAndRecord_Idempotent(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u := testUpdate("cyber incident rule")

	isNew, err := s.CheckAndRecord(ctx, u)
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if !isNew {
		t.Fatal("first record should be new")
	}

	for i := 0; i < 3; i++ {
		isNew, err = s.CheckAndRecord(ctx, u)
		if err != nil {
			t.Fatalf("repeat CheckAndRecord: %v", err)
		}
		if isNew {
			t.Fatal("repeat record should not be new")
		}
	}
}

func TestIsNew_DoesNotRecord(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u := testUpdate("probe only")

	isNew, err := s.IsNew(ctx, u.ID)
	if err != nil || !isNew {
		t.Fatalf("IsNew before record = %v, %v", isNew, err)
	}
	// Probing must not consume novelty.
	if recorded, _ := s.CheckAndRecord(ctx, u); !recorded {
		t.Fatal("CheckAndRecord after probe should still report new")
	}
	if isNew, _ = s.IsNew(ctx, u.ID); isNew {
		t.Fatal("IsNew after record should be false")
	}
}

func TestDurableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()
	u := testUpdate("durability check")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if isNew, _ := s.CheckAndRecord(ctx, u); !isNew {
		t.Fatal("expected new on first open")
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if isNew, _ := s2.CheckAndRecord(ctx, u); isNew {
		t.Fatal("update should survive reopen")
	}
}

func TestImpactRoundTripAndSupersede(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u := testUpdate("impact cache")
	s.CheckAndRecord(ctx, u)

	imp := domain.ImpactScore{
		UpdateID:           u.ID,
		ProfileFingerprint: "fp1",
		Score:              72,
		RationaleTags:      []string{"jurisdiction_match", "industry_match"},
		Severity:           domain.SeverityHigh,
		ActionItems:        []string{"Review with counsel"},
		Deadline:           time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		ComputedAt:         time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
	}
	if err := s.SaveImpact(ctx, imp); err != nil {
		t.Fatalf("SaveImpact: %v", err)
	}

	got, err := s.GetImpact(ctx, u.ID, "fp1")
	if err != nil {
		t.Fatalf("GetImpact: %v", err)
	}
	if got == nil || got.Score != 72 || got.Severity != domain.SeverityHigh {
		t.Fatalf("unexpected impact: %+v", got)
	}
	if len(got.RationaleTags) != 2 || got.RationaleTags[0] != "jurisdiction_match" {
		t.Errorf("tags = %v", got.RationaleTags)
	}
	if !got.Deadline.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("deadline = %v", got.Deadline)
	}

	// An impact without a deadline round-trips as the zero time.
	none := imp
	none.ProfileFingerprint = "fp-none"
	none.Deadline = time.Time{}
	if err := s.SaveImpact(ctx, none); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetImpact(ctx, u.ID, "fp-none"); !got.Deadline.IsZero() {
		t.Errorf("absent deadline = %v, want zero", got.Deadline)
	}

	// Recomputation supersedes.
	imp.Score = 55
	imp.Severity = domain.SeverityMedium
	if err := s.SaveImpact(ctx, imp); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetImpact(ctx, u.ID, "fp1")
	if got.Score != 55 || got.Severity != domain.SeverityMedium {
		t.Fatalf("supersede failed: %+v", got)
	}
}

func TestGetImpact_AbsentIsNil(t *testing.T) {
	s, _ := openTestStore(t)
	got, err := s.GetImpact(context.Background(), "missing", "fp")
	if err != nil {
		t.Fatalf("GetImpact: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for absent impact")
	}
}

func TestListScored(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	scores := map[string]float64{"low rule": 20, "mid rule": 50, "high rule": 90}
	for title, score := range scores {
		u := testUpdate(title)
		s.CheckAndRecord(ctx, u)
		s.SaveImpact(ctx, domain.ImpactScore{
			UpdateID:           u.ID,
			ProfileFingerprint: "fp1",
			Score:              score,
			Severity:           domain.SeverityLow,
			ComputedAt:         time.Now().UTC(),
		})
	}
	// A different profile's score must not leak in.
	other := testUpdate("other profile rule")
	s.CheckAndRecord(ctx, other)
	s.SaveImpact(ctx, domain.ImpactScore{
		UpdateID: other.ID, ProfileFingerprint: "fp2", Score: 99,
		Severity: domain.SeverityHigh, ComputedAt: time.Now().UTC(),
	})

	got, err := s.ListScored(ctx, "fp1", 40, 10)
	if err != nil {
		t.Fatalf("ListScored: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].Impact.Score != 90 || got[1].Impact.Score != 50 {
		t.Errorf("wrong order: %v, %v", got[0].Impact.Score, got[1].Impact.Score)
	}
	if got[0].Update.Title != "high rule" {
		t.Errorf("title = %q", got[0].Update.Title)
	}
}
