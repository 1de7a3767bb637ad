// Package domain defines the core types, validation, and error taxonomy for
// the RegPulse pipeline. It acts as the validation gate at pipeline entry points.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Source identifies a regulatory feed source.
type Source string

const (
	SourceSEC               Source = "sec"
	SourceFederalRegister   Source = "federal_register"
	SourceEUOfficialJournal Source = "eu_official_journal"
	SourceAgencyBulletin    Source = "agency_bulletin"
)

// ValidSources is the set of recognised feed sources.
var ValidSources = map[Source]bool{
	SourceSEC: true, SourceFederalRegister: true,
	SourceEUOfficialJournal: true, SourceAgencyBulletin: true,
}

// Update is a single normalized regulatory update. Updates are immutable once
// scored; they are annotated via ImpactScore records, never mutated.
type Update struct {
	ID          string            `json:"id"`
	Source      Source            `json:"source"`
	Title       string            `json:"title"`
	BodySummary string            `json:"body_summary"`
	PublishedAt time.Time         `json:"published_at"`
	FetchedAt   time.Time         `json:"fetched_at"`
	Category    string            `json:"category"`
	Categories  []string          `json:"categories,omitempty"`
	RawURL      string            `json:"raw_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// UpdateID computes the deterministic content hash identifying an update.
// It depends only on source, title, and published date, so re-fetches of the
// identical item always produce the same ID.
func UpdateID(source Source, title string, published time.Time) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(published.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil))
}

// BusinessProfile describes the business an update is scored against.
// It is owned by the caller and read-only inside the pipeline.
type BusinessProfile struct {
	Industry             string   `json:"industry"`
	Jurisdictions        []string `json:"jurisdictions"`
	BusinessSize         string   `json:"business_size"`
	RegisteredActivities []string `json:"registered_activities"`
}

// Fingerprint returns a stable hash of the profile. Scoring results are cached
// by (update ID, fingerprint), so two equal profiles must hash identically
// regardless of slice ordering.
func (p BusinessProfile) Fingerprint() string {
	jur := append([]string(nil), p.Jurisdictions...)
	act := append([]string(nil), p.RegisteredActivities...)
	sort.Strings(jur)
	sort.Strings(act)

	h := sha256.New()
	for _, part := range []string{
		strings.ToLower(p.Industry),
		strings.ToLower(strings.Join(jur, ",")),
		strings.ToLower(p.BusinessSize),
		strings.ToLower(strings.Join(act, ",")),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Severity classifies the urgency of an impact.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ImpactScore is the relevance/impact of one update for one profile.
// At most one exists per (UpdateID, ProfileFingerprint) pair; it is a pure
// function of its inputs and is superseded by recomputation, never updated.
type ImpactScore struct {
	UpdateID           string    `json:"update_id"`
	ProfileFingerprint string    `json:"profile_fingerprint"`
	Score              float64   `json:"score"`
	RationaleTags      []string  `json:"rationale_tags"`
	Severity           Severity  `json:"severity"`
	ActionItems        []string  `json:"action_items,omitempty"`
	Deadline           time.Time `json:"deadline,omitzero"` // compliance deadline, zero when none found
	ComputedAt         time.Time `json:"computed_at"`
}

// DocumentChunk is an embedded slice of a compliance document. Chunks are
// immutable after index build; ChunkIndex is contiguous per DocID from 0.
type DocumentChunk struct {
	DocID      string    `json:"doc_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	Meta       ChunkMeta `json:"meta"`
}

// ChunkMeta carries display and filter metadata for a chunk.
type ChunkMeta struct {
	SourceDocTitle string `json:"source_doc_title"`
	Section        string `json:"section,omitempty"`
	Jurisdiction   string `json:"jurisdiction,omitempty"`
}

// AnswerMode selects the verbosity of a generated answer.
type AnswerMode string

const (
	ModeConcise  AnswerMode = "concise"
	ModeSimple   AnswerMode = "simple"
	ModeDetailed AnswerMode = "detailed"
)

// ValidModes is the set of recognised answer modes.
var ValidModes = map[AnswerMode]bool{
	ModeConcise: true, ModeSimple: true, ModeDetailed: true,
}

// AnswerRequest is a transient question against the compliance corpus.
type AnswerRequest struct {
	Question string          `json:"question"`
	Profile  BusinessProfile `json:"profile"`
	Mode     AnswerMode      `json:"mode"`
}

// Citation references a chunk that backed an answer.
type Citation struct {
	DocID          string  `json:"doc_id"`
	ChunkIndex     int     `json:"chunk_index"`
	SourceDocTitle string  `json:"source_doc_title"`
	Score          float64 `json:"score"`
}

// AnswerResult is the outcome of an answer request. Never persisted.
type AnswerResult struct {
	AnswerText     string     `json:"answer_text"`
	Citations      []Citation `json:"citations"`
	UsedLiveSearch bool       `json:"used_live_search"`
}
