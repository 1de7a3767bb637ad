// Package dedup persists seen updates and cached impact scores in SQLite so
// that novelty checks and scoring survive restarts.
package dedup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/RegPulseAI/regpulse/engine/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS updates (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	title         TEXT NOT NULL,
	body_summary  TEXT NOT NULL DEFAULT '',
	published_at  TEXT NOT NULL,
	fetched_at    TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	raw_url       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS impact_scores (
	update_id           TEXT NOT NULL,
	profile_fingerprint TEXT NOT NULL,
	score               REAL NOT NULL,
	rationale_tags      TEXT NOT NULL DEFAULT '[]',
	severity            TEXT NOT NULL DEFAULT 'low',
	action_items        TEXT NOT NULL DEFAULT '[]',
	deadline            TEXT NOT NULL DEFAULT '',
	computed_at         TEXT NOT NULL,
	PRIMARY KEY (update_id, profile_fingerprint),
	FOREIGN KEY (update_id) REFERENCES updates(id)
);

CREATE INDEX IF NOT EXISTS idx_impact_fp_score
	ON impact_scores(profile_fingerprint, score DESC);
`

// Store is the SQLite-backed dedup and impact-score state store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path. WAL mode keeps the
// monitor's writes from blocking API reads.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckAndRecord atomically records the update if unseen. It returns true
// when the update is new. A repeat is a normal false return, never an error.
func (s *Store) CheckAndRecord(ctx context.Context, u domain.Update) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO updates
			(id, source, title, body_summary, published_at, fetched_at, category, raw_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, string(u.Source), u.Title, u.BodySummary,
		u.PublishedAt.UTC().Format(time.RFC3339),
		u.FetchedAt.UTC().Format(time.RFC3339),
		u.Category, u.RawURL,
	)
	if err != nil {
		return false, fmt.Errorf("recording update %s: %w", u.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording update %s: %w", u.ID, err)
	}
	return n == 1, nil
}

// IsNew reports whether the update ID is unseen, without recording it.
func (s *Store) IsNew(ctx context.Context, updateID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM updates WHERE id = ?`, updateID).Scan(&one)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("probing update %s: %w", updateID, err)
	}
	return false, nil
}

// SaveImpact caches an impact score. Recomputation for the same
// (update, fingerprint) pair supersedes the previous row.
func (s *Store) SaveImpact(ctx context.Context, imp domain.ImpactScore) error {
	tags, err := json.Marshal(imp.RationaleTags)
	if err != nil {
		return fmt.Errorf("encoding rationale tags: %w", err)
	}
	actions, err := json.Marshal(imp.ActionItems)
	if err != nil {
		return fmt.Errorf("encoding action items: %w", err)
	}
	deadline := ""
	if !imp.Deadline.IsZero() {
		deadline = imp.Deadline.UTC().Format("2006-01-02")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO impact_scores
			(update_id, profile_fingerprint, score, rationale_tags, severity, action_items, deadline, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		imp.UpdateID, imp.ProfileFingerprint, imp.Score,
		string(tags), string(imp.Severity), string(actions), deadline,
		imp.ComputedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving impact for %s: %w", imp.UpdateID, err)
	}
	return nil
}

// GetImpact returns the cached impact score, or (nil, nil) when absent.
func (s *Store) GetImpact(ctx context.Context, updateID, fingerprint string) (*domain.ImpactScore, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT update_id, profile_fingerprint, score, rationale_tags, severity, action_items, deadline, computed_at
		FROM impact_scores
		WHERE update_id = ? AND profile_fingerprint = ?`,
		updateID, fingerprint,
	)
	imp, err := scanImpact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading impact for %s: %w", updateID, err)
	}
	return imp, nil
}

// ScoredUpdate joins an update with its impact score for one profile.
type ScoredUpdate struct {
	Update domain.Update      `json:"update"`
	Impact domain.ImpactScore `json:"impact"`
}

// ListScored returns updates scored for the given fingerprint with score >=
// minScore, ordered by score descending then recency, at most limit rows.
func (s *Store) ListScored(ctx context.Context, fingerprint string, minScore float64, limit int) ([]ScoredUpdate, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.source, u.title, u.body_summary, u.published_at, u.fetched_at,
		       u.category, u.raw_url,
		       i.score, i.rationale_tags, i.severity, i.action_items, i.deadline, i.computed_at
		FROM updates u
		JOIN impact_scores i ON i.update_id = u.id
		WHERE i.profile_fingerprint = ? AND i.score >= ?
		ORDER BY i.score DESC, u.published_at DESC
		LIMIT ?`,
		fingerprint, minScore, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing scored updates: %w", err)
	}
	defer rows.Close()

	var out []ScoredUpdate
	for rows.Next() {
		var (
			su                                        ScoredUpdate
			source, published, fetched                string
			tags, actions, severity, deadline, comput string
		)
		if err := rows.Scan(
			&su.Update.ID, &source, &su.Update.Title, &su.Update.BodySummary,
			&published, &fetched, &su.Update.Category, &su.Update.RawURL,
			&su.Impact.Score, &tags, &severity, &actions, &deadline, &comput,
		); err != nil {
			return nil, fmt.Errorf("scanning scored update: %w", err)
		}
		su.Update.Source = domain.Source(source)
		su.Update.PublishedAt, _ = time.Parse(time.RFC3339, published)
		su.Update.FetchedAt, _ = time.Parse(time.RFC3339, fetched)
		su.Impact.UpdateID = su.Update.ID
		su.Impact.ProfileFingerprint = fingerprint
		su.Impact.Severity = domain.Severity(severity)
		su.Impact.Deadline = parseDeadline(deadline)
		su.Impact.ComputedAt, _ = time.Parse(time.RFC3339, comput)
		json.Unmarshal([]byte(tags), &su.Impact.RationaleTags)
		json.Unmarshal([]byte(actions), &su.Impact.ActionItems)
		out = append(out, su)
	}
	return out, rows.Err()
}

func scanImpact(row *sql.Row) (*domain.ImpactScore, error) {
	var (
		imp                            domain.ImpactScore
		tags, actions                  string
		severity, deadline, computedAt string
	)
	if err := row.Scan(&imp.UpdateID, &imp.ProfileFingerprint, &imp.Score,
		&tags, &severity, &actions, &deadline, &computedAt); err != nil {
		return nil, err
	}
	imp.Severity = domain.Severity(severity)
	imp.Deadline = parseDeadline(deadline)
	imp.ComputedAt, _ = time.Parse(time.RFC3339, computedAt)
	json.Unmarshal([]byte(tags), &imp.RationaleTags)
	json.Unmarshal([]byte(actions), &imp.ActionItems)
	return &imp, nil
}

// parseDeadline decodes the stored deadline date; empty means none.
func parseDeadline(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", s)
	return t
}
