// Package score computes the relevance of a regulatory update for a business
// profile. Scoring is a pure function of (update, profile, weights, clock):
// equal inputs always produce the same ImpactScore.
package score

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

// Weights configures the scorer. The four weights are the maximum points each
// factor can contribute; they normally sum to 100.
type Weights struct {
	Jurisdiction int
	Industry     int
	Keyword      int
	Recency      int

	// RecencyHorizon is the decay horizon: an update this old keeps ~37% of
	// the recency points.
	RecencyHorizon time.Duration

	// Severity band thresholds on the final 0..100 score.
	HighThreshold   int
	MediumThreshold int
}

// DefaultWeights mirrors the default configuration.
var DefaultWeights = Weights{
	Jurisdiction:    30,
	Industry:        25,
	Keyword:         25,
	Recency:         20,
	RecencyHorizon:  30 * 24 * time.Hour,
	HighThreshold:   70,
	MediumThreshold: 40,
}

// Scorer scores updates against business profiles.
type Scorer struct {
	weights Weights
	now     func() time.Time // injectable for tests
}

// NewScorer creates a scorer. Zero-valued weights fields fall back to the
// defaults.
func NewScorer(w Weights) *Scorer {
	if w.Jurisdiction == 0 && w.Industry == 0 && w.Keyword == 0 && w.Recency == 0 {
		w = DefaultWeights
	}
	if w.RecencyHorizon == 0 {
		w.RecencyHorizon = DefaultWeights.RecencyHorizon
	}
	if w.HighThreshold == 0 {
		w.HighThreshold = DefaultWeights.HighThreshold
	}
	if w.MediumThreshold == 0 {
		w.MediumThreshold = DefaultWeights.MediumThreshold
	}
	return &Scorer{weights: w, now: time.Now}
}

// Score computes the impact of an update on a profile.
func (s *Scorer) Score(u domain.Update, p domain.BusinessProfile) domain.ImpactScore {
	text := updateText(u)
	words := tokenize(text)

	var tags []string

	jur, jurTags := jurisdictionScore(text, words, u.Source, p.Jurisdictions)
	tags = append(tags, jurTags...)

	ind, indTags := industryScore(text, words, p)
	tags = append(tags, indTags...)

	kw, kwTags := keywordScore(text, words)
	tags = append(tags, kwTags...)

	// Recency alone never makes an update relevant: a fresh update that
	// matched nothing still scores zero.
	rec := 0.0
	if jur > 0 || ind > 0 || kw > 0 {
		rec = s.recencyScore(u.PublishedAt)
		if rec > 0.5 {
			tags = append(tags, "recent")
		}
	}

	total := jur*float64(s.weights.Jurisdiction) +
		ind*float64(s.weights.Industry) +
		kw*float64(s.weights.Keyword) +
		rec*float64(s.weights.Recency)
	total = math.Round(clamp(total, 0, 100))

	severity, actions := s.classify(total)

	return domain.ImpactScore{
		UpdateID:           u.ID,
		ProfileFingerprint: p.Fingerprint(),
		Score:              total,
		RationaleTags:      tags,
		Severity:           severity,
		ActionItems:        actions,
		Deadline:           extractDeadline(text),
		ComputedAt:         s.now().UTC(),
	}
}

// classify maps a final score to a severity band and its suggested actions.
func (s *Scorer) classify(total float64) (domain.Severity, []string) {
	switch {
	case total >= float64(s.weights.HighThreshold):
		return domain.SeverityHigh, []string{
			"Review the full regulatory update",
			"Assess impact on current operations",
			"Consult with legal/compliance team",
			"Update compliance documentation",
		}
	case total >= float64(s.weights.MediumThreshold):
		return domain.SeverityMedium, []string{
			"Review the full regulatory update",
			"Assess impact on current operations",
		}
	default:
		return domain.SeverityLow, []string{
			"Review the full regulatory update",
		}
	}
}

// recencyScore decays continuously with age; newer is never scored below
// older.
func (s *Scorer) recencyScore(published time.Time) float64 {
	age := s.now().Sub(published)
	if age < 0 {
		age = 0
	}
	return math.Exp(-age.Hours() / s.weights.RecencyHorizon.Hours())
}

// sourceRegion maps each feed source to the region its updates bind in.
func sourceRegion(src domain.Source) string {
	switch src {
	case domain.SourceSEC, domain.SourceFederalRegister:
		return "us"
	case domain.SourceEUOfficialJournal:
		return "eu"
	default:
		return ""
	}
}

// jurisdictionScore returns 1.0 for a direct jurisdiction match, 0.5 for a
// regional match (profile jurisdiction is inside a region the update binds
// in, or vice versa), 0 otherwise.
func jurisdictionScore(text string, words map[string]bool, src domain.Source, jurisdictions []string) (float64, []string) {
	srcRegion := sourceRegion(src)

	mentioned := func(term string) bool {
		return containsTerm(text, words, term)
	}
	regionInText := func(region string) bool {
		if mentioned(region) || srcRegion == region {
			return true
		}
		for alias, r := range regionAliases {
			if r == region && mentioned(alias) {
				return true
			}
		}
		return false
	}

	best := 0.0
	var tags []string
	for _, j := range jurisdictions {
		j = strings.ToLower(strings.TrimSpace(j))
		if j == "" {
			continue
		}
		if canonical, ok := regionAliases[j]; ok {
			j = canonical
		}

		switch {
		case mentioned(j) || srcRegion == j:
			if best < 1.0 {
				best = 1.0
				tags = append(tags, "jurisdiction_match:"+j)
			}
		case memberOfMentionedRegion(j, regionInText):
			if best < 0.5 {
				best = 0.5
				tags = append(tags, "jurisdiction_regional:"+j)
			}
		case regionWithMentionedMember(j, mentioned):
			if best < 0.5 {
				best = 0.5
				tags = append(tags, "jurisdiction_regional:"+j)
			}
		}
	}
	return best, tags
}

// memberOfMentionedRegion reports whether jurisdiction j belongs to a region
// the update binds in.
func memberOfMentionedRegion(j string, regionInText func(string) bool) bool {
	for region, members := range regionMembers {
		for _, m := range members {
			if m == j && regionInText(region) {
				return true
			}
		}
	}
	return false
}

// regionWithMentionedMember reports whether j is itself a region token and
// the update mentions one of its members.
func regionWithMentionedMember(j string, mentioned func(string) bool) bool {
	members, ok := regionMembers[j]
	if !ok {
		return false
	}
	for _, m := range members {
		if mentioned(m) {
			return true
		}
	}
	return false
}

// industryScore combines the profile industry's sector lexicon with direct
// registered-activity mentions. Each signal is bounded so the total stays in
// [0, 1].
func industryScore(text string, words map[string]bool, p domain.BusinessProfile) (float64, []string) {
	var tags []string
	total := 0.0

	industry := strings.ToLower(strings.TrimSpace(p.Industry))
	if terms, ok := industryKeywords[industry]; ok {
		for _, term := range terms {
			if containsTerm(text, words, term) {
				total += 0.6
				tags = append(tags, "industry_match:"+industry)
				break
			}
		}
	}

	matched := 0
	for _, act := range p.RegisteredActivities {
		act = strings.ToLower(strings.TrimSpace(act))
		if act == "" {
			continue
		}
		if containsTerm(text, words, act) {
			matched++
			tags = append(tags, "activity_match:"+act)
		}
	}
	total += 0.4 * clamp(float64(matched)/2, 0, 1)

	return clamp(total, 0, 1), tags
}

// keywordScore matches the general criticality lexicon; each matched group
// contributes a third of the factor.
func keywordScore(text string, words map[string]bool) (float64, []string) {
	groups := make([]string, 0, len(impactKeywords))
	for name := range impactKeywords {
		groups = append(groups, name)
	}
	sort.Strings(groups) // deterministic tag order

	var tags []string
	matched := 0
	for _, name := range groups {
		for _, term := range impactKeywords[name] {
			if containsTerm(text, words, term) {
				matched++
				tags = append(tags, "keyword:"+name)
				break
			}
		}
	}
	return clamp(float64(matched)/3, 0, 1), tags
}

func updateText(u domain.Update) string {
	parts := []string{u.Title, u.BodySummary, u.Category}
	parts = append(parts, u.Categories...)
	return strings.ToLower(strings.Join(parts, " "))
}

// tokenize splits text into a word set for boundary-exact single-term
// matches.
func tokenize(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	return words
}

// containsTerm matches single words against the token set (word-boundary
// exact) and multi-word phrases by substring.
func containsTerm(text string, words map[string]bool, term string) bool {
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(text, term)
	}
	return words[term]
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// Describe renders a short human-readable rationale.
func Describe(imp domain.ImpactScore) string {
	return fmt.Sprintf("score=%.0f severity=%s factors=%s",
		imp.Score, imp.Severity, strings.Join(imp.RationaleTags, ","))
}
