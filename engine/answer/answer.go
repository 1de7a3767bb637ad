// Package answer implements retrieval-augmented question answering over the
// compliance document index, with a live web-search fallback for thin
// retrieval results.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/RegPulseAI/regpulse/engine/domain"
	"github.com/RegPulseAI/regpulse/engine/index"
	"github.com/RegPulseAI/regpulse/pkg/fn"
	"github.com/RegPulseAI/regpulse/pkg/provider"
	"github.com/RegPulseAI/regpulse/pkg/resilience"
)

// Options tunes retrieval and assembly.
type Options struct {
	TopK                int
	ContextBudget       int // bytes of assembled context
	ConfidenceThreshold float64
	JurisdictionBoost   float64
	RetryWait           time.Duration
}

// DefaultOptions mirrors the default configuration.
var DefaultOptions = Options{
	TopK:                5,
	ContextBudget:       8000,
	ConfidenceThreshold: 0.35,
	JurisdictionBoost:   1.15,
	RetryWait:           200 * time.Millisecond,
}

// Engine answers questions. It is stateless per request and safe for
// concurrent use; it only reads the index.
type Engine struct {
	embedder  provider.Embedder
	idx       index.VectorIndex
	completer provider.Completer
	searcher  provider.LiveSearcher // nil disables the fallback
	breaker   *resilience.Breaker
	opts      Options
	log       *slog.Logger
}

// New creates an answer engine.
func New(embedder provider.Embedder, idx index.VectorIndex, completer provider.Completer,
	searcher provider.LiveSearcher, opts Options, log *slog.Logger) *Engine {

	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions.TopK
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = DefaultOptions.ContextBudget
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = DefaultOptions.ConfidenceThreshold
	}
	if opts.JurisdictionBoost <= 0 {
		opts.JurisdictionBoost = DefaultOptions.JurisdictionBoost
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = DefaultOptions.RetryWait
	}
	return &Engine{
		embedder:  embedder,
		idx:       idx,
		completer: completer,
		searcher:  searcher,
		breaker:   resilience.NewBreaker(resilience.DefaultBreakerOpts),
		opts:      opts,
		log:       log,
	}
}

// retryOnce retries a provider call a single time before giving up.
func (e *Engine) retryOpts() fn.RetryOpts {
	return fn.RetryOpts{MaxAttempts: 2, InitialWait: e.opts.RetryWait}
}

// Answer runs the full retrieval-augmented pipeline. It returns
// ErrProviderUnavailable when a provider stays down after retry, and
// ErrEmptyContext when neither retrieval nor live search produced material.
func (e *Engine) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error) {
	if err := domain.ValidateAnswerRequest(req); err != nil {
		return nil, err
	}

	vec, err := e.embedQuestion(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	hits, err := e.idx.Search(ctx, vec, e.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	hits = e.boostJurisdiction(hits, req.Profile)

	var liveEntries []contextEntry
	if e.searcher != nil && e.belowConfidence(hits) {
		results, err := e.searcher.Search(ctx, req.Question, e.opts.TopK)
		if err != nil {
			e.log.Warn("live search failed, answering from retrieval only", "error", err)
		}
		liveEntries = fn.Map(results, func(r provider.SearchResult) contextEntry {
			return contextEntry{header: "web: " + r.Title, body: r.Content}
		})
	}

	if len(hits) == 0 && len(liveEntries) == 0 {
		return nil, domain.ErrEmptyContext
	}

	entries, citations := e.assemble(hits, liveEntries)
	if len(entries) == 0 {
		return nil, domain.ErrEmptyContext
	}
	// The flag reflects what the model actually saw: a live result trimmed by
	// the context budget does not count.
	usedLiveSearch := len(entries) > len(citations)

	text, err := e.complete(ctx, req.Mode, req.Question, entries)
	if err != nil {
		return nil, err
	}

	return &domain.AnswerResult{
		AnswerText:     text,
		Citations:      citations,
		UsedLiveSearch: usedLiveSearch,
	}, nil
}

func (e *Engine) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	result := fn.Retry(ctx, e.retryOpts(), func(ctx context.Context) fn.Result[[]float32] {
		return fn.FromPair(e.embedder.Embed(ctx, question))
	})
	vec, err := result.Unwrap()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		// A deadline expiry abandons the provider call and surfaces as the
		// provider being unavailable.
		return nil, fmt.Errorf("%w: embedding: %v", domain.ErrProviderUnavailable, err)
	}
	return vec, nil
}

// boostJurisdiction multiplies the similarity of chunks whose jurisdiction
// matches the profile, then restores rank order.
func (e *Engine) boostJurisdiction(hits []index.Hit, p domain.BusinessProfile) []index.Hit {
	jurs := make(map[string]bool, len(p.Jurisdictions))
	for _, j := range p.Jurisdictions {
		jurs[strings.ToLower(strings.TrimSpace(j))] = true
	}
	for i, h := range hits {
		j := strings.ToLower(h.Chunk.Meta.Jurisdiction)
		if j != "" && jurs[j] {
			hits[i].Score = h.Score * e.opts.JurisdictionBoost
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits
}

func (e *Engine) belowConfidence(hits []index.Hit) bool {
	return len(hits) == 0 || hits[0].Score < e.opts.ConfidenceThreshold
}

// assemble packs ranked entries under the context budget, retrieval hits
// first. Citations cover exactly the chunks that made it in, in rank order.
func (e *Engine) assemble(hits []index.Hit, live []contextEntry) ([]contextEntry, []domain.Citation) {
	var entries []contextEntry
	var citations []domain.Citation
	budget := e.opts.ContextBudget

	for _, h := range hits {
		entry := chunkEntry(h.Chunk)
		if entry.size() > budget {
			break // lowest-ranked entries are the ones dropped
		}
		budget -= entry.size()
		entries = append(entries, entry)
		citations = append(citations, domain.Citation{
			DocID:          h.Chunk.DocID,
			ChunkIndex:     h.Chunk.ChunkIndex,
			SourceDocTitle: h.Chunk.Meta.SourceDocTitle,
			Score:          h.Score,
		})
	}
	for _, entry := range live {
		if entry.size() > budget {
			break
		}
		budget -= entry.size()
		entries = append(entries, entry)
	}
	return entries, citations
}

func (e *Engine) complete(ctx context.Context, mode domain.AnswerMode, question string, entries []contextEntry) (string, error) {
	req := provider.CompletionRequest{
		System:    systemPrompt(mode),
		Prompt:    userPrompt(question, entries),
		MaxTokens: modeMaxTokens[mode],
	}

	result := fn.Retry(ctx, e.retryOpts(), func(ctx context.Context) fn.Result[string] {
		var text string
		err := e.breaker.Call(ctx, func(ctx context.Context) error {
			var cerr error
			text, cerr = e.completer.Complete(ctx, req)
			return cerr
		})
		return fn.FromPair(text, err)
	})

	text, err := result.Unwrap()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: completion: %v", domain.ErrProviderUnavailable, err)
	}
	return text, nil
}
