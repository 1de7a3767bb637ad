package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RegPulseAI/regpulse/engine/domain"
	"github.com/RegPulseAI/regpulse/pkg/fn"
	"github.com/RegPulseAI/regpulse/pkg/provider"
)

// Builder runs documents through the chunk→embed→upsert pipeline.
type Builder struct {
	chunker  *Chunker
	embedder provider.Embedder
	index    VectorIndex
	workers  int
	log      *slog.Logger
}

// NewBuilder creates a builder. Pass a provider.CachedEmbedder to skip
// re-embedding repeated chunks.
func NewBuilder(chunker *Chunker, embedder provider.Embedder, idx VectorIndex, workers int, log *slog.Logger) *Builder {
	if workers <= 0 {
		workers = 4
	}
	return &Builder{
		chunker:  chunker,
		embedder: embedder,
		index:    idx,
		workers:  workers,
		log:      log,
	}
}

// Build indexes all documents and returns the number of chunks written.
func (b *Builder) Build(ctx context.Context, docs []Document) (int, error) {
	total := 0
	for _, doc := range docs {
		n, err := b.Add(ctx, doc)
		if err != nil {
			return total, fmt.Errorf("indexing %s: %w", doc.ID, err)
		}
		total += n
	}
	return total, nil
}

// Add incrementally indexes one document without rebuilding the rest.
func (b *Builder) Add(ctx context.Context, doc Document) (int, error) {
	pipeline := fn.Then(
		fn.TracedStage("index.chunk", fn.MapStage(b.chunker.Chunk)),
		fn.Then(
			fn.TracedStage("index.embed", b.embedStage()),
			fn.TracedStage("index.upsert", b.upsertStage()),
		),
	)

	result := pipeline(ctx, doc)
	chunks, err := result.Unwrap()
	if err != nil {
		return 0, err
	}
	b.log.Debug("document indexed", "doc", doc.ID, "chunks", len(chunks))
	return len(chunks), nil
}

func (b *Builder) embedStage() fn.Stage[[]domain.DocumentChunk, []domain.DocumentChunk] {
	return func(ctx context.Context, chunks []domain.DocumentChunk) fn.Result[[]domain.DocumentChunk] {
		embedded := fn.ParMapResult(chunks, b.workers, func(c domain.DocumentChunk) fn.Result[domain.DocumentChunk] {
			vec, err := b.embedder.Embed(ctx, c.Text)
			if err != nil {
				return fn.Err[domain.DocumentChunk](fmt.Errorf("embedding chunk %s#%d: %w", c.DocID, c.ChunkIndex, err))
			}
			c.Embedding = vec
			return fn.Ok(c)
		})
		return fn.Collect(embedded)
	}
}

func (b *Builder) upsertStage() fn.Stage[[]domain.DocumentChunk, []domain.DocumentChunk] {
	return func(ctx context.Context, chunks []domain.DocumentChunk) fn.Result[[]domain.DocumentChunk] {
		if err := b.index.Upsert(ctx, chunks); err != nil {
			return fn.Err[[]domain.DocumentChunk](err)
		}
		return fn.Ok(chunks)
	}
}
