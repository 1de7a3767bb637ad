package index

import (
	"context"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

// Hit is one similarity-search result.
type Hit struct {
	Chunk domain.DocumentChunk
	Score float64
}

// VectorIndex stores embedded chunks and answers k-NN queries. Query results
// are at most k chunks in non-increasing similarity order.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []domain.DocumentChunk) error
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
}
