package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

// MemoryIndex is a brute-force cosine-similarity index. It serves tests,
// development, and small corpora; the Qdrant backend covers production scale.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []domain.DocumentChunk
	pos    map[string]int // (docID, chunkIndex) key -> slice position
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{pos: make(map[string]int)}
}

func chunkKey(c domain.DocumentChunk) string {
	return fmt.Sprintf("%s#%d", c.DocID, c.ChunkIndex)
}

// Upsert implements VectorIndex. Re-upserting a chunk replaces it in place,
// keeping its original insertion position for tie-breaking.
func (m *MemoryIndex) Upsert(_ context.Context, chunks []domain.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunkKey(c))
		}
		if i, ok := m.pos[chunkKey(c)]; ok {
			m.chunks[i] = c
			continue
		}
		m.pos[chunkKey(c)] = len(m.chunks)
		m.chunks = append(m.chunks, c)
	}
	return nil
}

// Search implements VectorIndex. Ties break toward earlier insertion.
func (m *MemoryIndex) Search(_ context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		pos   int
		score float64
	}
	candidates := make([]scored, 0, len(m.chunks))
	for i, c := range m.chunks {
		candidates = append(candidates, scored{pos: i, score: cosine(vector, c.Embedding)})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].pos < candidates[b].pos
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = Hit{Chunk: m.chunks[candidates[i].pos], Score: candidates[i].score}
	}
	return hits, nil
}

// Count implements VectorIndex.
func (m *MemoryIndex) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// cosine returns the cosine similarity of two vectors; mismatched or zero
// vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
