package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

func TestChunker_ContiguousIndexes(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("Controllers must maintain records of all processing activities under this act. ")
	}
	c := NewChunker(100, 10)
	chunks := c.Chunk(Document{
		ID:           "gdpr",
		Title:        "GDPR",
		Jurisdiction: "eu",
		Text:         sb.String(),
	})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, ch.ChunkIndex)
		}
		if ch.DocID != "gdpr" || ch.Meta.Jurisdiction != "eu" {
			t.Errorf("chunk %d meta wrong: %+v", i, ch)
		}
		if ch.Text == "" {
			t.Errorf("chunk %d empty", i)
		}
	}
}

func TestChunker_OverlapRepeatsText(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third sentence now. Fourth sentence ends."
	chunks := NewChunker(6, 3).Chunk(Document{ID: "d", Text: text})
	if len(chunks) < 2 {
		t.Fatalf("expected overlap to force multiple chunks, got %d", len(chunks))
	}
	// With overlap, consecutive chunks share at least one sentence.
	shared := false
	for _, s := range splitSentences(text) {
		if strings.Contains(chunks[0].Text, s) && strings.Contains(chunks[1].Text, s) {
			shared = true
		}
	}
	if !shared {
		t.Error("no sentence shared between consecutive chunks")
	}
}

func TestChunker_EmptyDocument(t *testing.T) {
	if got := NewChunker(0, 0).Chunk(Document{ID: "empty"}); got != nil {
		t.Errorf("expected nil for empty doc, got %v", got)
	}
}

func chunkWithVec(docID string, idx int, vec []float32) domain.DocumentChunk {
	return domain.DocumentChunk{
		DocID: docID, ChunkIndex: idx,
		Text:      docID,
		Embedding: vec,
		Meta:      domain.ChunkMeta{SourceDocTitle: docID},
	}
}

func TestMemoryIndex_OrderedResults(t *testing.T) {
	m := NewMemoryIndex()
	ctx := context.Background()

	err := m.Upsert(ctx, []domain.DocumentChunk{
		chunkWithVec("far", 0, []float32{0, 1}),
		chunkWithVec("near", 0, []float32{1, 0.1}),
		chunkWithVec("exact", 0, []float32{1, 0}),
	})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := m.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Chunk.DocID != "exact" || hits[1].Chunk.DocID != "near" {
		t.Errorf("wrong order: %s, %s", hits[0].Chunk.DocID, hits[1].Chunk.DocID)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("scores not non-increasing")
	}
}

func TestMemoryIndex_TieBreaksByInsertionOrder(t *testing.T) {
	m := NewMemoryIndex()
	ctx := context.Background()

	m.Upsert(ctx, []domain.DocumentChunk{chunkWithVec("first", 0, []float32{1, 0})})
	m.Upsert(ctx, []domain.DocumentChunk{chunkWithVec("second", 0, []float32{1, 0})})

	hits, _ := m.Search(ctx, []float32{1, 0}, 2)
	if hits[0].Chunk.DocID != "first" {
		t.Errorf("tie should break toward earlier insertion, got %s", hits[0].Chunk.DocID)
	}
}

func TestMemoryIndex_KBounds(t *testing.T) {
	m := NewMemoryIndex()
	ctx := context.Background()
	m.Upsert(ctx, []domain.DocumentChunk{chunkWithVec("only", 0, []float32{1, 0})})

	hits, _ := m.Search(ctx, []float32{1, 0}, 10)
	if len(hits) != 1 {
		t.Errorf("k beyond corpus size must return corpus size, got %d", len(hits))
	}
	if hits, _ := m.Search(ctx, []float32{1, 0}, 0); hits != nil {
		t.Error("k=0 should return nothing")
	}
}

func TestMemoryIndex_UpsertReplaces(t *testing.T) {
	m := NewMemoryIndex()
	ctx := context.Background()

	m.Upsert(ctx, []domain.DocumentChunk{chunkWithVec("doc", 0, []float32{1, 0})})
	updated := chunkWithVec("doc", 0, []float32{0, 1})
	updated.Text = "revised"
	m.Upsert(ctx, []domain.DocumentChunk{updated})

	if n, _ := m.Count(ctx); n != 1 {
		t.Fatalf("count = %d, want 1 after re-upsert", n)
	}
	hits, _ := m.Search(ctx, []float32{0, 1}, 1)
	if hits[0].Chunk.Text != "revised" {
		t.Error("re-upsert did not replace chunk")
	}
}

func TestPointID_Deterministic(t *testing.T) {
	if PointID("doc", 3) != PointID("doc", 3) {
		t.Error("point ID not deterministic")
	}
	if PointID("doc", 3) == PointID("doc", 4) {
		t.Error("distinct chunks share a point ID")
	}
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestBuilder_BuildAndIncrementalAdd(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	emb := &fakeEmbedder{}
	idx := NewMemoryIndex()
	b := NewBuilder(NewChunker(50, 0), emb, idx, 2, log)

	n, err := b.Build(context.Background(), []Document{
		{ID: "a", Title: "Doc A", Text: "Data controllers must notify the authority. Processors follow instructions."},
		{ID: "b", Title: "Doc B", Text: "Annual filings are due each March."},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n == 0 {
		t.Fatal("no chunks written")
	}
	count, _ := idx.Count(context.Background())
	if count != n {
		t.Errorf("index count %d != built %d", count, n)
	}

	// Incremental add appends without disturbing existing entries.
	added, err := b.Add(context.Background(), Document{ID: "c", Title: "Doc C", Text: "New guidance issued."})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	count2, _ := idx.Count(context.Background())
	if count2 != n+added {
		t.Errorf("count after add = %d, want %d", count2, n+added)
	}
}

func TestBuilder_EmbedFailureAborts(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	boom := errors.New("embedder down")
	b := NewBuilder(NewChunker(50, 0), &fakeEmbedder{err: boom}, NewMemoryIndex(), 2, log)

	_, err := b.Add(context.Background(), Document{ID: "a", Text: "Some sentence."})
	if !errors.Is(err, boom) {
		t.Fatalf("expected embed error, got %v", err)
	}
}
