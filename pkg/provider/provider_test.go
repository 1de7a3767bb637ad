package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaEmbedder(t *testing.T) {
	var gotModel, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		gotModel, gotPrompt = req.Model, req.Prompt
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	vec, err := e.Embed(context.Background(), "GDPR data processing obligations")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("got %d dims, want 3", len(vec))
	}
	if gotModel != "nomic-embed-text" || gotPrompt != "GDPR data processing obligations" {
		t.Errorf("request fields: model=%q prompt=%q", gotModel, gotPrompt)
	}
}

func TestOllamaEmbedder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "m")
	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestTavilySearcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Query != "SEC cybersecurity disclosure rule" {
			t.Errorf("query = %q", req.Query)
		}
		if req.MaxResults != 3 {
			t.Errorf("max_results = %d, want 3", req.MaxResults)
		}
		json.NewEncoder(w).Encode(tavilyResp{Results: []SearchResult{
			{Title: "New SEC rule", URL: "https://example.com/rule", Content: "...", Score: 0.9},
		}})
	}))
	defer srv.Close()

	s := NewTavilySearcher(srv.URL, "key")
	results, err := s.Search(context.Background(), "SEC cybersecurity disclosure rule", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "New SEC rule" {
		t.Errorf("unexpected results: %+v", results)
	}
}

type countingEmbedder struct {
	calls int
	fail  bool
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("backend down")
	}
	return []float32{float32(len(text))}, nil
}

func TestCachedEmbedder_HitsSkipBackend(t *testing.T) {
	backend := &countingEmbedder{}
	c := NewCachedEmbedder(backend, 8)

	for i := 0; i < 3; i++ {
		if _, err := c.Embed(context.Background(), "same text"); err != nil {
			t.Fatal(err)
		}
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1", backend.calls)
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2/1", hits, misses)
	}
}

func TestCachedEmbedder_EvictsOldest(t *testing.T) {
	backend := &countingEmbedder{}
	c := NewCachedEmbedder(backend, 2)

	c.Embed(context.Background(), "a")
	c.Embed(context.Background(), "b")
	c.Embed(context.Background(), "c") // evicts "a"
	if c.Len() != 2 {
		t.Fatalf("cache len = %d, want 2", c.Len())
	}

	backend.calls = 0
	c.Embed(context.Background(), "a")
	if backend.calls != 1 {
		t.Error("evicted entry should require a backend call")
	}
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	backend := &countingEmbedder{fail: true}
	c := NewCachedEmbedder(backend, 8)

	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	backend.fail = false
	if _, err := c.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("retry after backend recovery failed: %v", err)
	}
	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want 2", backend.calls)
	}
}
