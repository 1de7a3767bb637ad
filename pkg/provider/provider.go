// Package provider abstracts the external model and search services the
// pipeline depends on: text embedding, chat completion, and live web search.
package provider

import "context"

// Embedder converts text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionRequest is a single-turn completion call.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer generates a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	ModelName() string
}

// SearchResult is one hit from a live web search.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// LiveSearcher queries the public web for recent regulatory material.
type LiveSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}
