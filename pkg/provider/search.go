package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TavilySearcher implements LiveSearcher against the Tavily search API.
type TavilySearcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewTavilySearcher creates a live search client. An empty baseURL uses the
// hosted API.
func NewTavilySearcher(baseURL, apiKey string) *TavilySearcher {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	return &TavilySearcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

type tavilyReq struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Topic      string `json:"topic"`
}

type tavilyResp struct {
	Results []SearchResult `json:"results"`
}

// Search implements LiveSearcher.
func (c *TavilySearcher) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	body, _ := json.Marshal(tavilyReq{
		APIKey:     c.apiKey,
		Query:      query,
		MaxResults: maxResults,
		Topic:      "news",
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("live search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("live search: status %d", resp.StatusCode)
	}

	var result tavilyResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("live search decode: %w", err)
	}
	return result.Results, nil
}
