package websearch

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Tavily implements Provider for the Tavily Search API.
type Tavily struct{}

func (t *Tavily) Name() string { return "tavily" }

func (t *Tavily) Endpoint() string { return "https://api.tavily.com/search" }

func (t *Tavily) Headers(apiKey string) (http.Header, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily: api key required")
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("Content-Type", "application/json")
	return h, nil
}

func (t *Tavily) EncodeRequest(p Params) any {
	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return map[string]any{
		"query":       p.Query,
		"max_results": maxResults,
	}
}

func (t *Tavily) DecodeResponse(body []byte) ([]Result, error) {
	var raw struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("tavily: parse response: %w", err)
	}

	results := make([]Result, 0, len(raw.Results))
	for _, r := range raw.Results {
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}
