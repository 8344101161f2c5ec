package websearch

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Exa implements Provider for the Exa AI search API.
type Exa struct{}

func (e *Exa) Name() string { return "exa" }

func (e *Exa) Endpoint() string { return "https://api.exa.ai/search" }

func (e *Exa) Headers(apiKey string) (http.Header, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("exa: api key required")
	}
	h := http.Header{}
	h.Set("x-api-key", apiKey)
	h.Set("Content-Type", "application/json")
	return h, nil
}

func (e *Exa) EncodeRequest(p Params) any {
	numResults := p.MaxResults
	if numResults <= 0 {
		numResults = 10
	}
	if numResults > 100 {
		numResults = 100
	}
	return map[string]any{
		"query":      p.Query,
		"numResults": numResults,
		"contents": map[string]any{
			"text": true,
		},
	}
}

func (e *Exa) DecodeResponse(body []byte) ([]Result, error) {
	var raw struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
			Text  string `json:"text"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("exa: parse response: %w", err)
	}

	results := make([]Result, 0, len(raw.Results))
	for _, r := range raw.Results {
		snippet := r.Text
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: snippet,
		})
	}
	return results, nil
}
