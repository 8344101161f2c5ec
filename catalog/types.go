// Package catalog holds the API marketplace data model, the brand grouper,
// and the hybrid search engine that feeds both the web search box and the
// agent-facing search tool.
package catalog

// ApiRecord is one documented API surface in the store. The id is either a
// bare domain ("stripe.com") or a domain with a colon-delimited sub-scope
// ("amazonaws.com:ec2"). Records are written only by offline ingestion; the
// runtime reads them.
type ApiRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TLDR        string    `json:"tldr,omitempty"`
	Website     string    `json:"website,omitempty"`
	DocURL      string    `json:"doc_url,omitempty"`
	Logo        string    `json:"logo,omitempty"`
	Embedding   []float32 `json:"-"`
}

// RankedRecord is an ApiRecord with its hybrid relevance score.
type RankedRecord struct {
	ApiRecord
	Score float64 `json:"score"`
}

// Brand aggregates the ApiRecords sharing a brand key into one listing entry.
// Derived per call, never stored.
type Brand struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Logo        string `json:"logo,omitempty"`
	Website     string `json:"website,omitempty"`
	DocURL      string `json:"doc_url,omitempty"`
	ApiCount    int    `json:"api_count"`
}

// DiscoveredApi is a transient record for an API found via web discovery
// rather than the primary store. Never persisted.
type DiscoveredApi struct {
	ID          string `json:"id"` // hostname
	Title       string `json:"title"`
	Description string `json:"description"`
	DocURL      string `json:"doc_url"`
	Source      string `json:"source"` // always "discovered"
}
