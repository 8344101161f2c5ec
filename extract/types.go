// Package extract turns a discovered documentation corpus into structured
// endpoint lists and integration evaluations via structured-output LLM calls.
// Both derivations are cached independently; neither failure blocks the other.
package extract

// Parameter describes one endpoint parameter. In is free text from the model
// (typically query, path, header or body); it is advisory, not validated.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
	In          string `json:"in,omitempty"`
}

// Response describes one response entry, keyed by HTTP status-code string in
// Endpoint.Responses.
type Response struct {
	Description string `json:"description,omitempty"`
}

// Endpoint is one extracted API endpoint. (Method, Path) is the uniqueness
// key within an API; re-extraction merges duplicates instead of appending.
type Endpoint struct {
	Method      string              `json:"method"`
	Path        string              `json:"path"`
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	Section     string              `json:"section,omitempty"`
	Parameters  []Parameter         `json:"parameters"`
	Responses   map[string]Response `json:"responses"`
}

// Extraction is the result of one extract call. Markdown is empty when the
// endpoint list was served from the cache; callers needing the corpus for a
// separate evaluation re-derive it through discovery.
type Extraction struct {
	Endpoints []*Endpoint
	Markdown  string
}

// AuthInfo summarizes how an API authenticates callers.
type AuthInfo struct {
	Method  string `json:"method,omitempty"`
	Details string `json:"details,omitempty"`
}

// PricingInfo summarizes an API's pricing.
type PricingInfo struct {
	Model    string `json:"model,omitempty"`
	FreeTier bool   `json:"free_tier"`
	Details  string `json:"details,omitempty"`
}

// RateLimitInfo pairs the documented limits with a concrete recommendation.
type RateLimitInfo struct {
	Description    string `json:"description,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Evaluation is the integration-guide object for one API, blending the
// discovered documentation with the model's background knowledge.
type Evaluation struct {
	Purpose      string        `json:"purpose,omitempty"`
	Auth         AuthInfo      `json:"auth"`
	Pricing      PricingInfo   `json:"pricing"`
	RateLimits   RateLimitInfo `json:"rate_limits"`
	SDKs         []string      `json:"sdks"`
	Gotchas      []string      `json:"gotchas"`
	BestFor      string        `json:"best_for,omitempty"`
	Alternatives []string      `json:"alternatives"`
}
