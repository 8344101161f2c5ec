package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/apimart/cache"
	"github.com/hazyhaar/apimart/catalog"
	"github.com/hazyhaar/apimart/discover"
	"github.com/hazyhaar/apimart/llm"
	"github.com/hazyhaar/apimart/webfetch"
)

// DocDiscoverer is the discovery collaborator contract, satisfied by
// *discover.Engine.
type DocDiscoverer interface {
	Discover(ctx context.Context, api *catalog.ApiRecord, overrideURL string) (*discover.Docs, error)
}

// Config tunes the extraction engine.
type Config struct {
	// CharBudget truncates the corpus handed to the model. Default: 80000.
	CharBudget int `json:"char_budget" yaml:"char_budget"`

	// MaxTokens for the endpoint extraction call. Default: 8192.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// EvalMaxTokens for the evaluation call. Default: 2048.
	EvalMaxTokens int `json:"eval_max_tokens" yaml:"eval_max_tokens"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.CharBudget <= 0 {
		c.CharBudget = 80_000
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8192
	}
	if c.EvalMaxTokens <= 0 {
		c.EvalMaxTokens = 2048
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine derives endpoint lists and evaluations from documentation corpora.
type Engine struct {
	discover DocDiscoverer
	llm      llm.Client
	cache    cache.Cache
	cfg      Config
}

// Option customizes optional engine collaborators.
type Option func(*Engine)

// WithCache memoizes extractions and evaluations.
func WithCache(c cache.Cache) Option { return func(e *Engine) { e.cache = c } }

// New builds an extraction engine.
func New(d DocDiscoverer, client llm.Client, cfg Config, opts ...Option) *Engine {
	cfg.defaults()
	e := &Engine{discover: d, llm: client, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const extractSystem = `You extract API endpoints from documentation.
Return only a JSON object {"endpoints": [...]} where each endpoint is
{"method": string, "path": string, "summary": string, "description": string,
"section": string, "parameters": [{"name": string, "type": string,
"required": boolean, "description": string, "in": string}],
"responses": {"<status code>": {"description": string}}}.
Extract every endpoint the documentation describes. The same endpoint may
appear on several pages; list it once. If the text documents no endpoints,
return {"endpoints": []}. Never invent endpoints that are not in the text.`

// ExtractEndpoints returns the endpoint list for an API. A cached non-empty
// list is served with Markdown empty; otherwise the corpus is discovered,
// extracted and the non-empty result cached. Provider failures yield an empty
// list, never an error, so the assembled detail response can still carry the
// rest of its fields.
func (e *Engine) ExtractEndpoints(ctx context.Context, api *catalog.ApiRecord, docURL string) (*Extraction, error) {
	if e.llm == nil {
		return &Extraction{Endpoints: []*Endpoint{}}, nil
	}
	key := cache.ExtractedEndpointsKey(api.ID)
	if e.cache != nil {
		if raw, found, err := e.cache.Get(ctx, key); err == nil && found {
			var cached []*Endpoint
			if err := json.Unmarshal([]byte(raw), &cached); err == nil && len(cached) > 0 {
				return &Extraction{Endpoints: cached}, nil
			}
		}
	}

	docs, err := e.discover.Discover(ctx, api, docURL)
	if err != nil {
		e.cfg.Logger.InfoContext(ctx, "no docs to extract from", "api", api.ID, "error", err)
		return &Extraction{Endpoints: []*Endpoint{}}, nil
	}

	corpus := webfetch.Truncate(docs.Markdown, e.cfg.CharBudget)
	user := fmt.Sprintf("API: %s (%s)\n\nDocumentation:\n\n%s", api.Title, api.ID, corpus)

	raw, err := e.llm.CompleteJSON(ctx, extractSystem, user, e.cfg.MaxTokens)
	if err != nil {
		e.cfg.Logger.WarnContext(ctx, "endpoint extraction failed", "api", api.ID, "error", err)
		return &Extraction{Endpoints: []*Endpoint{}, Markdown: docs.Markdown}, nil
	}

	endpoints, err := decodeEndpoints(raw)
	if err != nil {
		e.cfg.Logger.WarnContext(ctx, "endpoint extraction output malformed", "api", api.ID, "error", err)
		return &Extraction{Endpoints: []*Endpoint{}, Markdown: docs.Markdown}, nil
	}
	endpoints = normalizeEndpoints(endpoints)

	if len(endpoints) > 0 && e.cache != nil {
		// Empty lists are never cached; a later attempt with better docs
		// must be able to succeed.
		if blob, err := json.Marshal(endpoints); err == nil {
			cache.SetBestEffort(ctx, e.cache, e.cfg.Logger, key, string(blob), cache.TTLExtractedEndpoints)
		}
	}
	e.cfg.Logger.InfoContext(ctx, "endpoints extracted", "api", api.ID, "count", len(endpoints))
	return &Extraction{Endpoints: endpoints, Markdown: docs.Markdown}, nil
}

// decodeEndpoints accepts either the documented object shape or a bare array.
func decodeEndpoints(raw string) ([]*Endpoint, error) {
	var wrapped struct {
		Endpoints []*Endpoint `json:"endpoints"`
	}
	if err := llm.DecodeJSON(raw, &wrapped); err == nil && wrapped.Endpoints != nil {
		return wrapped.Endpoints, nil
	}
	var bare []*Endpoint
	if err := llm.DecodeJSON(raw, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

// normalizeEndpoints uppercases methods, drops entries missing method or
// path, defaults nil collections and merges (method, path) duplicates. The
// first occurrence wins; later duplicates only fill fields it left blank.
func normalizeEndpoints(in []*Endpoint) []*Endpoint {
	type epKey struct{ method, path string }
	index := make(map[epKey]*Endpoint)
	var out []*Endpoint

	for _, ep := range in {
		if ep == nil {
			continue
		}
		ep.Method = strings.ToUpper(strings.TrimSpace(ep.Method))
		ep.Path = strings.TrimSpace(ep.Path)
		if ep.Method == "" || ep.Path == "" {
			continue
		}
		if ep.Parameters == nil {
			ep.Parameters = []Parameter{}
		}
		if ep.Responses == nil {
			ep.Responses = map[string]Response{}
		}

		key := epKey{ep.Method, ep.Path}
		if prev, ok := index[key]; ok {
			mergeEndpoint(prev, ep)
			continue
		}
		index[key] = ep
		out = append(out, ep)
	}
	if out == nil {
		out = []*Endpoint{}
	}
	return out
}

func mergeEndpoint(dst, src *Endpoint) {
	if dst.Summary == "" {
		dst.Summary = src.Summary
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Section == "" {
		dst.Section = src.Section
	}
	if len(dst.Parameters) == 0 {
		dst.Parameters = src.Parameters
	}
	if len(dst.Responses) == 0 {
		dst.Responses = src.Responses
	}
}
