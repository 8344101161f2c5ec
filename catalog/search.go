package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hazyhaar/apimart/cache"
	"github.com/hazyhaar/apimart/embedder"
	"github.com/hazyhaar/apimart/kit"
	"github.com/hazyhaar/apimart/llm"
	"github.com/hazyhaar/apimart/websearch"
)

// WebSearcher is the live web-search collaborator contract, satisfied by
// *websearch.Client.
type WebSearcher interface {
	Search(ctx context.Context, p Params) ([]websearch.Result, error)
}

// Params aliases the websearch request shape so fakes need not import it twice.
type Params = websearch.Params

// SearchItem is one entry in a search response. Store-backed items carry brand
// fields; discovered items carry Source "discovered".
type SearchItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Logo        string  `json:"logo,omitempty"`
	Website     string  `json:"website,omitempty"`
	DocURL      string  `json:"doc_url,omitempty"`
	ApiCount    int     `json:"api_count,omitempty"`
	Score       float64 `json:"score,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// SearchResult is the uniform search response shape across transports.
type SearchResult struct {
	Count  int           `json:"count"`
	Apis   []*SearchItem `json:"apis"`
	Source string        `json:"source"`
}

// Listing is one page of the unfiltered brand-grouped catalog.
type Listing struct {
	Brands []*Brand `json:"brands"`
	Count  int      `json:"count"`
}

// SearchConfig tunes the hybrid search engine.
type SearchConfig struct {
	// MatchCount is how many rows hybrid ranking fetches before grouping.
	// Default: 120.
	MatchCount int `json:"match_count" yaml:"match_count"`

	// LexicalLimit bounds the substring fallback scan. Default: 200.
	LexicalLimit int `json:"lexical_limit" yaml:"lexical_limit"`

	// MaxResults caps any response regardless of the caller's limit.
	// Default: 50.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MinQueryLen is the minimum query length for embedding the query.
	// Shorter queries skip straight to the lexical tier. Default: 3.
	MinQueryLen int `json:"min_query_len" yaml:"min_query_len"`

	// ScoreThreshold drops hybrid rows scoring below it. Default: 0.05.
	ScoreThreshold float64 `json:"score_threshold" yaml:"score_threshold"`

	// DiscoverResults is how many web results feed the discovery tier.
	// Default: 8.
	DiscoverResults int `json:"discover_results" yaml:"discover_results"`
}

func (c *SearchConfig) defaults() {
	if c.MatchCount <= 0 {
		c.MatchCount = 120
	}
	if c.LexicalLimit <= 0 {
		c.LexicalLimit = 200
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 50
	}
	if c.MinQueryLen <= 0 {
		c.MinQueryLen = 3
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = 0.05
	}
	if c.DiscoverResults <= 0 {
		c.DiscoverResults = 8
	}
}

// Engine runs the tiered search chain: hybrid rank, lexical substring match,
// then live web discovery. Each tier runs only when the previous one produced
// nothing.
type Engine struct {
	store    Store
	embedder embedder.Embedder
	web      WebSearcher
	llm      llm.Client
	cache    cache.Cache
	logger   *slog.Logger
	cfg      SearchConfig
}

// EngineOption customizes optional engine collaborators.
type EngineOption func(*Engine)

// WithEmbedder enables the hybrid tier.
func WithEmbedder(e embedder.Embedder) EngineOption {
	return func(eng *Engine) { eng.embedder = e }
}

// WithWebSearch enables the discovery tier.
func WithWebSearch(w WebSearcher) EngineOption {
	return func(eng *Engine) { eng.web = w }
}

// WithLLM enables LLM filtering of discovery results.
func WithLLM(c llm.Client) EngineOption {
	return func(eng *Engine) { eng.llm = c }
}

// WithCache memoizes discovery responses.
func WithCache(c cache.Cache) EngineOption {
	return func(eng *Engine) { eng.cache = c }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(eng *Engine) { eng.logger = l }
}

// NewEngine builds a search engine over the record store. Collaborators left
// unset disable their tier.
func NewEngine(store Store, cfg SearchConfig, opts ...EngineOption) *Engine {
	cfg.defaults()
	e := &Engine{store: store, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search resolves a free-text query against the catalog. A blank query
// short-circuits to an empty result without touching any provider.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchResult{Count: 0, Apis: []*SearchItem{}, Source: "empty"}, nil
	}

	n := limit
	if n <= 0 || n > e.cfg.MaxResults {
		n = e.cfg.MaxResults
	}

	steps := []kit.FallbackStep[*SearchResult]{
		{Name: "hybrid", Run: func(ctx context.Context) (*SearchResult, bool, error) {
			return e.searchHybrid(ctx, query, n)
		}},
		{Name: "lexical", Run: func(ctx context.Context) (*SearchResult, bool, error) {
			return e.searchLexical(ctx, query, n)
		}},
		{Name: "discovered", Run: func(ctx context.Context) (*SearchResult, bool, error) {
			return e.searchDiscovered(ctx, query, n)
		}},
	}

	res, source := kit.ResolveFallback(ctx, e.logger, steps)
	if res == nil {
		return &SearchResult{Count: 0, Apis: []*SearchItem{}, Source: "none"}, nil
	}
	e.logger.InfoContext(ctx, "search resolved",
		"query", query, "source", source, "count", res.Count, "caller", kit.GetCaller(ctx))
	return res, nil
}

// List returns one page of the brand-grouped catalog with the total record
// count, for the unfiltered listing surface.
func (e *Engine) List(ctx context.Context, offset, limit int) (*Listing, error) {
	if limit <= 0 || limit > e.cfg.MaxResults {
		limit = e.cfg.MaxResults
	}
	records, total, err := e.store.RangePage(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list page: %w", err)
	}
	brands := GroupBrands(records)
	return &Listing{Brands: brands, Count: total}, nil
}

func (e *Engine) searchHybrid(ctx context.Context, query string, n int) (*SearchResult, bool, error) {
	if e.embedder == nil || len(query) < e.cfg.MinQueryLen {
		return nil, false, nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		// No embedding means no hybrid tier; the lexical fallback runs next.
		e.logger.WarnContext(ctx, "query embedding failed", "error", err)
		return nil, false, nil
	}

	ranked, err := e.store.HybridRank(ctx, query, vec, e.cfg.MatchCount)
	if err != nil {
		return nil, false, fmt.Errorf("hybrid rank: %w", err)
	}

	var kept []*ApiRecord
	scores := make(map[string]float64, len(ranked))
	for _, row := range ranked {
		if row.Score < e.cfg.ScoreThreshold {
			continue
		}
		r := row.ApiRecord
		kept = append(kept, &r)
		key := BrandKey(r.ID)
		if row.Score > scores[key] {
			scores[key] = row.Score
		}
	}
	if len(kept) == 0 {
		return nil, false, nil
	}

	items := brandItems(GroupBrands(kept), n)
	for _, it := range items {
		it.Score = scores[it.ID]
	}
	return &SearchResult{Count: len(items), Apis: items, Source: "hybrid"}, true, nil
}

func (e *Engine) searchLexical(ctx context.Context, query string, n int) (*SearchResult, bool, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, false, nil
	}
	fields := []string{"id", "title", "description", "tldr"}
	records, err := e.store.FilterBySubstring(ctx, fields, terms, e.cfg.LexicalLimit)
	if err != nil {
		return nil, false, fmt.Errorf("substring filter: %w", err)
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	items := brandItems(GroupBrands(records), n)
	return &SearchResult{Count: len(items), Apis: items, Source: "lexical"}, true, nil
}

func (e *Engine) searchDiscovered(ctx context.Context, query string, n int) (*SearchResult, bool, error) {
	if e.web == nil {
		return nil, false, nil
	}

	key := cache.DiscoveredSearchKey(query)
	if e.cache != nil {
		if raw, found, err := e.cache.Get(ctx, key); err == nil && found {
			var apis []*DiscoveredApi
			if err := json.Unmarshal([]byte(raw), &apis); err == nil {
				return discoveredResult(apis, n), len(apis) > 0, nil
			}
		}
	}

	hits, err := e.web.Search(ctx, Params{
		Query:      query + " API documentation developer reference",
		MaxResults: e.cfg.DiscoverResults,
	})
	if err != nil {
		return nil, false, fmt.Errorf("web search: %w", err)
	}
	apis := e.rankDiscovered(ctx, query, hits)

	if e.cache != nil {
		// Empty outcomes are cached too so repeated misses stay cheap.
		if raw, err := json.Marshal(apis); err == nil {
			cache.SetBestEffort(ctx, e.cache, e.logger, key, string(raw), cache.TTLDiscoveredSearch)
		}
	}
	return discoveredResult(apis, n), len(apis) > 0, nil
}

// rankDiscovered turns raw web hits into discovered API entries, one per
// hostname. With an LLM wired in, results are filtered to those that actually
// look like API documentation; otherwise all hits pass through.
func (e *Engine) rankDiscovered(ctx context.Context, query string, hits []websearch.Result) []*DiscoveredApi {
	if len(hits) == 0 {
		return []*DiscoveredApi{}
	}

	type pick struct {
		Index       int    `json:"index"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	picks := make([]pick, 0, len(hits))
	useAll := e.llm == nil

	if e.llm != nil {
		var b strings.Builder
		for i, h := range hits {
			fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i, h.Title, h.URL, h.Snippet)
		}
		system := "You identify API documentation among web search results. " +
			"Return only a JSON array of objects {\"index\": number, \"title\": string, \"description\": string} " +
			"for results that are developer API documentation relevant to the query. " +
			"Exclude blogs, news, pricing pages and product marketing. Return [] when nothing qualifies."
		user := fmt.Sprintf("Query: %s\n\nResults:\n%s", query, b.String())

		raw, err := e.llm.CompleteJSON(ctx, system, user, 1024)
		if err != nil {
			e.logger.WarnContext(ctx, "discovery rank failed, passing results through", "error", err)
			useAll = true
		} else if derr := llm.DecodeJSON(raw, &picks); derr != nil {
			e.logger.WarnContext(ctx, "discovery rank output malformed, passing results through", "error", derr)
			picks = picks[:0]
			useAll = true
		}
	}

	if useAll {
		for i, h := range hits {
			picks = append(picks, pick{Index: i, Title: h.Title, Description: h.Snippet})
		}
	}

	seen := make(map[string]bool)
	apis := make([]*DiscoveredApi, 0, len(picks))
	for _, p := range picks {
		if p.Index < 0 || p.Index >= len(hits) {
			continue
		}
		host := hostnameOf(hits[p.Index].URL)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		title := p.Title
		if title == "" {
			title = hits[p.Index].Title
		}
		apis = append(apis, &DiscoveredApi{
			ID:          host,
			Title:       title,
			Description: p.Description,
			DocURL:      hits[p.Index].URL,
			Source:      "discovered",
		})
	}
	return apis
}

func discoveredResult(apis []*DiscoveredApi, n int) *SearchResult {
	if len(apis) > n {
		apis = apis[:n]
	}
	items := make([]*SearchItem, 0, len(apis))
	for _, a := range apis {
		items = append(items, &SearchItem{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			DocURL:      a.DocURL,
			Source:      "discovered",
		})
	}
	return &SearchResult{Count: len(items), Apis: items, Source: "discovered"}
}

func brandItems(brands []*Brand, n int) []*SearchItem {
	if len(brands) > n {
		brands = brands[:n]
	}
	items := make([]*SearchItem, 0, len(brands))
	for _, b := range brands {
		items = append(items, &SearchItem{
			ID:          b.ID,
			Title:       b.Title,
			Description: b.Description,
			Logo:        b.Logo,
			Website:     b.Website,
			DocURL:      b.DocURL,
			ApiCount:    b.ApiCount,
		})
	}
	return items
}

func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
