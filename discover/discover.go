// Package discover locates and assembles the documentation corpus for an API:
// a markdown body drawn from the best available source. Sources are tried in
// a fixed order, from authored manifests down to crawling, and the assembled
// corpus is memoized per API.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/apimart/cache"
	"github.com/hazyhaar/apimart/catalog"
	"github.com/hazyhaar/apimart/kit"
	"github.com/hazyhaar/apimart/llm"
	"github.com/hazyhaar/apimart/webfetch"
)

// Docs is an assembled documentation corpus.
type Docs struct {
	Markdown string
	Source   string // "cache", "manifest", "sitemap", "crawl" or "page"
}

// PageRenderer is the fetch collaborator contract, satisfied by
// *webfetch.Renderer.
type PageRenderer interface {
	Fetch(ctx context.Context, url string) (*webfetch.Result, error)
	RenderToMarkdown(ctx context.Context, url string) (string, error)
}

// Config tunes the discovery engine.
type Config struct {
	// MaxPages bounds how many doc pages one corpus may assemble.
	// Default: 8.
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// MinPageChars drops near-empty pages from the corpus. Default: 200.
	MinPageChars int `json:"min_page_chars" yaml:"min_page_chars"`

	// MinCorpusChars is the sanity floor below which a corpus (cached or
	// fresh) does not count as found. Default: 100.
	MinCorpusChars int `json:"min_corpus_chars" yaml:"min_corpus_chars"`

	// PickThreshold is the candidate count above which the LLM page picker
	// narrows the list. Default: 8.
	PickThreshold int `json:"pick_threshold" yaml:"pick_threshold"`

	// PageTimeout bounds each individual page fetch. Default: 12s.
	PageTimeout time.Duration `json:"page_timeout" yaml:"page_timeout"`

	// Concurrency bounds parallel page fetches. Default: 4.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxSitemapURLs bounds how many sitemap entries are considered.
	// Default: 500.
	MaxSitemapURLs int `json:"max_sitemap_urls" yaml:"max_sitemap_urls"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxPages <= 0 {
		c.MaxPages = 8
	}
	if c.MinPageChars <= 0 {
		c.MinPageChars = 200
	}
	if c.MinCorpusChars <= 0 {
		c.MinCorpusChars = 100
	}
	if c.PickThreshold <= 0 {
		c.PickThreshold = 8
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = 12 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxSitemapURLs <= 0 {
		c.MaxSitemapURLs = 500
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine assembles documentation corpora.
type Engine struct {
	render PageRenderer
	llm    llm.Client
	cache  cache.Cache
	cfg    Config
}

// Option customizes optional engine collaborators.
type Option func(*Engine)

// WithLLM enables the page picker for large candidate sets.
func WithLLM(c llm.Client) Option { return func(e *Engine) { e.llm = c } }

// WithCache memoizes assembled corpora.
func WithCache(c cache.Cache) Option { return func(e *Engine) { e.cache = c } }

// New builds a discovery engine over a page renderer.
func New(render PageRenderer, cfg Config, opts ...Option) *Engine {
	cfg.defaults()
	e := &Engine{render: render, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Discover assembles the documentation corpus for an API record. overrideURL,
// when non-empty, replaces the record's doc URL as the crawl root. The first
// source producing a sane corpus wins.
func (e *Engine) Discover(ctx context.Context, api *catalog.ApiRecord, overrideURL string) (*Docs, error) {
	docURL := api.DocURL
	if overrideURL != "" {
		docURL = overrideURL
	}
	if docURL == "" {
		docURL = api.Website
	}
	if docURL == "" {
		return nil, fmt.Errorf("discover: %s: no documentation URL known", api.ID)
	}

	key := cache.DiscoveredDocsKey(api.ID)

	steps := []kit.FallbackStep[string]{
		{Name: "cache", Run: func(ctx context.Context) (string, bool, error) {
			return e.fromCache(ctx, key)
		}},
		{Name: "manifest", Run: func(ctx context.Context) (string, bool, error) {
			return e.fromManifests(ctx, docURL, api.Website)
		}},
		{Name: "sitemap", Run: func(ctx context.Context) (string, bool, error) {
			return e.fromSitemap(ctx, docURL)
		}},
		{Name: "crawl", Run: func(ctx context.Context) (string, bool, error) {
			return e.fromCrawl(ctx, docURL)
		}},
		{Name: "page", Run: func(ctx context.Context) (string, bool, error) {
			return e.fromSinglePage(ctx, docURL)
		}},
	}

	corpus, source := kit.ResolveFallback(ctx, e.cfg.Logger, steps)
	if corpus == "" {
		return nil, fmt.Errorf("discover: %s: no documentation found at %s", api.ID, docURL)
	}

	if source != "cache" {
		cache.SetBestEffort(ctx, e.cache, e.cfg.Logger, key, corpus, cache.TTLDiscoveredDocs)
	}
	e.cfg.Logger.InfoContext(ctx, "docs discovered",
		"api", api.ID, "source", source, "chars", len(corpus))
	return &Docs{Markdown: corpus, Source: source}, nil
}

func (e *Engine) fromCache(ctx context.Context, key string) (string, bool, error) {
	if e.cache == nil {
		return "", false, nil
	}
	raw, found, err := e.cache.Get(ctx, key)
	if err != nil || !found {
		return "", false, err
	}
	// A stored corpus below the sanity floor is treated as a miss rather
	// than served.
	if len(raw) < e.cfg.MinCorpusChars {
		return "", false, nil
	}
	return raw, true, nil
}

func (e *Engine) fromSinglePage(ctx context.Context, docURL string) (string, bool, error) {
	md, err := e.render.RenderToMarkdown(ctx, docURL)
	if err != nil {
		return "", false, err
	}
	if len(md) < e.cfg.MinCorpusChars {
		return "", false, nil
	}
	return md, true, nil
}

// baseHosts returns candidate scheme://host roots for manifest probing:
// the doc URL host, the website host, and its docs. variant.
func baseHosts(docURL, website string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return
		}
		base := u.Scheme + "://" + u.Host
		if !seen[base] {
			seen[base] = true
			out = append(out, base)
		}
	}
	add(docURL)
	if website != "" {
		add(website)
		if u, err := url.Parse(website); err == nil && u.Host != "" && !strings.HasPrefix(u.Host, "docs.") {
			add(u.Scheme + "://docs." + strings.TrimPrefix(u.Host, "www."))
		}
	}
	return out
}
