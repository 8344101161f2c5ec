// Package websearch provides the external web-search collaborator used by the
// discovery fallback of the search engine. Providers share one rate-limited
// HTTP client; adding a provider means implementing the four transform hooks.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/apimart/horosafe"
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Params configures one search call.
type Params struct {
	Query      string
	MaxResults int
}

// Provider adapts one search API's wire format.
type Provider interface {
	Name() string
	Endpoint() string
	Headers(apiKey string) (http.Header, error)
	EncodeRequest(p Params) any
	DecodeResponse(body []byte) ([]Result, error)
}

// Config configures the shared search client.
type Config struct {
	// Provider name: "tavily" or "exa". Default: "tavily".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `json:"-" yaml:"-"`

	// Timeout per search call. Default: 10s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RatePerMinute bounds outbound calls. Default: 30.
	RatePerMinute int `json:"rate_per_minute" yaml:"rate_per_minute"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Provider == "" {
		c.Provider = "tavily"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = 30
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client performs web searches through a configured Provider.
type Client struct {
	provider Provider
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a search Client. Returns an error for unknown provider names.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	p, err := lookupProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("websearch: %s: api key is required", cfg.Provider)
	}
	return &Client{
		provider: p,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.RatePerMinute),
		logger:   cfg.Logger,
	}, nil
}

// Search issues one query and returns decoded results. Provider failures are
// returned as errors; callers treat them as "nothing found" per the fallback
// policy.
func (c *Client) Search(ctx context.Context, p Params) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("websearch: rate limit wait: %w", err)
	}

	headers, err := c.provider.Headers(c.apiKey)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(c.provider.EncodeRequest(p))
	if err != nil {
		return nil, fmt.Errorf("websearch: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.provider.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = headers

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: %s: %w", c.provider.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("websearch: %s: HTTP %d: %s", c.provider.Name(), resp.StatusCode, snippet)
	}

	data, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return nil, fmt.Errorf("websearch: read response: %w", err)
	}
	return c.provider.DecodeResponse(data)
}

func lookupProvider(name string) (Provider, error) {
	switch name {
	case "tavily":
		return &Tavily{}, nil
	case "exa":
		return &Exa{}, nil
	default:
		return nil, fmt.Errorf("websearch: unknown provider %q", name)
	}
}
