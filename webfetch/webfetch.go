// Package webfetch implements the markdown-rendering fetch provider: an
// SSRF-guarded bounded HTTP fetch whose HTML responses are sanitized and
// converted to markdown. Non-HTML bodies (llms.txt manifests, raw markdown,
// sitemaps) pass through untouched. Rendered pages are memoized per URL.
package webfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/apimart/cache"
	"github.com/hazyhaar/apimart/horosafe"
)

// Result contains the outcome of a raw fetch.
type Result struct {
	Body        []byte
	StatusCode  int
	ContentType string
}

// Config configures the renderer.
type Config struct {
	// Timeout per HTTP request. Default: 15s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxBytes caps the response body read. Default: 5MB.
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`

	// MaxChars truncates rendered markdown to bound downstream LLM input.
	// Default: 40000.
	MaxChars int `json:"max_chars" yaml:"max_chars"`

	// UserAgent sent with requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// URLValidator validates URLs before fetch (SSRF prevention).
	// Default: horosafe.ValidateURL. Override in tests with httptest servers.
	URLValidator func(string) error `json:"-" yaml:"-"`

	// Cache memoizes rendered pages under rawDocPage keys. Optional.
	Cache cache.Cache `json:"-" yaml:"-"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5 * 1024 * 1024
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 40_000
	}
	if c.UserAgent == "" {
		c.UserAgent = "apimart/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Renderer fetches URLs and renders their content to markdown.
type Renderer struct {
	client    *http.Client
	cfg       Config
	sanitizer *bluemonday.Policy
	md        *converter.Converter
}

// New creates a Renderer with SSRF protection on redirects.
func New(cfg Config) *Renderer {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Renderer{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		cfg:       cfg,
		sanitizer: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Fetch retrieves a URL with the SSRF guard and body cap applied. A non-2xx
// status is an error.
func (r *Renderer) Fetch(ctx context.Context, url string) (*Result, error) {
	if err := r.cfg.URLValidator(url); err != nil {
		return nil, fmt.Errorf("webfetch: URL blocked: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("webfetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webfetch: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("webfetch: %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("webfetch: read body: %w", err)
	}
	return &Result{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// RenderToMarkdown fetches a URL and returns its content as markdown,
// truncated to the configured character budget. HTML is sanitized and
// converted; anything else passes through as-is. Results are cached per URL.
func (r *Renderer) RenderToMarkdown(ctx context.Context, url string) (string, error) {
	key := cache.RawDocPageKey(url)
	if r.cfg.Cache != nil {
		if cached, found, err := r.cfg.Cache.Get(ctx, key); err == nil && found && cached != "" {
			return cached, nil
		}
	}

	res, err := r.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	text := string(res.Body)
	if IsHTML(res.ContentType, res.Body) {
		clean := r.sanitizer.Sanitize(text)
		converted, err := r.md.ConvertString(clean, converter.WithDomain(url))
		if err != nil || strings.TrimSpace(converted) == "" {
			// Conversion failure degrades to the sanitized text rather than
			// failing the page.
			r.cfg.Logger.DebugContext(ctx, "markdown conversion failed, using sanitized text",
				"url", url, "error", err)
			converted = clean
		}
		text = converted
	}

	text = strings.TrimSpace(text)
	text = Truncate(text, r.cfg.MaxChars)

	if text != "" {
		cache.SetBestEffort(ctx, r.cfg.Cache, r.cfg.Logger, key, text, cache.TTLRawDocPage)
	}
	return text, nil
}

// IsHTML reports whether a response is HTML, by content type or sniffed body.
func IsHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
// Bytes before the boundary are left as they are, valid or not; fetched
// bodies carry no encoding guarantee.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back over at most three continuation bytes so a multi-byte rune is
	// never split at the boundary.
	for i := 0; i < utf8.UTFMax-1 && n > 0 && !utf8.RuneStart(s[n]); i++ {
		n--
	}
	return s[:n]
}
