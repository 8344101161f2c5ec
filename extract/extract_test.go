package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hazyhaar/apimart/cache"
	"github.com/hazyhaar/apimart/catalog"
	"github.com/hazyhaar/apimart/discover"
)

type fakeDiscover struct {
	calls int
	docs  *discover.Docs
	err   error
}

func (f *fakeDiscover) Discover(_ context.Context, _ *catalog.ApiRecord, _ string) (*discover.Docs, error) {
	f.calls++
	return f.docs, f.err
}

type fakeLLM struct {
	calls int
	out   string
	err   error
}

func (f *fakeLLM) CompleteJSON(_ context.Context, _, _ string, _ int) (string, error) {
	f.calls++
	return f.out, f.err
}

var acme = &catalog.ApiRecord{ID: "acme.dev", Title: "Acme", DocURL: "https://docs.acme.dev/api"}

func TestExtractEndpoints_Normalization(t *testing.T) {
	model := &fakeLLM{out: `{"endpoints": [
		{"method": "get", "path": "/v1/users", "summary": "List users"},
		{"method": "", "path": "/v1/broken"},
		{"method": "POST", "path": ""},
		{"method": "DELETE", "path": " /v1/users/{id} "}
	]}`}
	e := New(&fakeDiscover{docs: &discover.Docs{Markdown: "docs"}}, model, Config{})

	ext, err := e.ExtractEndpoints(context.Background(), acme, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Endpoints) != 2 {
		t.Fatalf("got %d endpoints, want entries missing method or path dropped", len(ext.Endpoints))
	}
	if ext.Endpoints[0].Method != "GET" {
		t.Fatalf("method not uppercased: %q", ext.Endpoints[0].Method)
	}
	if ext.Endpoints[0].Parameters == nil || ext.Endpoints[0].Responses == nil {
		t.Fatal("collections not defaulted")
	}
	if ext.Endpoints[1].Path != "/v1/users/{id}" {
		t.Fatalf("path not trimmed: %q", ext.Endpoints[1].Path)
	}
	if ext.Markdown != "docs" {
		t.Fatalf("markdown = %q", ext.Markdown)
	}
}

func TestExtractEndpoints_DuplicatesMerge(t *testing.T) {
	model := &fakeLLM{out: `{"endpoints": [
		{"method": "GET", "path": "/v1/users", "summary": "List users"},
		{"method": "GET", "path": "/v1/users", "summary": "All users", "section": "Users",
		 "parameters": [{"name": "limit", "required": false}]}
	]}`}
	e := New(&fakeDiscover{docs: &discover.Docs{Markdown: "docs"}}, model, Config{})

	ext, err := e.ExtractEndpoints(context.Background(), acme, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Endpoints) != 1 {
		t.Fatalf("got %d endpoints, want (method, path) duplicates merged", len(ext.Endpoints))
	}
	ep := ext.Endpoints[0]
	if ep.Summary != "List users" {
		t.Fatalf("first occurrence did not win: %q", ep.Summary)
	}
	if ep.Section != "Users" || len(ep.Parameters) != 1 {
		t.Fatal("duplicate did not fill blank fields")
	}
}

func TestExtractEndpoints_CacheHitOmitsMarkdown(t *testing.T) {
	mem := cache.NewMemory()
	blob, _ := json.Marshal([]*Endpoint{{Method: "GET", Path: "/v1/users"}})
	if err := mem.Set(context.Background(), cache.ExtractedEndpointsKey("acme.dev"), string(blob), 0); err != nil {
		t.Fatal(err)
	}

	disc := &fakeDiscover{docs: &discover.Docs{Markdown: "docs"}}
	model := &fakeLLM{}
	e := New(disc, model, Config{}, WithCache(mem))

	ext, err := e.ExtractEndpoints(context.Background(), acme, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Endpoints) != 1 {
		t.Fatalf("endpoints: %d", len(ext.Endpoints))
	}
	if ext.Markdown != "" {
		t.Fatalf("cache hit must not carry markdown, got %q", ext.Markdown)
	}
	if disc.calls != 0 || model.calls != 0 {
		t.Fatal("cache hit still ran discovery or extraction")
	}
}

func TestExtractEndpoints_EmptyResultNotCached(t *testing.T) {
	mem := cache.NewMemory()

	// First attempt: discovery finds nothing.
	disc := &fakeDiscover{err: fmt.Errorf("no docs")}
	model := &fakeLLM{out: `{"endpoints": [{"method": "GET", "path": "/v1/users"}]}`}
	e := New(disc, model, Config{}, WithCache(mem))

	ext, err := e.ExtractEndpoints(context.Background(), acme, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Endpoints) != 0 {
		t.Fatalf("endpoints: %d", len(ext.Endpoints))
	}
	if mem.Len() != 0 {
		t.Fatal("empty extraction was cached")
	}

	// Discovery now succeeds; extraction must re-attempt rather than serve
	// a stale empty entry.
	disc.err = nil
	disc.docs = &discover.Docs{Markdown: "docs"}
	ext, err = e.ExtractEndpoints(context.Background(), acme, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Endpoints) != 1 {
		t.Fatalf("retry extracted %d endpoints", len(ext.Endpoints))
	}
	if mem.Len() != 1 {
		t.Fatal("non-empty extraction was not cached")
	}
}

func TestExtractEndpoints_MalformedOutputDegrades(t *testing.T) {
	model := &fakeLLM{out: "the docs describe several endpoints"}
	e := New(&fakeDiscover{docs: &discover.Docs{Markdown: "docs"}}, model, Config{})

	ext, err := e.ExtractEndpoints(context.Background(), acme, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Endpoints) != 0 {
		t.Fatalf("endpoints: %d", len(ext.Endpoints))
	}
	if ext.Markdown != "docs" {
		t.Fatal("markdown dropped on malformed output")
	}
}

func TestExtractEndpoints_BareArrayAccepted(t *testing.T) {
	model := &fakeLLM{out: `[{"method": "GET", "path": "/v1/users"}]`}
	e := New(&fakeDiscover{docs: &discover.Docs{Markdown: "docs"}}, model, Config{})

	ext, err := e.ExtractEndpoints(context.Background(), acme, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ext.Endpoints) != 1 {
		t.Fatalf("endpoints: %d", len(ext.Endpoints))
	}
}

func TestEvaluate_SuccessCached(t *testing.T) {
	mem := cache.NewMemory()
	model := &fakeLLM{out: `{"purpose": "Payments", "auth": {"method": "api_key"},
		"pricing": {"model": "usage", "free_tier": true},
		"rate_limits": {"description": "100 rps", "recommendation": "batch writes"},
		"sdks": ["acme-go"], "gotchas": ["idempotency keys expire after 24h"],
		"best_for": "payments", "alternatives": ["stripe.com", "adyen.com"]}`}
	e := New(&fakeDiscover{docs: &discover.Docs{Markdown: "docs"}}, model, Config{}, WithCache(mem))

	eval, err := e.Evaluate(context.Background(), acme, "docs", "")
	if err != nil {
		t.Fatal(err)
	}
	if eval == nil || eval.Purpose != "Payments" || !eval.Pricing.FreeTier {
		t.Fatalf("evaluation: %+v", eval)
	}

	// Second call is served from cache without another model call.
	if _, err := e.Evaluate(context.Background(), acme, "docs", ""); err != nil {
		t.Fatal(err)
	}
	if model.calls != 1 {
		t.Fatalf("model called %d times, want 1", model.calls)
	}
}

func TestEvaluate_FailureNotCached(t *testing.T) {
	mem := cache.NewMemory()
	model := &fakeLLM{err: fmt.Errorf("quota")}
	e := New(&fakeDiscover{docs: &discover.Docs{Markdown: "docs"}}, model, Config{}, WithCache(mem))

	eval, err := e.Evaluate(context.Background(), acme, "docs", "")
	if err != nil {
		t.Fatal(err)
	}
	if eval != nil {
		t.Fatalf("evaluation: %+v", eval)
	}
	if mem.Len() != 0 {
		t.Fatal("failure was cached")
	}

	// Retry succeeds once the provider recovers.
	model.err = nil
	model.out = `{"purpose": "Payments"}`
	eval, err = e.Evaluate(context.Background(), acme, "docs", "")
	if err != nil {
		t.Fatal(err)
	}
	if eval == nil || eval.Purpose != "Payments" {
		t.Fatalf("retry evaluation: %+v", eval)
	}
}

func TestEvaluate_RerunsDiscoveryWhenMarkdownMissing(t *testing.T) {
	disc := &fakeDiscover{docs: &discover.Docs{Markdown: "docs"}}
	model := &fakeLLM{out: `{"purpose": "Payments"}`}
	e := New(disc, model, Config{})

	if _, err := e.Evaluate(context.Background(), acme, "", ""); err != nil {
		t.Fatal(err)
	}
	if disc.calls != 1 {
		t.Fatalf("discovery ran %d times, want 1", disc.calls)
	}

	// With markdown supplied, discovery stays idle.
	disc.calls = 0
	if _, err := e.Evaluate(context.Background(), acme, "docs", ""); err != nil {
		t.Fatal(err)
	}
	if disc.calls != 0 {
		t.Fatal("discovery ran despite supplied markdown")
	}
}
