package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/apimart/cache"
)

func allowAll(string) error { return nil }

func testRenderer(c cache.Cache, maxChars int) *Renderer {
	return New(Config{
		URLValidator: allowAll,
		Cache:        c,
		MaxChars:     maxChars,
	})
}

func TestRenderToMarkdown_HTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Users API</h1><p>List all <b>users</b>.</p><script>evil()</script></body></html>`))
	}))
	defer srv.Close()

	r := testRenderer(nil, 0)
	md, err := r.RenderToMarkdown(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "Users API") || !strings.Contains(md, "users") {
		t.Fatalf("markdown missing content: %q", md)
	}
	if strings.Contains(md, "evil()") {
		t.Fatalf("script content survived sanitization: %q", md)
	}
}

func TestRenderToMarkdown_PlainTextPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("# Docs\n\nGET /v1/users\n"))
	}))
	defer srv.Close()

	r := testRenderer(nil, 0)
	md, err := r.RenderToMarkdown(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if md != "# Docs\n\nGET /v1/users" {
		t.Fatalf("passthrough altered body: %q", md)
	}
}

func TestRenderToMarkdown_CacheHit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	mem := cache.NewMemory()
	r := testRenderer(mem, 0)

	if _, err := r.RenderToMarkdown(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RenderToMarkdown(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("server hit %d times, want 1 (second call should be cached)", calls)
	}
}

func TestRenderToMarkdown_Truncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("a", 5000)))
	}))
	defer srv.Close()

	r := testRenderer(nil, 1000)
	md, err := r.RenderToMarkdown(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(md) != 1000 {
		t.Fatalf("truncation: got %d chars", len(md))
	}
}

func TestFetch_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := testRenderer(nil, 0)
	if _, err := r.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("want error on 404")
	}
}

func TestFetch_SSRFBlocked(t *testing.T) {
	// Default validator rejects loopback httptest addresses.
	r := New(Config{})
	if _, err := r.Fetch(context.Background(), "http://127.0.0.1:9/"); err == nil {
		t.Fatal("want SSRF block")
	}
}

func TestIsHTML(t *testing.T) {
	if !IsHTML("text/html; charset=utf-8", nil) {
		t.Fatal("content-type not detected")
	}
	if !IsHTML("", []byte("\n <!DOCTYPE HTML><html>")) {
		t.Fatal("sniffed doctype not detected")
	}
	if IsHTML("text/plain", []byte("# markdown")) {
		t.Fatal("plain text misdetected")
	}
}

func TestTruncate_UTF8Boundary(t *testing.T) {
	s := "héllo" // é is 2 bytes
	out := Truncate(s, 2)
	if out != "h" {
		t.Fatalf("split rune: %q", out)
	}
	if Truncate("abc", 10) != "abc" {
		t.Fatal("short string altered")
	}
}

func TestTruncate_InvalidByteBeforeBoundary(t *testing.T) {
	// A stray byte early in the body must not discard everything after it.
	s := "header\xff" + strings.Repeat("x", 100)
	out := Truncate(s, 50)
	if len(out) != 50 {
		t.Fatalf("len = %d, want the full 50-byte budget", len(out))
	}
	if !strings.HasPrefix(out, "header\xff") {
		t.Fatalf("prefix altered: %q", out[:8])
	}
}
