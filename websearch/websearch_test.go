package websearch

import (
	"testing"
)

func TestTavily_DecodeResponse(t *testing.T) {
	body := []byte(`{"results":[{"title":"Stripe API","url":"https://stripe.com/docs/api","content":"Payments reference"}]}`)
	p := &Tavily{}
	results, err := p.DecodeResponse(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("len: %d", len(results))
	}
	if results[0].URL != "https://stripe.com/docs/api" || results[0].Snippet != "Payments reference" {
		t.Fatalf("result: %+v", results[0])
	}
}

func TestTavily_DecodeGarbage(t *testing.T) {
	if _, err := (&Tavily{}).DecodeResponse([]byte("<html>")); err == nil {
		t.Fatal("want parse error")
	}
}

func TestExa_DecodeResponse_TruncatesSnippet(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	body := []byte(`{"results":[{"title":"T","url":"https://x.dev","text":"` + string(long) + `"}]}`)
	results, err := (&Exa{}).DecodeResponse(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(results[0].Snippet) != 500 {
		t.Fatalf("snippet length: %d", len(results[0].Snippet))
	}
}

func TestExa_EncodeRequest_Caps(t *testing.T) {
	req := (&Exa{}).EncodeRequest(Params{Query: "q", MaxResults: 500}).(map[string]any)
	if req["numResults"] != 100 {
		t.Fatalf("numResults: %v", req["numResults"])
	}
}

func TestHeaders(t *testing.T) {
	h, err := (&Tavily{}).Headers("key123")
	if err != nil {
		t.Fatal(err)
	}
	if h.Get("Authorization") != "Bearer key123" {
		t.Fatalf("auth header: %q", h.Get("Authorization"))
	}
	if _, err := (&Exa{}).Headers(""); err == nil {
		t.Fatal("empty key accepted")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "bing", APIKey: "k"}); err == nil {
		t.Fatal("unknown provider accepted")
	}
	if _, err := New(Config{Provider: "exa"}); err == nil {
		t.Fatal("missing key accepted")
	}
}
