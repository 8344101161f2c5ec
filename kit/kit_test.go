package kit

import (
	"context"
	"errors"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "endpoint", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestContext_Defaults(t *testing.T) {
	ctx := context.Background()
	if v := GetRequestID(ctx); v != "" {
		t.Fatalf("request_id default: got %q", v)
	}
	if v := GetTransport(ctx); v != "http" {
		t.Fatalf("transport default: got %q, want 'http'", v)
	}
	ctx = WithRequestID(ctx, "req_abc")
	ctx = WithTransport(ctx, "mcp")
	ctx = WithCaller(ctx, "agent")
	if v := GetRequestID(ctx); v != "req_abc" {
		t.Fatalf("request_id: got %q", v)
	}
	if v := GetTransport(ctx); v != "mcp" {
		t.Fatalf("transport: got %q", v)
	}
	if v := GetCaller(ctx); v != "agent" {
		t.Fatalf("caller: got %q", v)
	}
}

func TestResolveFallback_ShortCircuit(t *testing.T) {
	var tried []string
	step := func(name string, v string, ok bool, err error) FallbackStep[string] {
		return FallbackStep[string]{Name: name, Run: func(context.Context) (string, bool, error) {
			tried = append(tried, name)
			return v, ok, err
		}}
	}

	v, name := ResolveFallback(context.Background(), nil, []FallbackStep[string]{
		step("a", "", false, nil),
		step("b", "", false, errors.New("boom")),
		step("c", "hit", true, nil),
		step("d", "late", true, nil),
	})
	if v != "hit" || name != "c" {
		t.Fatalf("resolve: got %q from %q", v, name)
	}
	if len(tried) != 3 {
		t.Fatalf("tried %v, want a,b,c only", tried)
	}
}

func TestResolveFallback_AllEmpty(t *testing.T) {
	v, name := ResolveFallback(context.Background(), nil, []FallbackStep[int]{
		{Name: "only", Run: func(context.Context) (int, bool, error) { return 0, false, nil }},
	})
	if v != 0 || name != "" {
		t.Fatalf("got %d from %q, want zero value and empty name", v, name)
	}
}

func TestResolveFallback_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, name := ResolveFallback(ctx, nil, []FallbackStep[int]{
		{Name: "x", Run: func(context.Context) (int, bool, error) { called = true; return 1, true, nil }},
	})
	if called || name != "" {
		t.Fatal("cancelled context must not run steps")
	}
}
