package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, found, _ := m.Get(ctx, "missing"); found {
		t.Fatal("missing key reported found")
	}

	if err := m.Set(ctx, "k", "v", time.Hour); err != nil {
		t.Fatal(err)
	}
	v, found, err := m.Get(ctx, "k")
	if err != nil || !found || v != "v" {
		t.Fatalf("get: %q found=%v err=%v", v, found, err)
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", "v", time.Minute)

	now = now.Add(2 * time.Minute)
	if _, found, _ := m.Get(ctx, "k"); found {
		t.Fatal("expired key reported found")
	}
	if m.Len() != 0 {
		t.Fatal("expired entry not evicted on read")
	}
}

func TestMemory_NoTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", "v", 0)
	now = now.Add(1000 * time.Hour)
	if _, found, _ := m.Get(ctx, "k"); !found {
		t.Fatal("zero-ttl key expired")
	}
}

func TestMemory_FlushPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, DiscoveredDocsKey("a.com"), "x", 0)
	m.Set(ctx, DiscoveredDocsKey("b.com"), "y", 0)
	m.Set(ctx, EvaluationKey("a.com"), "z", 0)

	n, err := m.FlushPrefix(ctx, "discoveredDocs:")
	if err != nil || n != 2 {
		t.Fatalf("flush: n=%d err=%v", n, err)
	}
	if _, found, _ := m.Get(ctx, EvaluationKey("a.com")); !found {
		t.Fatal("flush crossed namespaces")
	}
}

func TestValidNamespace(t *testing.T) {
	if !ValidNamespace("discoveredDocs") || !ValidNamespace("evaluation") {
		t.Fatal("known namespace rejected")
	}
	if ValidNamespace("") || ValidNamespace("apis") {
		t.Fatal("unknown namespace accepted")
	}
}

func TestKeys_Namespaces(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{DiscoveredDocsKey("stripe.com"), "discoveredDocs:stripe.com"},
		{ExtractedEndpointsKey("stripe.com"), "extractedEndpoints:stripe.com"},
		{EvaluationKey("amazonaws.com:ec2"), "evaluation:amazonaws.com:ec2"},
		{RawDocPageKey("https://x.com/docs"), "rawDocPage:https://x.com/docs"},
	}
	for _, tc := range cases {
		if tc.key != tc.want {
			t.Errorf("key: got %q, want %q", tc.key, tc.want)
		}
	}
}

func TestDiscoveredSearchKey_Normalized(t *testing.T) {
	a := DiscoveredSearchKey("  Payment API ")
	b := DiscoveredSearchKey("payment api")
	if a != b {
		t.Fatalf("normalization: %q != %q", a, b)
	}
	if a == DiscoveredSearchKey("weather api") {
		t.Fatal("distinct queries collided")
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("down")
}

func TestSetBestEffort_SwallowsFailure(t *testing.T) {
	// Must not panic or propagate.
	SetBestEffort(context.Background(), failingCache{}, slog.Default(), "k", "v", time.Minute)
	SetBestEffort(context.Background(), nil, nil, "k", "v", time.Minute)
}
