package marketplace

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/apimart/discover"
	"github.com/hazyhaar/apimart/extract"
	"github.com/hazyhaar/apimart/kit"
)

var testMCPImpl = &mcp.Implementation{Name: "apimart-test", Version: "0.1.0"}

func mcpSession(t *testing.T, svc *Service) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

// payloadJSON strips the disclaimer prefix and returns the JSON body.
func payloadJSON(t *testing.T, text string) string {
	t.Helper()
	if !strings.HasPrefix(text, Disclaimer) {
		t.Fatalf("payload not prefixed with disclaimer: %q", text[:min(len(text), 80)])
	}
	i := strings.IndexAny(text, "{[")
	if i < 0 {
		t.Fatalf("no JSON in payload: %q", text)
	}
	return text[i:]
}

func TestMCP_SearchApis(t *testing.T) {
	svc := newTestService(acmeStore(), &fakeExtractor{}, &fakeDiscoverer{})
	session := mcpSession(t, svc)

	text := callTool(t, session, "search_apis", map[string]any{"query": "acme"})

	var resp struct {
		Count  int    `json:"count"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal([]byte(payloadJSON(t, text)), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || resp.Source != "lexical" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMCP_GetApiDetail(t *testing.T) {
	x := &fakeExtractor{
		endpoints: []*extract.Endpoint{{Method: "GET", Path: "/v1/users", Summary: "List users"}},
		eval:      &extract.Evaluation{Purpose: "Testing"},
	}
	svc := newTestService(acmeStore(), x, &fakeDiscoverer{})
	session := mcpSession(t, svc)

	text := callTool(t, session, "get_api_detail", map[string]any{"api_id": "acme.dev"})

	var resp struct {
		Api           struct{ ID string `json:"id"` } `json:"api"`
		EndpointCount int                              `json:"endpoint_count"`
	}
	if err := json.Unmarshal([]byte(payloadJSON(t, text)), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Api.ID != "acme.dev" || resp.EndpointCount != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMCP_GetApiDetail_NotFoundNamesID(t *testing.T) {
	svc := newTestService(acmeStore(), &fakeExtractor{}, &fakeDiscoverer{})
	session := mcpSession(t, svc)

	text := callTool(t, session, "get_api_detail", map[string]any{"api_id": "ghost.dev"})
	if !strings.Contains(text, "ghost.dev") {
		t.Fatalf("not-found payload does not name the identifier: %q", text)
	}
}

func TestMCP_GetLiveDocs(t *testing.T) {
	d := &fakeDiscoverer{docs: &discover.Docs{Markdown: "# Acme docs", Source: "manifest"}}
	svc := newTestService(acmeStore(), &fakeExtractor{}, d)
	session := mcpSession(t, svc)

	text := callTool(t, session, "get_live_docs", map[string]any{"api_id": "acme.dev"})

	var resp struct {
		ApiID    string `json:"api_id"`
		Source   string `json:"source"`
		Markdown string `json:"markdown"`
	}
	if err := json.Unmarshal([]byte(payloadJSON(t, text)), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ApiID != "acme.dev" || resp.Source != "manifest" || resp.Markdown != "# Acme docs" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestInstrumentMarksAgentCaller(t *testing.T) {
	svc := newTestService(acmeStore(), &fakeExtractor{}, &fakeDiscoverer{})

	var caller string
	ep := kit.Chain(svc.instrument("search_apis"))(func(ctx context.Context, _ any) (any, error) {
		caller = kit.GetCaller(ctx)
		return nil, nil
	})
	if _, err := ep(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if caller != "agent" {
		t.Fatalf("caller = %q", caller)
	}
}
