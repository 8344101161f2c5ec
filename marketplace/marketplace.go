// Package marketplace assembles the catalog, discovery and extraction
// engines into the marketplace's two outer surfaces: the agent tool-call
// protocol and the web search API.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/apimart/catalog"
	"github.com/hazyhaar/apimart/discover"
	"github.com/hazyhaar/apimart/extract"
	"github.com/hazyhaar/apimart/horosafe"
	"github.com/hazyhaar/apimart/kit"
)

// DocDiscoverer is the discovery collaborator contract.
type DocDiscoverer interface {
	Discover(ctx context.Context, api *catalog.ApiRecord, overrideURL string) (*discover.Docs, error)
}

// Extractor is the extraction collaborator contract, satisfied by
// *extract.Engine.
type Extractor interface {
	ExtractEndpoints(ctx context.Context, api *catalog.ApiRecord, docURL string) (*extract.Extraction, error)
	Evaluate(ctx context.Context, api *catalog.ApiRecord, markdown, docURL string) (*extract.Evaluation, error)
}

// SearchLogger records resolved searches, satisfied by the record store.
type SearchLogger interface {
	InsertSearchLog(ctx context.Context, query, source string, resultCount int, transport string) error
}

// Service is the marketplace orchestrator.
type Service struct {
	engine    *catalog.Engine
	store     catalog.Store
	discover  DocDiscoverer
	extractor Extractor
	searchLog SearchLogger
	logger    *slog.Logger
}

// ServiceOption customizes optional collaborators.
type ServiceOption func(*Service)

// WithSearchLog enables search logging.
func WithSearchLog(l SearchLogger) ServiceOption {
	return func(s *Service) { s.searchLog = l }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService wires the marketplace surfaces over their engines.
func NewService(engine *catalog.Engine, store catalog.Store, d DocDiscoverer, x Extractor, opts ...ServiceOption) *Service {
	s := &Service{
		engine:    engine,
		store:     store,
		discover:  d,
		extractor: x,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search resolves a query through the tiered search chain and logs the
// outcome.
func (s *Service) Search(ctx context.Context, query string, limit int) (*catalog.SearchResult, error) {
	res, err := s.engine.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if s.searchLog != nil && res.Source != "empty" {
		if lerr := s.searchLog.InsertSearchLog(ctx, strings.TrimSpace(query), res.Source, res.Count, kit.GetTransport(ctx)); lerr != nil {
			s.logger.WarnContext(ctx, "search log write failed", "error", lerr)
		}
	}
	return res, nil
}

// List returns one page of the unfiltered brand-grouped catalog.
func (s *Service) List(ctx context.Context, offset, limit int) (*catalog.Listing, error) {
	return s.engine.List(ctx, offset, limit)
}

// ApiSummary identifies the API a detail response describes.
type ApiSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Website string `json:"website,omitempty"`
	DocURL  string `json:"doc_url,omitempty"`
}

// EndpointIndexEntry is the lightweight per-endpoint row in an overview
// response: enough for an agent to pick an endpoint without the full
// parameter detail.
type EndpointIndexEntry struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

// ApiDetail is the overview response shape of get_api_detail, returned when
// no endpoint is singled out.
type ApiDetail struct {
	Api           ApiSummary            `json:"api"`
	Evaluation    *extract.Evaluation   `json:"evaluation,omitempty"`
	Endpoints     []*EndpointIndexEntry `json:"endpoints"`
	EndpointCount int                   `json:"endpoint_count"`
}

// EndpointDetail is the single-endpoint response shape of get_api_detail,
// returned when both method and path are supplied.
type EndpointDetail struct {
	Api           ApiSummary             `json:"api"`
	Endpoint      *extract.Endpoint      `json:"endpoint"`
	Auth          *extract.AuthInfo      `json:"auth,omitempty"`
	RateLimits    *extract.RateLimitInfo `json:"rate_limits,omitempty"`
	EndpointCount int                    `json:"endpoint_count"`
}

// EndpointNotFound is returned when a requested (method, path) pair is absent
// from the extracted set. EndpointCount reports the full set size so the
// caller can tell an empty extraction from a miss.
type EndpointNotFound struct {
	Error         string `json:"error"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	EndpointCount int    `json:"endpoint_count"`
}

// NotFound is the plain-text not-found payload naming the identifier that
// failed, so a calling agent can retry with different input.
type NotFound struct {
	Error string `json:"error"`
}

// LiveDocs is the get_live_docs response.
type LiveDocs struct {
	ApiID    string `json:"api_id"`
	Source   string `json:"source"`
	Markdown string `json:"markdown"`
}

// resolveApi finds the record for an identifier: exact id first, then the
// primary of its sub-scoped records.
func (s *Service) resolveApi(ctx context.Context, apiID string) (*catalog.ApiRecord, error) {
	if err := horosafe.ValidateIdentifier(apiID); err != nil {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, apiID)
	}
	rec, err := s.store.FindByID(ctx, apiID)
	if err != nil {
		return nil, fmt.Errorf("marketplace: lookup %s: %w", apiID, err)
	}
	if rec != nil {
		return rec, nil
	}
	records, err := s.store.FindByIDOrPrefix(ctx, apiID)
	if err != nil {
		return nil, fmt.Errorf("marketplace: lookup %s: %w", apiID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, apiID)
	}
	return records[0], nil
}

// GetApiDetail returns either the API overview with its endpoint index, or,
// when method and path are both supplied, that one endpoint's full detail
// with auth and rate-limit context. The two shapes exist to bound response
// size for agent consumption.
func (s *Service) GetApiDetail(ctx context.Context, apiID, docURL, method, path string) (any, error) {
	rec, err := s.resolveApi(ctx, apiID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return &NotFound{Error: fmt.Sprintf("API %q not found. Try search first to find a valid API id.", apiID)}, nil
		}
		return nil, err
	}

	ext, err := s.extractor.ExtractEndpoints(ctx, rec, docURL)
	if err != nil {
		return nil, err
	}
	summary := ApiSummary{ID: rec.ID, Title: rec.Title, Website: rec.Website, DocURL: rec.DocURL}

	if method != "" && path != "" {
		return s.endpointDetail(ctx, rec, summary, ext, docURL, method, path)
	}

	eval, err := s.extractor.Evaluate(ctx, rec, ext.Markdown, docURL)
	if err != nil {
		return nil, err
	}
	index := make([]*EndpointIndexEntry, 0, len(ext.Endpoints))
	for _, ep := range ext.Endpoints {
		index = append(index, &EndpointIndexEntry{Method: ep.Method, Path: ep.Path, Summary: ep.Summary})
	}
	return &ApiDetail{
		Api:           summary,
		Evaluation:    eval,
		Endpoints:     index,
		EndpointCount: len(ext.Endpoints),
	}, nil
}

func (s *Service) endpointDetail(ctx context.Context, rec *catalog.ApiRecord, summary ApiSummary, ext *extract.Extraction, docURL, method, path string) (any, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	path = strings.TrimSpace(path)

	var match *extract.Endpoint
	for _, ep := range ext.Endpoints {
		if ep.Method == method && ep.Path == path {
			match = ep
			break
		}
	}
	if match == nil {
		return &EndpointNotFound{
			Error:         fmt.Sprintf("endpoint %s %s not found in the %d extracted endpoints of %s", method, path, len(ext.Endpoints), rec.ID),
			Method:        method,
			Path:          path,
			EndpointCount: len(ext.Endpoints),
		}, nil
	}

	detail := &EndpointDetail{
		Api:           summary,
		Endpoint:      match,
		EndpointCount: len(ext.Endpoints),
	}
	if eval, err := s.extractor.Evaluate(ctx, rec, ext.Markdown, docURL); err == nil && eval != nil {
		detail.Auth = &eval.Auth
		detail.RateLimits = &eval.RateLimits
	}
	return detail, nil
}

// GetLiveDocs returns the freshly discovered documentation corpus for an
// API. url overrides the record's doc URL as the discovery root.
func (s *Service) GetLiveDocs(ctx context.Context, apiID, url string) (any, error) {
	rec, err := s.resolveApi(ctx, apiID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return &NotFound{Error: fmt.Sprintf("API %q not found. Try search first to find a valid API id.", apiID)}, nil
		}
		return nil, err
	}
	docs, err := s.discover.Discover(ctx, rec, url)
	if err != nil {
		return &NotFound{Error: fmt.Sprintf("no documentation found for %q", apiID)}, nil
	}
	return &LiveDocs{ApiID: rec.ID, Source: docs.Source, Markdown: docs.Markdown}, nil
}
