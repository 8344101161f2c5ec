package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/apimart/cache"
	"github.com/hazyhaar/apimart/catalog"
	"github.com/hazyhaar/apimart/kit"
)

// AdminStore is the write-and-inspect surface the admin routes need,
// satisfied by the SQLite store.
type AdminStore interface {
	Upsert(ctx context.Context, r *catalog.ApiRecord) error
	Stats(ctx context.Context) (apiCount, searchLogCount int, err error)
}

// HTTPConfig configures the web surface.
type HTTPConfig struct {
	// AdminUser and AdminPassHash (bcrypt) guard the admin routes. Both
	// empty disables them.
	AdminUser     string `json:"admin_user" yaml:"admin_user"`
	AdminPassHash string `json:"admin_pass_hash" yaml:"admin_pass_hash"`

	// Cache enables the per-namespace flush route when it supports
	// prefix deletion.
	Cache cache.Cache `json:"-" yaml:"-"`
}

// Router builds the web search API consumed by the UI, plus the guarded
// admin surface when an AdminStore and credentials are configured.
func (s *Service) Router(admin AdminStore, cfg HTTPConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/apis", s.handleListOrSearch)
	})

	if admin != nil && cfg.AdminUser != "" && cfg.AdminPassHash != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(basicAuth(cfg.AdminUser, cfg.AdminPassHash))
			r.Post("/apis", s.handleAdminUpsert(admin))
			r.Get("/stats", s.handleAdminStats(admin))
			r.Delete("/cache/{namespace}", s.handleAdminFlush(cfg.Cache))
		})
	}
	return r
}

// handleSearch serves GET /api/search?q=&limit= as {count, apis, source}.
func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := kit.WithCaller(kit.WithTransport(r.Context(), "http"), "web")
	limit := intParam(r, "limit", 10)

	res, err := s.Search(ctx, r.URL.Query().Get("q"), limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListOrSearch serves GET /api/apis. An empty query returns one page
// of the unfiltered brand-grouped listing as {brands, count}; a query routes
// through the search chain.
func (s *Service) handleListOrSearch(w http.ResponseWriter, r *http.Request) {
	ctx := kit.WithCaller(kit.WithTransport(r.Context(), "http"), "web")
	q := r.URL.Query().Get("q")

	if q == "" {
		listing, err := s.List(ctx, intParam(r, "offset", 0), intParam(r, "limit", 20))
		if err != nil {
			s.logger.ErrorContext(ctx, "listing failed", "error", err)
			writeError(w, http.StatusInternalServerError, "listing failed")
			return
		}
		writeJSON(w, http.StatusOK, listing)
		return
	}

	res, err := s.Search(ctx, q, intParam(r, "limit", 20))
	if err != nil {
		s.logger.ErrorContext(ctx, "search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleAdminUpsert(admin AdminStore) http.HandlerFunc {
	type upsertReq struct {
		catalog.ApiRecord
		Embedding []float32 `json:"embedding"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid record")
			return
		}
		rec := req.ApiRecord
		rec.Embedding = req.Embedding
		if rec.ID == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := admin.Upsert(r.Context(), &rec); err != nil {
			s.logger.ErrorContext(r.Context(), "admin upsert failed", "id", rec.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "upsert failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": rec.ID, "status": "ok"})
	}
}

func (s *Service) handleAdminStats(admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiCount, searchLogCount, err := admin.Stats(r.Context())
		if err != nil {
			s.logger.ErrorContext(r.Context(), "admin stats failed", "error", err)
			writeError(w, http.StatusInternalServerError, "stats failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{
			"api_count":        apiCount,
			"search_log_count": searchLogCount,
		})
	}
}

func (s *Service) handleAdminFlush(kv cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := chi.URLParam(r, "namespace")
		if !cache.ValidNamespace(ns) {
			writeError(w, http.StatusBadRequest, "unknown cache namespace")
			return
		}
		f, ok := kv.(cache.Flusher)
		if !ok {
			writeError(w, http.StatusNotImplemented, "cache does not support flush")
			return
		}
		n, err := f.FlushPrefix(r.Context(), ns+":")
		if err != nil {
			s.logger.ErrorContext(r.Context(), "cache flush failed", "namespace", ns, "error", err)
			writeError(w, http.StatusInternalServerError, "flush failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"namespace": ns, "flushed": n})
	}
}

func basicAuth(user, passHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user ||
				bcrypt.CompareHashAndPassword([]byte(passHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
