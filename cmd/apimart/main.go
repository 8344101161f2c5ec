// Entry point for the apimart service: web search API over chi, the agent
// tool surface over MCP (stdio or streamable HTTP), SQLite record store,
// Redis or in-process cache, and the optional LLM, embedding and web-search
// providers.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/apimart/cache"
	"github.com/hazyhaar/apimart/catalog"
	"github.com/hazyhaar/apimart/catalog/store"
	"github.com/hazyhaar/apimart/dbopen"
	"github.com/hazyhaar/apimart/discover"
	"github.com/hazyhaar/apimart/embedder"
	"github.com/hazyhaar/apimart/extract"
	"github.com/hazyhaar/apimart/llm"
	"github.com/hazyhaar/apimart/marketplace"
	"github.com/hazyhaar/apimart/webfetch"
	"github.com/hazyhaar/apimart/websearch"
)

func main() {
	port := env("PORT", "8086")
	dbPath := env("CATALOG_DB", "db/apimart.db")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging. Stdio MCP owns stdout, so logs go to stderr there.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logOut := os.Stdout
	if mcpTransport == "stdio" {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Record store.
	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("catalog db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	recordStore, err := store.New(db, logger)
	if err != nil {
		slog.Error("record store", "error", err)
		os.Exit(1)
	}

	// Cache: Redis when addressed, else in-process.
	var kv cache.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		kv = cache.NewRedis(redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		}))
		slog.Info("cache: redis", "addr", addr)
	} else {
		kv = cache.NewMemory()
		slog.Info("cache: in-process")
	}

	// Optional providers. Each one missing just disables its tier.
	var model llm.Client
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		model, err = llm.NewFromAPIKey(key, env("ANTHROPIC_MODEL", "claude-sonnet-4-5"))
		if err != nil {
			slog.Error("llm provider", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("ANTHROPIC_API_KEY unset, extraction and evaluation disabled")
	}

	var emb embedder.Embedder
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		emb, err = embedder.New(embedder.Config{
			APIKey: key,
			Model:  env("EMBEDDING_MODEL", ""),
			Logger: logger,
		})
		if err != nil {
			slog.Error("embedding provider", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("OPENAI_API_KEY unset, hybrid search runs lexical-only")
	}

	var web *websearch.Client
	if key := os.Getenv("WEBSEARCH_API_KEY"); key != "" {
		wcfg := cfg.Websearch
		wcfg.APIKey = key
		wcfg.Provider = env("WEBSEARCH_PROVIDER", wcfg.Provider)
		wcfg.Logger = logger
		web, err = websearch.New(wcfg)
		if err != nil {
			slog.Error("web search provider", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("WEBSEARCH_API_KEY unset, web discovery disabled")
	}

	// Fetch, discovery, extraction.
	fcfg := cfg.Webfetch
	fcfg.Cache = kv
	fcfg.Logger = logger
	renderer := webfetch.New(fcfg)

	dcfg := cfg.Discover
	dcfg.Logger = logger
	docs := discover.New(renderer, dcfg,
		discover.WithCache(kv),
		discover.WithLLM(model))

	xcfg := cfg.Extract
	xcfg.Logger = logger
	extractor := extract.New(docs, model, xcfg, extract.WithCache(kv))

	// Search engine.
	engineOpts := []catalog.EngineOption{
		catalog.WithCache(kv),
		catalog.WithLogger(logger),
	}
	if emb != nil {
		engineOpts = append(engineOpts, catalog.WithEmbedder(emb))
	}
	if web != nil {
		engineOpts = append(engineOpts, catalog.WithWebSearch(web))
	}
	if model != nil {
		engineOpts = append(engineOpts, catalog.WithLLM(model))
	}
	engine := catalog.NewEngine(recordStore, cfg.Search, engineOpts...)

	svc := marketplace.NewService(engine, recordStore, docs, extractor,
		marketplace.WithSearchLog(recordStore),
		marketplace.WithLogger(logger))

	// MCP server.
	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    "apimart",
		Version: "1.0.0",
	}, nil)
	svc.RegisterMCP(mcpSrv)

	if mcpTransport == "stdio" {
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp stdio", "error", err)
			}
		}()
	}

	// HTTP: web search API, plus the MCP streamable endpoint unless stdio
	// claimed the tool surface.
	httpCfg := cfg.HTTP
	if u := os.Getenv("ADMIN_USER"); u != "" {
		httpCfg.AdminUser = u
	}
	if h := os.Getenv("ADMIN_PASS_HASH"); h != "" {
		httpCfg.AdminPassHash = h
	}
	httpCfg.Cache = kv

	r := chi.NewRouter()
	r.Mount("/", svc.Router(recordStore, httpCfg))
	if mcpTransport != "stdio" {
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(
			func(*http.Request) *mcp.Server { return mcpSrv }, nil))
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
