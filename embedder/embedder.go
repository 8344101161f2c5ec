// Package embedder converts text to float32 vectors for the hybrid search
// path. The provider is optional: when no embedder is configured the search
// engine silently skips the vector leg and falls back to lexical matching.
package embedder

import (
	"context"
	"log/slog"
	"time"
)

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the model identifier.
	Model() string
}

// Config configures the embedding client.
type Config struct {
	// APIKey authenticates against the embeddings API. Required.
	APIKey string `json:"-" yaml:"-"`

	// Model is the embedding model identifier.
	// Default: "text-embedding-3-small".
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the API endpoint for OpenAI-compatible servers
	// (vLLM, Ollama). Empty = api.openai.com.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout per request. Embedding sits on the search hot path, so the
	// default is short: 5s. A timeout degrades to lexical search.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
