package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// EmbeddingsClient captures the subset of the OpenAI SDK used here. It is
// satisfied by *openai.EmbeddingService so tests can substitute a fake.
type EmbeddingsClient interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// OpenAI implements Embedder via the /v1/embeddings API. Any
// OpenAI-compatible server works through Config.BaseURL.
type OpenAI struct {
	embeddings EmbeddingsClient
	cfg        Config
}

// New creates an Embedder from config.
func New(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedder: api key is required")
	}
	cfg.defaults()
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAI{embeddings: &client.Embeddings, cfg: cfg}, nil
}

// NewFromClient wraps an existing embeddings client (used by tests).
func NewFromClient(ec EmbeddingsClient, cfg Config) *OpenAI {
	cfg.defaults()
	return &OpenAI{embeddings: ec, cfg: cfg}
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	resp, err := o.embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.cfg.Model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedder: no embeddings returned")
	}

	// Reassemble in input order; the API returns entries tagged by index.
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vecs) {
			continue
		}
		v := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		vecs[d.Index] = v
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("embedder: missing embedding for input index %d", i)
		}
	}
	return vecs, nil
}

func (o *OpenAI) Model() string { return o.cfg.Model }
