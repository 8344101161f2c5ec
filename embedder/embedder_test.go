package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type fakeEmbeddings struct {
	resp *openai.CreateEmbeddingResponse
	err  error
}

func (f *fakeEmbeddings) New(_ context.Context, _ openai.EmbeddingNewParams, _ ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	return f.resp, f.err
}

func TestEmbedBatch_OrderByIndex(t *testing.T) {
	// Response arrives out of input order; reassembly must honor Index.
	fake := &fakeEmbeddings{resp: &openai.CreateEmbeddingResponse{
		Data: []openai.Embedding{
			{Index: 1, Embedding: []float64{0.5, 0.5}},
			{Index: 0, Embedding: []float64{1, 0}},
		},
	}}
	e := NewFromClient(fake, Config{})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 0.5 {
		t.Fatalf("order not restored: %v", vecs)
	}
}

func TestEmbedBatch_MissingSlot(t *testing.T) {
	fake := &fakeEmbeddings{resp: &openai.CreateEmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: []float64{1}}},
	}}
	e := NewFromClient(fake, Config{})
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("want error for missing embedding slot")
	}
}

func TestEmbed_ProviderError(t *testing.T) {
	fake := &fakeEmbeddings{err: errors.New("quota")}
	e := NewFromClient(fake, Config{})
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Fatal("want error")
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	e := NewFromClient(&fakeEmbeddings{}, Config{})
	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Fatalf("empty input: %v, %v", vecs, err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("missing api key accepted")
	}
}
