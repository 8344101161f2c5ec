package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter. It is satisfied by *sdk.MessageService so callers can pass either
// a real client or a mock in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic adapter.
type Options struct {
	// Model is the Claude model identifier. Required.
	Model string

	// MaxTokens caps completions when the caller does not specify a budget.
	// Default: 4096.
	MaxTokens int

	// Temperature for all calls. Extraction wants determinism; default 0.
	Temperature float64

	// Timeout bounds each completion call. Default: 60s.
	Timeout time.Duration
}

func (o *Options) defaults() {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 4096
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
}

// Anthropic implements Client on top of the Claude Messages API.
type Anthropic struct {
	msg     MessagesClient
	model   string
	maxTok  int
	temp    float64
	timeout time.Duration
}

// NewAnthropic builds a Client from a Messages client and options.
func NewAnthropic(msg MessagesClient, opts Options) (*Anthropic, error) {
	if msg == nil {
		return nil, errors.New("llm: anthropic messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("llm: model identifier is required")
	}
	opts.defaults()
	return &Anthropic{
		msg:     msg,
		model:   opts.Model,
		maxTok:  opts.MaxTokens,
		temp:    opts.Temperature,
		timeout: opts.Timeout,
	}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey, model string) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropic(&ac.Messages, Options{Model: model})
}

// CompleteJSON issues one Messages.New call and returns the concatenated text
// blocks of the response. The prompt is expected to demand a JSON document;
// parsing is the caller's job (see DecodeJSON).
func (c *Anthropic) CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTok
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(user)),
		},
		Temperature: sdk.Float(c.temp),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: messages.new: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("llm: empty completion")
	}
	return text, nil
}
