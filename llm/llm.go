// Package llm provides the single-purpose structured-output completion step
// used by the extraction, evaluation, page-picking, and discovery-ranking
// engines. These are fixed-prompt classification calls, not agentic loops:
// one request in, one JSON document out.
package llm

import (
	"context"
	"errors"
)

// ErrMalformedOutput is returned when the model response cannot be parsed as
// JSON even after brace-delimited recovery.
var ErrMalformedOutput = errors.New("llm: malformed model output")

// Client issues a bounded structured-output completion. Implementations must
// return the raw model text; callers parse it defensively via DecodeJSON.
type Client interface {
	CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error)
}
