package kit

import (
	"context"
	"log/slog"
)

// FallbackStep is one tier of an ordered fallback chain. Run returns the
// resolved value and true on success; a false ok or a non-nil error both mean
// "this tier produced nothing" and the chain proceeds to the next tier.
type FallbackStep[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, bool, error)
}

// ResolveFallback tries each step in order and short-circuits on the first
// tier that produces a value. Step errors are logged and swallowed: a failing
// tier must never abort the chain. Context cancellation stops the chain:
// the caller gave up, not the tier.
//
// Returns the zero value and an empty step name when every tier came up empty.
func ResolveFallback[T any](ctx context.Context, logger *slog.Logger, steps []FallbackStep[T]) (T, string) {
	var zero T
	for _, step := range steps {
		if ctx.Err() != nil {
			return zero, ""
		}
		v, ok, err := step.Run(ctx)
		if err != nil {
			if logger != nil {
				logger.DebugContext(ctx, "fallback step failed", "step", step.Name, "error", err)
			}
			continue
		}
		if ok {
			return v, step.Name
		}
	}
	return zero, ""
}
