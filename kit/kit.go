// Package kit holds the small transport-agnostic building blocks shared by
// the apimart services: the Endpoint abstraction, middleware chaining,
// request-scoped context keys, MCP tool registration, and the ordered
// fallback resolver used by the search and doc-discovery chains.
package kit

import "context"

// Endpoint is a transport-agnostic request handler.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares left-to-right: the first middleware is the
// outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
