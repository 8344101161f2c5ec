package kit

import "context"

type contextKey string

const (
	RequestIDKey contextKey = "kit_request_id"
	TransportKey contextKey = "kit_transport" // "http", "mcp"
	CallerKey    contextKey = "kit_caller"    // "web", "agent"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithCaller(ctx context.Context, c string) context.Context {
	return context.WithValue(ctx, CallerKey, c)
}

func GetCaller(ctx context.Context) string {
	v, _ := ctx.Value(CallerKey).(string)
	return v
}
