package output

import "context"

type (
	formatKey struct{}
	queryKey  struct{}
	limitKey  struct{}
)

// WithFormat returns a new context with the output format attached.
func WithFormat(ctx context.Context, format Format) context.Context {
	return context.WithValue(ctx, formatKey{}, format)
}

// FormatFromContext retrieves the output format, defaulting to FormatText.
func FormatFromContext(ctx context.Context) Format {
	if v, ok := ctx.Value(formatKey{}).(Format); ok {
		return v
	}
	return FormatText
}

// WithQuery adds a jq query string to context.
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

// QueryFromContext retrieves the jq query from context.
func QueryFromContext(ctx context.Context) string {
	if q, ok := ctx.Value(queryKey{}).(string); ok {
		return q
	}
	return ""
}

// WithLimit sets the --result-limit value in context.
func WithLimit(ctx context.Context, limit int) context.Context {
	return context.WithValue(ctx, limitKey{}, limit)
}

// LimitFromContext returns the --result-limit value (0 = unlimited).
func LimitFromContext(ctx context.Context) int {
	if l, ok := ctx.Value(limitKey{}).(int); ok && l > 0 {
		return l
	}
	return 0
}
