// Package requestctx carries per-request identity through contexts.
package requestctx

import "context"

// visitorIDContextKey is the context key for the anonymous visitor identity.
type visitorIDContextKey struct{}

// WithVisitorID stores a visitor identifier in context.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, visitorIDContextKey{}, visitorID)
}

// VisitorIDFromContext returns the visitor identifier stored in context.
func VisitorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(visitorIDContextKey{}).(string)
	return value
}
