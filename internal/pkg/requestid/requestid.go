// Package requestid carries the request id through context.Context so
// layers below HTTP (query logging) can tag their output
package requestid

import "context"

type ctxKey struct{}

// WithID returns ctx carrying id
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id of ctx, "" when absent
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}
