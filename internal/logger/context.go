package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithTenant stamps the context logger with the tenant identifier so every
// log line on the request path carries it.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return ContextWithLogger(ctx, FromContext(ctx).With(zap.String("tenant", tenantID)))
}

// FromContext extracts the context logger, zap.NewNop() when absent.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
