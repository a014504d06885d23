package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx returns the logger stored in ctx, or the global logger.
func Ctx(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			return l
		}
	}
	return L()
}

// WithConn returns a context whose logger carries the connection and user ids.
func WithConn(ctx context.Context, connID, userID string) context.Context {
	l := Ctx(ctx).With().
		Str(FieldConnID, connID).
		Str(FieldUserID, userID).
		Logger()
	return WithLogger(ctx, l)
}
