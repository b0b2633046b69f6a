// Package logging is the project's structured logger: a small interface
// over log/slog plus request-scoped fields carried in the context.
package logging

import "context"

// Logger takes key/value pairs after the message:
//
//	log.Warn(ctx, "session binding mismatch", "user_id", uid, "reason", why)
//
// Fields attached to ctx with WithFields are added to every line.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
}

type fieldsKey struct{}

// WithFields returns a copy of ctx whose log lines also carry args.
// Earlier fields are kept; a repeated key is logged twice.
func WithFields(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := Fields(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// Fields returns the key/value pairs attached to ctx.
func Fields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(fieldsKey{}).([]any)
	return f
}
