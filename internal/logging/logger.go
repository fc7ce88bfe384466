// Package logging defines the structured-logging interface shared by the
// server, the services and the client orchestrator.
package logging

import "context"

// Logger is a context-aware, structured logger. Variadic args are key/value
// pairs:
//
//	log.Info(ctx, "entry created", "user_id", userID, "source", source)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
