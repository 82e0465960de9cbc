// Package logging declares the structured-logging interface the rest of
// the codebase depends on, keeping the concrete backend swappable.
package logging

import "context"

// Logger is a context-aware structured logger. The variadic args are
// alternating key-value pairs:
//
//	log.Info(ctx, "tick finished", "records", n)
type Logger interface {
	// Info reports normal operational events.
	Info(ctx context.Context, msg string, args ...any)

	// Warn reports unusual but recoverable conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error reports failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying the given key-value pairs.
	With(args ...any) Logger
}
