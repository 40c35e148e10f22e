// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http. Tests inject values directly (WithTime, WithSubject)
// instead of running the middleware chain.
package requestcontext

import (
	"context"
	"time"
)

type (
	subjectKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Subject retrieves the authenticated caller identity (token subject).
// Returns "" when the request is unauthenticated.
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}

// WithSubject injects a caller identity into the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// RequestID retrieves the correlation ID set by middleware.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time. Falls back to time.Now() outside
// HTTP (workers, tests that don't pin the clock).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the clock for a context. Used by middleware so one request
// observes one instant, and by tests for determinism.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
