// Package context holds the shared timeout budgets for blocking calls.
package context

import (
	"context"
	"time"
)

const (
	// DefaultPingTimeout bounds connectivity checks against backing stores.
	DefaultPingTimeout = 5 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown of servers and workers.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultBackgroundTimeout bounds fire-and-forget side effects such as
	// event publishing and search indexing.
	DefaultBackgroundTimeout = 5 * time.Second
	// DefaultJobTimeout bounds one scheduled job run.
	DefaultJobTimeout = 30 * time.Second
)

// WithPingTimeout derives a ping-bounded context from parent.
func WithPingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPingTimeout)
}

// WithShutdownTimeout returns a fresh context for shutdown work. It does not
// derive from a request or signal context, which is usually already done.
func WithShutdownTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DefaultShutdownTimeout)
}

// Detached returns a context that keeps the values of parent but not its
// cancellation, bounded by DefaultBackgroundTimeout.
func Detached(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), DefaultBackgroundTimeout)
}

// WithJobTimeout derives a job-bounded context from parent.
func WithJobTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultJobTimeout)
}
