// Package context holds small helpers shared by the taskrun packages on top of
// the standard context package.
package context

import (
	"context"
)

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Link returns a child of ctx that is also canceled when other is done.
// The returned CancelFunc must be called to release the link.
func Link(ctx, other context.Context) (context.Context, context.CancelFunc) {
	child, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return child, func() {
		stop()
		cancel()
	}
}
