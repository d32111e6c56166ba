package cancel

import (
	"context"
	"time"
)

// ContextCanceler is a cancellation source whose token is a context.Context.
type ContextCanceler struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewContext creates a ContextCanceler derived from parent.
func NewContext(parent context.Context) *ContextCanceler {
	ctx, cancel := context.WithCancel(parent)
	return &ContextCanceler{
		ctx:    ctx,
		cancel: cancel,
	}
}

// NewDeadline creates a ContextCanceler that also cancels itself after d.
// Blocking waits have no timeout of their own; this is how callers bound
// them.
func NewDeadline(parent context.Context, d time.Duration) *ContextCanceler {
	ctx, cancel := context.WithTimeout(parent, d)
	return &ContextCanceler{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Done reports whether the context has been cancelled.
// This is a non-blocking select on ctx.Done().
func (c *ContextCanceler) Done() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Cancel cancels the context, waking any WaitAndPop using it.
func (c *ContextCanceler) Cancel() {
	c.cancel()
}

// Context returns the token to hand to blocking calls.
func (c *ContextCanceler) Context() context.Context {
	return c.ctx
}

// Err returns context.Canceled or context.DeadlineExceeded once done.
func (c *ContextCanceler) Err() error {
	return c.ctx.Err()
}
