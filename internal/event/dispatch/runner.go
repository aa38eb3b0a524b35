package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Handler is the type-erased form of event.Handler.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event any) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event any) error {
	return f(ctx, event)
}

// Runner invokes handlers synchronously with panic recovery.
type Runner struct {
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout gives each handler a context deadline. Handlers that ignore
// their context are not interrupted.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run invokes h with event and reports the outcome. A cancelled ctx does not
// stop the call; honoring it is up to the handler.
func (r *Runner) Run(ctx context.Context, event any, h Handler) Result {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	res := r.invoke(ctx, event, h)
	res.Elapsed = time.Since(start)
	return res
}

func (r *Runner) invoke(ctx context.Context, event any, h Handler) (res Result) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		stack := debug.Stack()
		res = Result{
			Outcome: Panicked,
			Err:     &PanicError{Value: v, Stack: stack},
			Stack:   stack,
		}
	}()

	if err := h.Handle(ctx, event); err != nil {
		return Result{Outcome: Failed, Err: err}
	}
	return Result{Outcome: Delivered}
}
