package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/log"
)

// DefaultTimeout bounds a single predicate evaluation.
const DefaultTimeout = 100 * time.Millisecond

// Option configures a Predicate.
type Option func(*Predicate)

// WithTimeout sets the evaluation deadline.
func WithTimeout(d time.Duration) Option {
	return func(p *Predicate) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger used for evaluation failures.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Predicate) {
		p.logger = l
	}
}

// Predicate is a compiled Lua condition over events.
//
// gopher-lua states are not goroutine-safe; evaluations are serialized.
type Predicate struct {
	source  string
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	L      *lua.LState
	fn     *lua.LFunction
	closed bool
}

// Compile builds a predicate from a Lua expression such as
// `data.pressed and producer == 2`. A full chunk ending in a return
// statement is accepted as well.
func Compile(source string, opts ...Option) (*Predicate, error) {
	p := &Predicate{
		source:  source,
		timeout: DefaultTimeout,
		logger:  log.WithComponent("script"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.L = newSandbox()
	fn, err := p.L.LoadString("return " + source)
	if err != nil {
		var chunkErr error
		fn, chunkErr = p.L.LoadString(source)
		if chunkErr != nil {
			p.L.Close()
			return nil, fmt.Errorf("%w: %v", ErrCompile, err)
		}
	}
	p.fn = fn
	return p, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(source string, opts ...Option) *Predicate {
	p, err := Compile(source, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Eval runs the predicate against evt and returns Lua truthiness of the
// result.
func (p *Predicate) Eval(evt event.Event) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false, ErrClosed
	}

	L := p.L
	L.SetGlobal("event_type", lua.LString(evt.Type))
	if evt.Producer.Valid {
		L.SetGlobal("producer", lua.LNumber(evt.Producer.ID))
	} else {
		L.SetGlobal("producer", lua.LNil)
	}
	L.SetGlobal("timestamp", toLua(L, evt.Timestamp))
	L.SetGlobal("data", toLua(L, evt.Data))

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()

	top := L.GetTop()
	L.Push(p.fn)
	if err := L.PCall(0, 1, nil); err != nil {
		L.SetTop(top)
		return false, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	ret := L.Get(-1)
	L.SetTop(top)
	return lua.LVAsBool(ret), nil
}

// Match reports whether evt satisfies the predicate. Evaluation errors are
// logged and count as no match.
func (p *Predicate) Match(evt event.Event) bool {
	ok, err := p.Eval(evt)
	if err != nil {
		p.logger.Warn().Err(err).
			Str(log.FieldEventType, evt.Type.String()).
			Str("source", p.source).
			Msg("predicate evaluation failed")
		return false
	}
	return ok
}

// Func adapts the predicate to a plain function.
func (p *Predicate) Func() func(event.Event) bool {
	return p.Match
}

// Source returns the Lua source the predicate was compiled from.
func (p *Predicate) Source() string {
	return p.source
}

// Close releases the Lua state. Later evaluations fail with ErrClosed.
func (p *Predicate) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.L.Close()
	return nil
}
