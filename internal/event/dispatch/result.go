package dispatch

import "time"

// Outcome classifies a single handler invocation.
type Outcome uint8

const (
	// Delivered means the handler returned nil.
	Delivered Outcome = iota
	// Failed means the handler returned an error.
	Failed
	// Panicked means the handler panicked and was recovered.
	Panicked
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Failed:
		return "error"
	case Panicked:
		return "panic"
	default:
		return "unknown"
	}
}

// Result records how one handler invocation ended.
type Result struct {
	Outcome Outcome

	// Err is the handler's error, or a *PanicError when it panicked.
	Err error

	// Stack is the goroutine stack captured at the panic site.
	Stack []byte

	Elapsed time.Duration
}

// OK reports whether the handler returned without error or panic.
func (r Result) OK() bool {
	return r.Outcome == Delivered
}
