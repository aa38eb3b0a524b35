package dispatch

import (
	"errors"
	"fmt"
)

// ErrHandlerPanic matches every *PanicError under errors.Is.
var ErrHandlerPanic = errors.New("dispatch: handler panicked")

// PanicError carries a value recovered from a handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch: handler panicked: %v", e.Value)
}

func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
