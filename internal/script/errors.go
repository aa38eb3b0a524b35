package script

import "errors"

// Errors returned by predicate operations.
var (
	// ErrCompile indicates the source is neither an expression nor a chunk.
	ErrCompile = errors.New("lua compile error")

	// ErrEvaluation indicates the predicate raised an error or timed out.
	ErrEvaluation = errors.New("lua evaluation error")

	// ErrClosed indicates the predicate has been closed.
	ErrClosed = errors.New("predicate closed")
)
