// Package dispatch invokes event handlers and captures how they ended.
//
// A Runner calls one handler on the caller's goroutine and always returns a
// Result. Errors and panics are recorded in the Result instead of unwinding
// into the caller, so a bus can keep delivering to the remaining
// subscribers:
//
//	runner := dispatch.New(dispatch.WithTimeout(time.Second))
//	res := runner.Run(ctx, evt, handler)
//	if !res.OK() {
//	    logger.Error().Err(res.Err).Str("outcome", res.Outcome.String()).Msg("handler failed")
//	}
//
// Runners hold no per-call state. Handlers may call Run again from inside
// Handle; the nested call completes first.
package dispatch
