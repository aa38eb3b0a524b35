package playlist

import (
	"context"
	"sync"
	"time"

	"github.com/Organization5762/heart/internal/event"
)

// run is one live execution of a registered playlist.
type run struct {
	id        RunID
	reg       *registration
	trigger   *event.Event
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	state      State
	reason     StopReason
	interrupt  *InterruptEvent
	finishedAt time.Time
}

func newRun(parent context.Context, id RunID, reg *registration, trigger *event.Event) *run {
	ctx, cancel := context.WithCancel(parent)
	return &run{
		id:        id,
		reg:       reg,
		trigger:   trigger,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StatePending,
	}
}

// stop requests termination with the given reason. Only the first request
// wins; it returns false when the run already finished or is stopping.
func (r *run) stop(reason StopReason, interrupt *InterruptEvent) bool {
	r.mu.Lock()
	if r.state.IsTerminal() || r.reason != "" {
		r.mu.Unlock()
		return false
	}
	r.reason = reason
	r.interrupt = interrupt
	r.mu.Unlock()

	r.cancel()
	return true
}

func (r *run) setRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StatePending {
		r.state = StateRunning
	}
}

// complete claims the completed outcome unless a stop was requested first.
func (r *run) complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reason != "" {
		return false
	}
	r.reason = ReasonCompleted
	return true
}

// terminate moves the run to its terminal state.
func (r *run) terminate() (StopReason, *InterruptEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reason == "" {
		r.reason = ReasonCancelled
	}
	r.state = r.reason.state()
	r.finishedAt = time.Now()
	return r.reason, r.interrupt
}

// sleep waits for d or until the run is stopped. It returns false when the
// run should not continue.
func (r *run) sleep(d time.Duration) bool {
	if d <= 0 {
		return r.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-r.ctx.Done():
		return false
	case <-t.C:
		return r.ctx.Err() == nil
	}
}

func (r *run) status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunStatus{
		ID:         r.id,
		Playlist:   r.reg.handle,
		State:      r.state,
		Reason:     r.reason,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}
}

// wait blocks until the run finishes or the timeout elapses.
func (r *run) wait(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-r.done:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-r.done:
		return true
	case <-t.C:
		return false
	}
}
