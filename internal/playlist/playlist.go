package playlist

import (
	"fmt"
	"time"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
)

// Step is one entry of a playlist: after Offset, emit EventType Repeat
// times, waiting Interval between repeats.
type Step struct {
	EventType topic.Topic
	Data      any
	Offset    time.Duration
	// Repeat is the number of emissions. Zero is treated as one.
	Repeat   int
	Interval time.Duration
	Producer event.Producer
}

// repeats returns the effective repeat count.
func (s Step) repeats() int {
	if s.Repeat == 0 {
		return 1
	}
	return s.Repeat
}

func (s Step) validate() error {
	if !s.EventType.IsValid() {
		return fmt.Errorf("event type %q", s.EventType)
	}
	if s.Repeat < 0 {
		return fmt.Errorf("repeat %d must be at least 1", s.Repeat)
	}
	if s.Offset < 0 {
		return fmt.Errorf("negative offset %s", s.Offset)
	}
	if s.Interval < 0 {
		return fmt.Errorf("negative interval %s", s.Interval)
	}
	return nil
}

// Playlist is a reusable template of timed event emissions.
type Playlist struct {
	Name  string
	Steps []Step

	// CompletionEventType, when set, is emitted with a CompletionPayload
	// after the last step of a completed run.
	CompletionEventType topic.Topic

	// TriggerEventType, when set, starts a run each time it is published.
	TriggerEventType topic.Topic

	// InterruptEvents stop every active run of the playlist.
	InterruptEvents []topic.Topic

	Metadata map[string]any
}

// Validate checks the template and its steps.
func (p Playlist) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPlaylist)
	}
	for i, s := range p.Steps {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: %s step %d: %v", ErrInvalidPlaylist, p.Name, i, err)
		}
	}
	if t := p.CompletionEventType; t != "" && !t.IsValid() {
		return fmt.Errorf("%w: %s completion event type %q", ErrInvalidPlaylist, p.Name, t)
	}
	if t := p.TriggerEventType; t != "" && !t.IsValid() {
		return fmt.Errorf("%w: %s trigger event type %q", ErrInvalidPlaylist, p.Name, t)
	}
	for _, t := range p.InterruptEvents {
		if !t.IsValid() {
			return fmt.Errorf("%w: %s interrupt event %q", ErrInvalidPlaylist, p.Name, t)
		}
	}
	return nil
}

// Duration returns the nominal run time of the playlist.
func (p Playlist) Duration() time.Duration {
	var d time.Duration
	for _, s := range p.Steps {
		d += s.Offset + time.Duration(s.repeats()-1)*s.Interval
	}
	return d
}

// clone returns a copy sharing no mutable state with p.
func (p Playlist) clone() Playlist {
	return event.CopyPayload(p).(Playlist)
}

// Handle refers to a registered playlist.
type Handle struct {
	ID   string
	Name string
}

// RunID identifies one execution of a playlist.
type RunID string

// State is the lifecycle state of a run.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateInterrupted
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateInterrupted:
		return "interrupted"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the run has finished.
func (s State) IsTerminal() bool {
	return s >= StateCompleted
}

// StopReason explains why a run reached its terminal state.
type StopReason string

const (
	ReasonCompleted   StopReason = "completed"
	ReasonInterrupted StopReason = "interrupted"
	ReasonCancelled   StopReason = "cancelled"
)

func (r StopReason) state() State {
	switch r {
	case ReasonCompleted:
		return StateCompleted
	case ReasonInterrupted:
		return StateInterrupted
	default:
		return StateCancelled
	}
}

// RunStatus is a point-in-time view of a run.
type RunStatus struct {
	ID         RunID
	Playlist   Handle
	State      State
	Reason     StopReason
	StartedAt  time.Time
	FinishedAt time.Time
}
