package combo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
	"github.com/Organization5762/heart/internal/peripheral"
)

// SequenceMatcher is one expected step of a Sequence. A nil Predicate
// accepts any event of EventType.
type SequenceMatcher struct {
	EventType topic.Topic
	Predicate func(event.Event) bool
}

func (m SequenceMatcher) matches(evt event.Event) bool {
	if evt.Type != m.EventType {
		return false
	}
	return m.Predicate == nil || m.Predicate(evt)
}

// SequenceConfig configures Sequence.
type SequenceConfig struct {
	Name            string
	Matchers        []SequenceMatcher
	OutputEventType topic.Topic

	// Timeout bounds the time from the first matched event to completion.
	// Zero disables it.
	Timeout time.Duration

	Metadata       map[string]any
	OutputProducer event.Producer
}

// Sequence fires when events matching Matchers arrive in order. An event
// that does not match the next expected matcher discards the progress and
// is then tried as the start of a new attempt.
func Sequence(cfg SequenceConfig) (peripheral.Definition, error) {
	if cfg.Name == "" {
		cfg.Name = "sequence"
	}
	if len(cfg.Matchers) == 0 {
		return peripheral.Definition{}, fmt.Errorf("%w: %s has no matchers", peripheral.ErrInvalidDefinition, cfg.Name)
	}
	if cfg.Timeout < 0 {
		return peripheral.Definition{}, fmt.Errorf("%w: %s negative timeout", peripheral.ErrInvalidDefinition, cfg.Name)
	}
	if !cfg.OutputEventType.IsValid() {
		return peripheral.Definition{}, fmt.Errorf("%w: %s output event type %q", peripheral.ErrInvalidDefinition, cfg.Name, cfg.OutputEventType)
	}

	types := make([]topic.Topic, 0, len(cfg.Matchers))
	for _, m := range cfg.Matchers {
		types = append(types, m.EventType)
	}
	cfg.Matchers = append([]SequenceMatcher(nil), cfg.Matchers...)

	return peripheral.Definition{
		Name:       cfg.Name,
		EventTypes: topic.Unique(types...),
		Metadata:   cfg.Metadata,
		Priority:   event.PriorityHigh,
		Factory: func(c *peripheral.Context) (peripheral.Instance, error) {
			return &sequence{cfg: cfg, pctx: c, pub: c.Publisher(cfg.OutputProducer)}, nil
		},
	}, nil
}

type sequence struct {
	cfg  SequenceConfig
	pctx *peripheral.Context
	pub  *event.Publisher

	mu       sync.Mutex
	captured []event.Event
	timer    *time.Timer
	gen      uint64
}

func (s *sequence) Handle(ctx context.Context, evt event.Event) error {
	s.mu.Lock()
	if len(s.captured) > 0 && s.cfg.Timeout > 0 &&
		!within(s.captured[0].Timestamp, evt.Timestamp, s.cfg.Timeout) {
		s.resetLocked()
	}

	if !s.cfg.Matchers[len(s.captured)].matches(evt) {
		if len(s.captured) == 0 {
			s.mu.Unlock()
			return nil
		}
		s.resetLocked()
		if !s.cfg.Matchers[0].matches(evt) {
			s.mu.Unlock()
			return nil
		}
	}

	s.captured = append(s.captured, evt)
	if len(s.captured) == 1 && s.cfg.Timeout > 0 {
		gen := s.gen
		s.timer = time.AfterFunc(s.cfg.Timeout, func() { s.expire(gen) })
	}
	if len(s.captured) < len(s.cfg.Matchers) {
		s.mu.Unlock()
		return nil
	}

	captured := s.captured
	s.captured = nil
	s.resetLocked()
	s.mu.Unlock()

	return s.pctx.Emit(ctx, s.pub, s.cfg.OutputEventType, SequencePayload{
		VirtualPeripheral: describe(s.pctx),
		Events:            captured,
		Elapsed:           captured[len(captured)-1].Timestamp.Sub(captured[0].Timestamp),
	})
}

// resetLocked discards progress and invalidates the running timer.
func (s *sequence) resetLocked() {
	s.captured = nil
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *sequence) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.resetLocked()
	}
}

// Progress returns how many matchers have been satisfied so far.
func (s *sequence) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captured)
}

// Shutdown stops the timeout timer.
func (s *sequence) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}
