package combo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
	"github.com/Organization5762/heart/internal/peripheral"
)

// SimultaneousConfig configures Simultaneous.
type SimultaneousConfig struct {
	Name      string
	EventType topic.Topic
	Window    time.Duration

	// OutputEventType defaults to EventType.Child(Name).
	OutputEventType topic.Topic

	// RequiredSources is the number of distinct producers needed. Defaults to 2.
	RequiredSources int

	Metadata       map[string]any
	Predicate      func(event.Event) bool
	OutputProducer event.Producer
}

// Simultaneous fires when RequiredSources distinct producers emit
// EventType within a trailing Window. Repeats from one producer only
// refresh that producer's occurrence. The buffer is cleared after firing.
func Simultaneous(cfg SimultaneousConfig) (peripheral.Definition, error) {
	if cfg.Name == "" {
		cfg.Name = "simultaneous"
	}
	if cfg.RequiredSources == 0 {
		cfg.RequiredSources = 2
	}
	if cfg.RequiredSources < 1 {
		return peripheral.Definition{}, fmt.Errorf("%w: %s required sources %d", peripheral.ErrInvalidDefinition, cfg.Name, cfg.RequiredSources)
	}
	if cfg.Window <= 0 {
		return peripheral.Definition{}, fmt.Errorf("%w: %s window must be positive", peripheral.ErrInvalidDefinition, cfg.Name)
	}
	if cfg.OutputEventType == "" {
		cfg.OutputEventType = cfg.EventType.Child(cfg.Name)
	}
	if !cfg.OutputEventType.IsValid() {
		return peripheral.Definition{}, fmt.Errorf("%w: %s output event type %q", peripheral.ErrInvalidDefinition, cfg.Name, cfg.OutputEventType)
	}
	return peripheral.Definition{
		Name:       cfg.Name,
		EventTypes: []topic.Topic{cfg.EventType},
		Metadata:   cfg.Metadata,
		Priority:   event.PriorityHigh,
		Filter:     cfg.Predicate,
		Factory: func(c *peripheral.Context) (peripheral.Instance, error) {
			return &simultaneous{
				cfg:    cfg,
				pctx:   c,
				pub:    c.Publisher(cfg.OutputProducer),
				recent: make(map[event.Producer]*pendingTap),
			}, nil
		},
	}, nil
}

type simultaneous struct {
	cfg  SimultaneousConfig
	pctx *peripheral.Context
	pub  *event.Publisher

	mu     sync.Mutex
	recent map[event.Producer]*pendingTap
	gen    uint64
}

func (s *simultaneous) Handle(ctx context.Context, evt event.Event) error {
	s.mu.Lock()
	if prev, ok := s.recent[evt.Producer]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	producer := evt.Producer
	s.recent[producer] = &pendingTap{
		evt: evt,
		gen: gen,
		timer: time.AfterFunc(s.cfg.Window, func() {
			s.expire(producer, gen)
		}),
	}

	var matched []event.Event
	for p, occ := range s.recent {
		if near(occ.evt.Timestamp, evt.Timestamp, s.cfg.Window) {
			matched = append(matched, occ.evt)
			continue
		}
		occ.timer.Stop()
		delete(s.recent, p)
	}
	if len(matched) < s.cfg.RequiredSources {
		s.mu.Unlock()
		return nil
	}
	for p, occ := range s.recent {
		occ.timer.Stop()
		delete(s.recent, p)
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	producers := make([]event.Producer, len(matched))
	for i, m := range matched {
		producers[i] = m.Producer
	}
	return s.pctx.Emit(ctx, s.pub, s.cfg.OutputEventType, SimultaneousPayload{
		VirtualPeripheral: describe(s.pctx),
		Producers:         producers,
		Events:            matched,
	})
}

func (s *simultaneous) expire(producer event.Producer, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if occ, ok := s.recent[producer]; ok && occ.gen == gen {
		delete(s.recent, producer)
	}
}

// Shutdown stops pending expiry timers.
func (s *simultaneous) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p, occ := range s.recent {
		occ.timer.Stop()
		delete(s.recent, p)
	}
}
