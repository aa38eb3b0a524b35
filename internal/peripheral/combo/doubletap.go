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

// DoubleTapConfig configures DoubleTap.
type DoubleTapConfig struct {
	Name      string
	EventType topic.Topic
	Window    time.Duration

	// OutputEventType defaults to EventType.Child(Name).
	OutputEventType topic.Topic
	Metadata        map[string]any

	// Predicate, when set, selects which occurrences count as taps.
	Predicate func(event.Event) bool

	// OutputProducer overrides the producer of the combo event. By default
	// the combo is emitted under the tapping producer.
	OutputProducer event.Producer
}

// DoubleTap fires when one producer emits EventType twice within Window.
func DoubleTap(cfg DoubleTapConfig) (peripheral.Definition, error) {
	if cfg.Name == "" {
		cfg.Name = "double_tap"
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
			return &doubleTap{cfg: cfg, pctx: c, pending: make(map[event.Producer]*pendingTap)}, nil
		},
	}, nil
}

type pendingTap struct {
	evt   event.Event
	timer *time.Timer
	gen   uint64
}

type doubleTap struct {
	cfg  DoubleTapConfig
	pctx *peripheral.Context

	mu      sync.Mutex
	pending map[event.Producer]*pendingTap
	gen     uint64
}

func (d *doubleTap) Handle(ctx context.Context, evt event.Event) error {
	d.mu.Lock()
	prev, ok := d.pending[evt.Producer]
	if ok {
		prev.timer.Stop()
		delete(d.pending, evt.Producer)
		if within(prev.evt.Timestamp, evt.Timestamp, d.cfg.Window) {
			d.mu.Unlock()
			return d.fire(ctx, prev.evt, evt)
		}
	}
	d.gen++
	gen := d.gen
	producer := evt.Producer
	d.pending[producer] = &pendingTap{
		evt: evt,
		gen: gen,
		timer: time.AfterFunc(d.cfg.Window, func() {
			d.expire(producer, gen)
		}),
	}
	d.mu.Unlock()
	return nil
}

func (d *doubleTap) expire(producer event.Producer, gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[producer]; ok && p.gen == gen {
		delete(d.pending, producer)
	}
}

func (d *doubleTap) fire(ctx context.Context, first, second event.Event) error {
	out := d.cfg.OutputProducer
	if !out.Valid {
		out = second.Producer
	}
	return d.pctx.Emit(ctx, d.pctx.Publisher(out), d.cfg.OutputEventType, DoubleTapPayload{
		VirtualPeripheral: describe(d.pctx),
		Producer:          second.Producer,
		Events:            []event.Event{first, second},
		Interval:          second.Timestamp.Sub(first.Timestamp),
	})
}

// Shutdown stops pending expiry timers.
func (d *doubleTap) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for p, tap := range d.pending {
		tap.timer.Stop()
		delete(d.pending, p)
	}
}
