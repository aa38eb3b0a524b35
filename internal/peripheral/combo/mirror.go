package combo

import (
	"context"
	"fmt"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
	"github.com/Organization5762/heart/internal/peripheral"
)

// GatePredicate decides from the current state whether a gate is open.
type GatePredicate func(state *event.StateStore) bool

// GatedMirrorConfig configures GatedMirror.
type GatedMirrorConfig struct {
	Name string

	// GateEventTypes are read from the StateStore. The gate is open when the
	// latest entry of every type is truthy.
	GateEventTypes []topic.Topic

	// GatePredicate replaces the default gate.
	GatePredicate GatePredicate

	MirrorEventTypes []topic.Topic
	OutputProducer   event.Producer
	Metadata         map[string]any

	// SourceProducers, when set, limits mirroring to events from these
	// producers.
	SourceProducers []event.Producer
}

// GatedMirror re-emits MirrorEventTypes under OutputProducer while the gate
// is open and drops them while it is closed.
//
// The mirrored payload is not the original value. Map payloads are copied
// with a VirtualPeripheralKey entry added; any other payload is wrapped in a
// MirroredPayload. Events carrying OutputProducer and events that are
// already mirror output, from this or any other mirror, are never mirrored
// again, so several mirrors on the same type cannot feed each other.
func GatedMirror(cfg GatedMirrorConfig) (peripheral.Definition, error) {
	if cfg.Name == "" {
		cfg.Name = "gated_mirror"
	}
	if len(cfg.MirrorEventTypes) == 0 {
		return peripheral.Definition{}, fmt.Errorf("%w: %s has no mirror event types", peripheral.ErrInvalidDefinition, cfg.Name)
	}
	if cfg.GatePredicate == nil && len(cfg.GateEventTypes) == 0 {
		return peripheral.Definition{}, fmt.Errorf("%w: %s needs gate event types or a gate predicate", peripheral.ErrInvalidDefinition, cfg.Name)
	}
	if !cfg.OutputProducer.Valid {
		return peripheral.Definition{}, fmt.Errorf("%w: %s needs an output producer", peripheral.ErrInvalidDefinition, cfg.Name)
	}
	cfg.GateEventTypes = append([]topic.Topic(nil), cfg.GateEventTypes...)

	return peripheral.Definition{
		Name:       cfg.Name,
		EventTypes: topic.Unique(cfg.MirrorEventTypes...),
		Metadata:   cfg.Metadata,
		Priority:   event.PriorityHigh,
		Filter:     mirrorFilter(cfg),
		Factory: func(c *peripheral.Context) (peripheral.Instance, error) {
			gate := cfg.GatePredicate
			if gate == nil {
				gate = AllTruthy(cfg.GateEventTypes...)
			}
			return &gatedMirror{cfg: cfg, gate: gate, pctx: c, pub: c.Publisher(cfg.OutputProducer)}, nil
		},
	}, nil
}

func mirrorFilter(cfg GatedMirrorConfig) event.FilterFunc {
	filters := []event.FilterFunc{
		event.FilterExcludeProducer(cfg.OutputProducer),
		event.FilterNot(IsMirrored),
	}
	if len(cfg.SourceProducers) > 0 {
		filters = append(filters, event.FilterByProducers(cfg.SourceProducers...))
	}
	return event.FilterAnd(filters...)
}

// IsMirrored reports whether evt was produced by a GatedMirror.
var IsMirrored = event.FilterOr(
	event.FilterPayload(func(MirroredPayload) bool { return true }),
	event.FilterPayload(func(*MirroredPayload) bool { return true }),
	event.FilterPayload(func(m map[string]any) bool {
		_, ok := m[VirtualPeripheralKey]
		return ok
	}),
)

// AllTruthy returns a GatePredicate that is open when every type has a
// truthy latest entry.
func AllTruthy(types ...topic.Topic) GatePredicate {
	return func(state *event.StateStore) bool {
		for _, t := range types {
			entry, ok := state.Latest(t)
			if !ok || !Truthy(entry.Data) {
				return false
			}
		}
		return true
	}
}

// AnyTruthy returns a GatePredicate that is open when at least one type
// has a truthy latest entry.
func AnyTruthy(types ...topic.Topic) GatePredicate {
	return func(state *event.StateStore) bool {
		for _, t := range types {
			if entry, ok := state.Latest(t); ok && Truthy(entry.Data) {
				return true
			}
		}
		return false
	}
}

type gatedMirror struct {
	cfg  GatedMirrorConfig
	gate GatePredicate
	pctx *peripheral.Context
	pub  *event.Publisher
}

func (g *gatedMirror) Handle(ctx context.Context, evt event.Event) error {
	if !g.gate(g.pctx.State()) {
		return nil
	}

	vp := describe(g.pctx)
	mirrored := evt
	if m, ok := evt.Data.(map[string]any); ok {
		out := make(map[string]any, len(m)+1)
		for k, v := range m {
			out[k] = v
		}
		out[VirtualPeripheralKey] = vp
		mirrored.Data = out
	} else {
		mirrored.Data = MirroredPayload{VirtualPeripheral: vp, Data: evt.Data}
	}
	return g.pctx.Forward(ctx, g.pub, mirrored)
}
