package peripheral

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
)

func newTestManager(t *testing.T) (*event.Bus, *Manager) {
	t.Helper()
	bus := event.NewBus(event.WithLogger(zerolog.Nop()), event.WithMetrics(false))
	m := NewManager(bus, WithLogger(zerolog.Nop()), WithMetrics(false))
	t.Cleanup(func() { _ = m.Close() })
	return bus, m
}

type recordingInstance struct {
	mu       sync.Mutex
	events   []event.Event
	shutdown int
}

func (r *recordingInstance) Handle(ctx context.Context, evt event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingInstance) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown++
}

func (r *recordingInstance) seen() []topic.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []topic.Topic
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestRegisterSubscribesEveryType(t *testing.T) {
	bus, m := newTestManager(t)
	inst := &recordingInstance{}

	h, err := m.Register(Definition{
		Name:       "recorder",
		EventTypes: []topic.Topic{"button.pressed", "switch.changed"},
		Factory:    func(*Context) (Instance, error) { return inst, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, "recorder", h.Name)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, 1, m.Len())

	ctx := context.Background()
	require.NoError(t, bus.Emit(ctx, "button.pressed", nil))
	require.NoError(t, bus.Emit(ctx, "switch.changed", nil))
	require.NoError(t, bus.Emit(ctx, "other", nil))
	assert.Equal(t, []topic.Topic{"button.pressed", "switch.changed"}, inst.seen())

	got, ok := m.Instance(h)
	require.True(t, ok)
	assert.Same(t, inst, got)
}

func TestRegisterAppliesFilter(t *testing.T) {
	bus, m := newTestManager(t)
	inst := &recordingInstance{}

	_, err := m.Register(Definition{
		Name:       "filtered",
		EventTypes: []topic.Topic{"button.pressed"},
		Filter:     event.FilterExcludeProducer(event.ProducerID(3)),
		Factory:    func(*Context) (Instance, error) { return inst, nil },
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Emit(ctx, "button.pressed", nil, event.WithProducer(3)))
	require.NoError(t, bus.Emit(ctx, "button.pressed", nil, event.WithProducer(4)))
	assert.Len(t, inst.seen(), 1)
}

func TestRemoveUnsubscribesAndShutsDown(t *testing.T) {
	bus, m := newTestManager(t)
	inst := &recordingInstance{}

	h, err := m.Register(Definition{
		Name:       "recorder",
		EventTypes: []topic.Topic{"button.pressed"},
		Factory:    func(*Context) (Instance, error) { return inst, nil },
	})
	require.NoError(t, err)

	require.NoError(t, m.Remove(h))
	assert.Equal(t, 1, inst.shutdown)
	assert.Zero(t, bus.SubscriberCount("button.pressed"))

	require.NoError(t, bus.Emit(context.Background(), "button.pressed", nil))
	assert.Empty(t, inst.seen())

	require.ErrorIs(t, m.Remove(h), ErrUnknownPeripheral)
	assert.Empty(t, m.Definitions())
}

func TestRemoveWithoutShutdowner(t *testing.T) {
	_, m := newTestManager(t)
	h, err := m.Register(Definition{
		Name:       "plain",
		EventTypes: []topic.Topic{"a"},
		Factory: func(*Context) (Instance, error) {
			return InstanceFunc(func(context.Context, event.Event) error { return nil }), nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, m.Remove(h))
}

func TestRegisterValidation(t *testing.T) {
	_, m := newTestManager(t)
	factory := func(*Context) (Instance, error) { return &recordingInstance{}, nil }

	tests := []struct {
		name string
		def  Definition
	}{
		{"no name", Definition{Factory: factory}},
		{"no factory", Definition{Name: "x"}},
		{"bad type", Definition{Name: "x", Factory: factory, EventTypes: []topic.Topic{"a..b"}}},
		{"nil resolver", Definition{Name: "x", Factory: factory, Resources: map[string]Resolver{"r": nil}}},
		{"nil instance", Definition{Name: "x", Factory: func(*Context) (Instance, error) { return nil, nil }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Register(tt.def)
			require.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestFactoryError(t *testing.T) {
	_, m := newTestManager(t)
	boom := errors.New("boom")
	_, err := m.Register(Definition{
		Name:    "broken",
		Factory: func(*Context) (Instance, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, m.Len())
}

func TestDefinitionsAreReadOnlyCopies(t *testing.T) {
	_, m := newTestManager(t)

	resources := map[string]Resolver{
		"gain": func(*Context) (any, error) { return 2, nil },
	}
	metadata := map[string]any{"color": "red"}
	h, err := m.Register(Definition{
		Name:       "amp",
		EventTypes: []topic.Topic{"audio.level"},
		Factory:    func(*Context) (Instance, error) { return &recordingInstance{}, nil },
		Resources:  resources,
		Metadata:   metadata,
		Priority:   event.PriorityHigh,
	})
	require.NoError(t, err)

	resources["injected"] = func(*Context) (any, error) { return nil, nil }
	delete(resources, "gain")
	metadata["color"] = "blue"

	defs := m.Definitions()
	require.Len(t, defs, 1)
	view := defs[h.ID]
	assert.Equal(t, "amp", view.Name)
	assert.Equal(t, event.PriorityHigh, view.Priority)
	assert.Equal(t, []string{"gain"}, view.Resources.Names())
	assert.False(t, view.Resources.Has("injected"))
	assert.Equal(t, "red", view.Metadata["color"])

	view.Metadata["color"] = "green"
	view.EventTypes[0] = "changed"
	again := m.Definitions()[h.ID]
	assert.Equal(t, "red", again.Metadata["color"])
	assert.Equal(t, []topic.Topic{"audio.level"}, again.EventTypes)
}

func TestCloseRemovesAllAndRejectsRegistration(t *testing.T) {
	_, m := newTestManager(t)
	var order []string
	var mu sync.Mutex

	for _, name := range []string{"first", "second"} {
		name := name
		_, err := m.Register(Definition{
			Name: name,
			Factory: func(*Context) (Instance, error) {
				return &shutdownFunc{fn: func() {
					mu.Lock()
					defer mu.Unlock()
					order = append(order, name)
				}}, nil
			},
		})
		require.NoError(t, err)
	}

	require.NoError(t, m.Close())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Zero(t, m.Len())

	_, err := m.Register(Definition{Name: "late", Factory: func(*Context) (Instance, error) { return &recordingInstance{}, nil }})
	require.ErrorIs(t, err, ErrManagerClosed)
}

type shutdownFunc struct {
	fn func()
}

func (s *shutdownFunc) Handle(context.Context, event.Event) error { return nil }
func (s *shutdownFunc) Shutdown() { s.fn() }

func TestShutdownPanicIsContained(t *testing.T) {
	_, m := newTestManager(t)
	h, err := m.Register(Definition{
		Name: "panicky",
		Factory: func(*Context) (Instance, error) {
			return &shutdownFunc{fn: func() { panic("boom") }}, nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, m.Remove(h))
}

func TestContextEmitAndState(t *testing.T) {
	bus, m := newTestManager(t)

	var pctx *Context
	_, err := m.Register(Definition{
		Name:       "echo",
		EventTypes: []topic.Topic{"button.pressed"},
		Metadata:   map[string]any{"kind": "echo"},
		Factory: func(c *Context) (Instance, error) {
			pctx = c
			return InstanceFunc(func(ctx context.Context, evt event.Event) error {
				latest, ok := c.State().LatestFor(evt.Type, evt.Producer)
				if !ok {
					return errors.New("state not updated")
				}
				return c.Emit(ctx, c.Publisher(event.ProducerID(99)), "button.echoed", latest.Data)
			}), nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo", pctx.Name())
	assert.Equal(t, map[string]any{"kind": "echo"}, pctx.Metadata())
	assert.Same(t, bus, pctx.Bus())

	var echoed []event.Event
	_, err = bus.SubscribeFunc("button.echoed", func(ctx context.Context, evt event.Event) error {
		echoed = append(echoed, evt)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Emit(context.Background(), "button.pressed", "A", event.WithProducer(1)))
	require.Len(t, echoed, 1)
	assert.Equal(t, "A", echoed[0].Data)
	assert.Equal(t, event.ProducerID(99), echoed[0].Producer)
}
