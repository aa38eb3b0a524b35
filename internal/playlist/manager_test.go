package playlist

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
)

const joinTimeout = 2 * time.Second

func newTestManager(t *testing.T, opts ...ManagerOption) (*event.Bus, *Manager) {
	t.Helper()
	bus := event.NewBus(event.WithLogger(zerolog.Nop()), event.WithMetrics(false))
	opts = append([]ManagerOption{WithLogger(zerolog.Nop()), WithMetrics(false)}, opts...)
	m := NewManager(bus, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		defer cancel()
		require.NoError(t, m.Close(ctx))
	})
	return bus, m
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func record(t *testing.T, bus *event.Bus, eventType topic.Topic) *recorder {
	t.Helper()
	r := &recorder{}
	_, err := bus.SubscribeFunc(eventType, func(ctx context.Context, evt event.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt)
		return nil
	})
	require.NoError(t, err)
	return r
}

func (r *recorder) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func stoppedPayloads(r *recorder) []StoppedPayload {
	var out []StoppedPayload
	for _, evt := range r.all() {
		out = append(out, evt.Data.(StoppedPayload))
	}
	return out
}

func longPlaylist(name string) Playlist {
	return Playlist{
		Name:  name,
		Steps: []Step{{EventType: "led.flash", Offset: time.Hour}},
	}
}

func TestRepeatEmitsDistinctCopies(t *testing.T) {
	bus, m := newTestManager(t)
	flashes := record(t, bus, "led.flash")
	stopped := record(t, bus, EventStopped)

	data := map[string]any{"color": "red", "levels": []any{1, 2}}
	h, err := m.Register(Playlist{
		Name: "blink",
		Steps: []Step{{
			EventType: "led.flash",
			Data:      data,
			Repeat:    3,
			Interval:  5 * time.Millisecond,
			Producer:  event.ProducerID(9),
		}},
	})
	require.NoError(t, err)

	id, err := m.Start(context.Background(), h)
	require.NoError(t, err)
	require.True(t, m.Join(id, joinTimeout))

	got := flashes.all()
	require.Len(t, got, 3)
	seen := map[uintptr]bool{reflect.ValueOf(data).Pointer(): true}
	for _, evt := range got {
		assert.Equal(t, event.ProducerID(9), evt.Producer)
		if diff := cmp.Diff(data, evt.Data); diff != "" {
			t.Errorf("emitted data mismatch (-want +got):\n%s", diff)
		}
		ptr := reflect.ValueOf(evt.Data).Pointer()
		assert.False(t, seen[ptr], "emission shares its payload")
		seen[ptr] = true
	}

	st, ok := m.Status(id)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, st.State)
	assert.Equal(t, ReasonCompleted, st.Reason)
	assert.False(t, st.FinishedAt.IsZero())

	stops := stoppedPayloads(stopped)
	require.Len(t, stops, 1)
	assert.Equal(t, ReasonCompleted, stops[0].Reason)
	assert.Equal(t, id, stops[0].PlaylistID)
}

func TestSubscriberMutationDoesNotLeak(t *testing.T) {
	bus, m := newTestManager(t)

	_, err := bus.SubscribeFunc("led.flash", func(ctx context.Context, evt event.Event) error {
		evt.Data.(map[string]any)["color"] = "blue"
		return nil
	}, event.WithPriority(event.PriorityHigh))
	require.NoError(t, err)
	_, err = bus.SubscribeFunc(EventEmitted, func(ctx context.Context, evt event.Event) error {
		evt.Data.(EmittedPayload).Data.(map[string]any)["color"] = "green"
		return nil
	}, event.WithPriority(event.PriorityHigh))
	require.NoError(t, err)

	flashes := record(t, bus, "led.flash")
	emitted := record(t, bus, EventEmitted)

	h, err := m.Register(Playlist{
		Name: "blink",
		Steps: []Step{{
			EventType: "led.flash",
			Data:      map[string]any{"color": "red"},
			Repeat:    2,
		}},
	})
	require.NoError(t, err)
	id, err := m.Start(context.Background(), h)
	require.NoError(t, err)
	require.True(t, m.Join(id, joinTimeout))

	require.Len(t, flashes.all(), 2)
	for _, evt := range flashes.all() {
		assert.Equal(t, "red", evt.Data.(map[string]any)["color"])
	}
	require.Len(t, emitted.all(), 2)
	for i, evt := range emitted.all() {
		p := evt.Data.(EmittedPayload)
		assert.Equal(t, i, p.RepeatIndex)
		assert.Equal(t, "red", p.Data.(map[string]any)["color"])
	}
}

func TestCreatedSnapshotIsIndependent(t *testing.T) {
	bus, m := newTestManager(t)

	var created CreatedPayload
	_, err := bus.SubscribeFunc(EventCreated, func(ctx context.Context, evt event.Event) error {
		created = evt.Data.(CreatedPayload)
		created.Steps[0].Data.(map[string]any)["color"] = "mutated"
		return nil
	})
	require.NoError(t, err)
	flashes := record(t, bus, "led.flash")

	h, err := m.Register(Playlist{
		Name:     "blink",
		Steps:    []Step{{EventType: "led.flash", Data: map[string]any{"color": "red"}}},
		Metadata: map[string]any{"scene": "intro"},
	})
	require.NoError(t, err)
	id, err := m.Start(context.Background(), h)
	require.NoError(t, err)

	// created is published synchronously by Start
	assert.Equal(t, id, created.PlaylistID)
	assert.Equal(t, "blink", created.Playlist)
	assert.Nil(t, created.TriggerEvent)
	assert.Equal(t, map[string]any{"scene": "intro"}, created.Metadata)
	require.Len(t, created.Steps, 1)
	assert.Equal(t, 1, created.Steps[0].Repeat)

	require.True(t, m.Join(id, joinTimeout))
	require.Len(t, flashes.all(), 1)
	assert.Equal(t, "red", flashes.all()[0].Data.(map[string]any)["color"])
}

func TestCompletionEvent(t *testing.T) {
	bus, m := newTestManager(t)
	done := record(t, bus, "intro.done")

	var order []topic.Topic
	var mu sync.Mutex
	track := func(ctx context.Context, evt event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, evt.Type)
		return nil
	}
	for _, tp := range []topic.Topic{"intro.done", EventStopped} {
		_, err := bus.SubscribeFunc(tp, track)
		require.NoError(t, err)
	}

	h, err := m.Register(Playlist{
		Name:                "intro",
		CompletionEventType: "intro.done",
		Metadata:            map[string]any{"scene": "intro"},
	})
	require.NoError(t, err)
	id, err := m.Start(context.Background(), h)
	require.NoError(t, err)
	require.True(t, m.Join(id, joinTimeout))

	require.Len(t, done.all(), 1)
	assert.Equal(t, CompletionPayload{
		PlaylistID: id,
		Metadata:   map[string]any{"scene": "intro"},
	}, done.all()[0].Data)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []topic.Topic{"intro.done", EventStopped}, order)
}

func TestInterruptStopsActiveRuns(t *testing.T) {
	bus, m := newTestManager(t)
	stopped := record(t, bus, EventStopped)
	flashes := record(t, bus, "led.flash")
	done := record(t, bus, "intro.done")

	p := longPlaylist("intro")
	p.CompletionEventType = "intro.done"
	p.InterruptEvents = []topic.Topic{"button.pressed"}
	h, err := m.Register(p)
	require.NoError(t, err)

	first, err := m.Start(context.Background(), h)
	require.NoError(t, err)
	second, err := m.Start(context.Background(), h)
	require.NoError(t, err)
	require.Len(t, m.ActiveRuns(), 2)

	require.NoError(t, bus.Emit(context.Background(), "button.pressed", map[string]any{"pressed": true}))
	require.True(t, m.Join(first, joinTimeout))
	require.True(t, m.Join(second, joinTimeout))

	stops := stoppedPayloads(stopped)
	require.Len(t, stops, 2)
	for _, s := range stops {
		assert.Equal(t, ReasonInterrupted, s.Reason)
		require.NotNil(t, s.InterruptEvent)
		assert.Equal(t, topic.Topic("button.pressed"), s.InterruptEvent.EventType)
		assert.Equal(t, map[string]any{"pressed": true}, s.InterruptEvent.Data)
	}
	assert.Empty(t, flashes.all())
	assert.Empty(t, done.all())
	assert.Empty(t, m.ActiveRuns())

	st, _ := m.Status(first)
	assert.Equal(t, StateInterrupted, st.State)
}

func TestInterruptWithoutActiveRunsIsIgnored(t *testing.T) {
	bus, m := newTestManager(t)
	stopped := record(t, bus, EventStopped)

	p := longPlaylist("intro")
	p.InterruptEvents = []topic.Topic{"button.pressed"}
	_, err := m.Register(p)
	require.NoError(t, err)

	require.NoError(t, bus.Emit(context.Background(), "button.pressed", nil))
	assert.Empty(t, stopped.all())
}

func TestCancel(t *testing.T) {
	bus, m := newTestManager(t)
	stopped := record(t, bus, EventStopped)

	h, err := m.Register(longPlaylist("idle"))
	require.NoError(t, err)
	id, err := m.Start(context.Background(), h)
	require.NoError(t, err)

	assert.False(t, m.Join(id, 20*time.Millisecond))
	require.True(t, m.Cancel(id))
	require.True(t, m.Join(id, joinTimeout))
	assert.False(t, m.Cancel(id), "finished runs cannot be cancelled again")
	assert.False(t, m.Cancel("missing"))
	assert.False(t, m.Join("missing", time.Millisecond))

	st, ok := m.Status(id)
	require.True(t, ok)
	assert.Equal(t, StateCancelled, st.State)

	stops := stoppedPayloads(stopped)
	require.Len(t, stops, 1)
	assert.Equal(t, ReasonCancelled, stops[0].Reason)
	assert.Nil(t, stops[0].InterruptEvent)
}

func TestTriggerStartsRun(t *testing.T) {
	bus, m := newTestManager(t)
	created := record(t, bus, EventCreated)

	h, err := m.Register(Playlist{
		Name:             "welcome",
		TriggerEventType: "scene.start",
		Steps:            []Step{{EventType: "led.flash"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "welcome", h.Name)

	require.NoError(t, bus.Emit(context.Background(), "scene.start", "hello", event.WithProducer(7)))

	require.Len(t, created.all(), 1)
	p := created.all()[0].Data.(CreatedPayload)
	require.NotNil(t, p.TriggerEvent)
	assert.Equal(t, topic.Topic("scene.start"), p.TriggerEvent.Type)
	assert.Equal(t, "hello", p.TriggerEvent.Data)
	assert.Equal(t, event.ProducerID(7), p.TriggerEvent.Producer)
	require.True(t, m.Join(p.PlaylistID, joinTimeout))
}

func TestStartWithTrigger(t *testing.T) {
	bus, m := newTestManager(t)
	created := record(t, bus, EventCreated)

	h, err := m.Register(Playlist{Name: "manual"})
	require.NoError(t, err)

	trigger := event.New("gate.open", map[string]any{"pressed": true})
	id, err := m.StartWithTrigger(context.Background(), h, trigger)
	require.NoError(t, err)
	require.True(t, m.Join(id, joinTimeout))

	p := created.all()[0].Data.(CreatedPayload)
	require.NotNil(t, p.TriggerEvent)
	assert.Equal(t, trigger.Type, p.TriggerEvent.Type)
	assert.Equal(t, trigger.Data, p.TriggerEvent.Data)
}

func TestRegisterValidation(t *testing.T) {
	_, m := newTestManager(t)

	tests := []struct {
		name     string
		playlist Playlist
	}{
		{"empty name", Playlist{}},
		{"empty step type", Playlist{Name: "p", Steps: []Step{{}}}},
		{"negative repeat", Playlist{Name: "p", Steps: []Step{{EventType: "a", Repeat: -1}}}},
		{"negative offset", Playlist{Name: "p", Steps: []Step{{EventType: "a", Offset: -time.Second}}}},
		{"negative interval", Playlist{Name: "p", Steps: []Step{{EventType: "a", Interval: -time.Second}}}},
		{"bad trigger", Playlist{Name: "p", TriggerEventType: "a..b"}},
		{"bad completion", Playlist{Name: "p", CompletionEventType: ".a"}},
		{"bad interrupt", Playlist{Name: "p", InterruptEvents: []topic.Topic{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Register(tt.playlist)
			require.ErrorIs(t, err, ErrInvalidPlaylist)
		})
	}
}

func TestRegisterCopiesTemplate(t *testing.T) {
	bus, m := newTestManager(t)
	flashes := record(t, bus, "led.flash")

	data := map[string]any{"color": "red"}
	p := Playlist{Name: "blink", Steps: []Step{{EventType: "led.flash", Data: data}}}
	h, err := m.Register(p)
	require.NoError(t, err)

	data["color"] = "blue"
	p.Steps[0].EventType = "other"

	id, err := m.Start(context.Background(), h)
	require.NoError(t, err)
	require.True(t, m.Join(id, joinTimeout))
	require.Len(t, flashes.all(), 1)
	assert.Equal(t, "red", flashes.all()[0].Data.(map[string]any)["color"])
}

func TestUnregisterCancelsRuns(t *testing.T) {
	bus, m := newTestManager(t)
	created := record(t, bus, EventCreated)

	p := longPlaylist("idle")
	p.TriggerEventType = "scene.start"
	h, err := m.Register(p)
	require.NoError(t, err)
	id, err := m.Start(context.Background(), h)
	require.NoError(t, err)

	require.NoError(t, m.Unregister(h))
	require.True(t, m.Join(id, joinTimeout))
	st, _ := m.Status(id)
	assert.Equal(t, StateCancelled, st.State)

	_, err = m.Start(context.Background(), h)
	require.ErrorIs(t, err, ErrUnknownPlaylist)
	require.ErrorIs(t, m.Unregister(h), ErrUnknownPlaylist)

	require.NoError(t, bus.Emit(context.Background(), "scene.start", nil))
	assert.Len(t, created.all(), 1, "trigger removed with the playlist")
}

func TestCloseCancelsRuns(t *testing.T) {
	_, m := newTestManager(t)

	h, err := m.Register(longPlaylist("idle"))
	require.NoError(t, err)
	id, err := m.Start(context.Background(), h)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()
	require.NoError(t, m.Close(ctx))

	st, ok := m.Status(id)
	require.True(t, ok)
	assert.Equal(t, StateCancelled, st.State)

	_, err = m.Start(context.Background(), h)
	require.ErrorIs(t, err, ErrManagerClosed)
	_, err = m.Register(Playlist{Name: "late"})
	require.ErrorIs(t, err, ErrManagerClosed)
}

func TestHistoryLimit(t *testing.T) {
	_, m := newTestManager(t, WithHistoryLimit(1))

	h, err := m.Register(Playlist{Name: "empty"})
	require.NoError(t, err)

	first, err := m.Start(context.Background(), h)
	require.NoError(t, err)
	require.True(t, m.Join(first, joinTimeout))

	second, err := m.Start(context.Background(), h)
	require.NoError(t, err)
	require.True(t, m.Join(second, joinTimeout))

	_, ok := m.Status(first)
	assert.False(t, ok)
	_, ok = m.Status(second)
	assert.True(t, ok)
}

func TestPlaylistDuration(t *testing.T) {
	p := Playlist{Steps: []Step{
		{Offset: time.Second, Repeat: 3, Interval: 100 * time.Millisecond},
		{Offset: 2 * time.Second},
	}}
	assert.Equal(t, 3200*time.Millisecond, p.Duration())
}
