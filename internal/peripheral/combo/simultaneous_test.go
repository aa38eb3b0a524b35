package combo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Organization5762/heart/internal/event"
)

func simultaneousConfig() SimultaneousConfig {
	return SimultaneousConfig{
		Name:            "chord",
		EventType:       "button.pressed",
		OutputEventType: "button.chord",
		Window:          100 * time.Millisecond,
		RequiredSources: 2,
	}
}

func TestSimultaneousDistinctProducers(t *testing.T) {
	h := newHarness(t)
	out := h.record("button.chord")
	h.register(Simultaneous(simultaneousConfig()))

	h.emit("button.pressed", "a", event.WithProducer(2), at(0))
	assert.Empty(t, out.all())
	h.emit("button.pressed", "b", event.WithProducer(1), at(40*time.Millisecond))

	got := out.all()
	require.Len(t, got, 1)
	p := got[0].Data.(SimultaneousPayload)
	assert.Equal(t, "chord", p.VirtualPeripheral.Name)
	assert.Equal(t, []event.Producer{event.ProducerID(2), event.ProducerID(1)}, p.Producers)
	require.Len(t, p.Events, 2)
	assert.Equal(t, "a", p.Events[0].Data)
	assert.Equal(t, event.NoProducer, got[0].Producer)
}

func TestSimultaneousSingleProducerNeverFires(t *testing.T) {
	h := newHarness(t)
	out := h.record("button.chord")
	h.register(Simultaneous(simultaneousConfig()))

	for i := 0; i < 10; i++ {
		h.emit("button.pressed", nil, event.WithProducer(1), at(time.Duration(i)*time.Millisecond))
	}
	assert.Empty(t, out.all())
}

func TestSimultaneousOutsideWindow(t *testing.T) {
	h := newHarness(t)
	out := h.record("button.chord")
	h.register(Simultaneous(simultaneousConfig()))

	h.emit("button.pressed", nil, event.WithProducer(1), at(0))
	h.emit("button.pressed", nil, event.WithProducer(2), at(500*time.Millisecond))
	assert.Empty(t, out.all())

	h.emit("button.pressed", nil, event.WithProducer(1), at(550*time.Millisecond))
	assert.Len(t, out.all(), 1)
}

func TestSimultaneousClearsAfterFiring(t *testing.T) {
	h := newHarness(t)
	out := h.record("button.chord")
	h.register(Simultaneous(simultaneousConfig()))

	h.emit("button.pressed", nil, event.WithProducer(1), at(0))
	h.emit("button.pressed", nil, event.WithProducer(2), at(10*time.Millisecond))
	h.emit("button.pressed", nil, event.WithProducer(2), at(20*time.Millisecond))
	assert.Len(t, out.all(), 1)
}

func TestSimultaneousThreeSources(t *testing.T) {
	h := newHarness(t)
	out := h.record("button.chord")
	cfg := simultaneousConfig()
	cfg.RequiredSources = 3
	cfg.OutputProducer = event.ProducerID(50)
	h.register(Simultaneous(cfg))

	h.emit("button.pressed", nil, event.WithProducer(1), at(0))
	h.emit("button.pressed", nil, event.WithProducer(2), at(10*time.Millisecond))
	h.emit("button.pressed", nil, event.WithProducer(2), at(20*time.Millisecond))
	assert.Empty(t, out.all())
	h.emit("button.pressed", nil, event.WithProducer(3), at(30*time.Millisecond))

	got := out.all()
	require.Len(t, got, 1)
	assert.Equal(t, event.ProducerID(50), got[0].Producer)
	assert.Len(t, got[0].Data.(SimultaneousPayload).Producers, 3)
}

func TestSimultaneousValidation(t *testing.T) {
	cfg := simultaneousConfig()
	cfg.RequiredSources = -1
	_, err := Simultaneous(cfg)
	require.Error(t, err)

	cfg = simultaneousConfig()
	cfg.Window = 0
	_, err = Simultaneous(cfg)
	require.Error(t, err)
}
