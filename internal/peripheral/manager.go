package peripheral

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/log"
	"github.com/Organization5762/heart/internal/metrics"
)

type entry struct {
	id        ID
	def       Definition
	resources ResourceView
	ctx       *Context
	instance  Instance
	subs      *event.Subscriber
}

// Manager registers virtual peripherals and wires them to the bus.
type Manager struct {
	bus    *event.Bus
	cfg    managerConfig
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[ID]*entry
	order   []ID
	closed  bool
}

// NewManager creates a peripheral manager on bus.
func NewManager(bus *event.Bus, opts ...ManagerOption) *Manager {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		bus:     bus,
		cfg:     cfg,
		logger:  cfg.logger,
		entries: make(map[ID]*entry),
	}
}

// Register builds the instance's context, constructs it through the
// definition's factory and subscribes it to every listed event type.
func (m *Manager) Register(def Definition) (Handle, error) {
	if err := def.validate(); err != nil {
		return Handle{}, err
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return Handle{}, ErrManagerClosed
	}

	def.EventTypes = append(def.EventTypes[:0:0], def.EventTypes...)
	def.Metadata = copyMetadata(def.Metadata)
	e := &entry{
		id:        ID(uuid.NewString()),
		def:       def,
		resources: newResourceView(def.Resources),
	}
	e.def.Resources = nil
	e.ctx = newContext(e.id, def, e.resources, m.bus, m.logger, m.cfg.metricsEnabled)

	instance, err := def.Factory(e.ctx)
	if err != nil {
		return Handle{}, fmt.Errorf("constructing %s: %w", def.Name, err)
	}
	if instance == nil {
		return Handle{}, fmt.Errorf("%w: %s factory returned nil", ErrInvalidDefinition, def.Name)
	}
	e.instance = instance

	opts := []event.SubscriptionOption{event.WithPriority(def.Priority)}
	if def.Filter != nil {
		opts = append(opts, event.WithFilter(def.Filter))
	}
	e.subs = event.NewSubscriber(m.bus)
	if err := e.subs.SubscribeAll(def.EventTypes, event.HandlerFunc(instance.Handle), opts...); err != nil {
		_ = e.subs.Close()
		m.shutdown(e)
		return Handle{}, fmt.Errorf("subscribing %s: %w", def.Name, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = e.subs.Close()
		m.shutdown(e)
		return Handle{}, ErrManagerClosed
	}
	m.entries[e.id] = e
	m.order = append(m.order, e.id)
	m.mu.Unlock()

	if m.cfg.metricsEnabled {
		metrics.PeripheralsRegistered.Inc()
	}
	m.logger.Debug().
		Str(log.FieldPeripheral, def.Name).
		Str(log.FieldPeripheralID, string(e.id)).
		Int("subscriptions", e.subs.Count()).
		Msg("virtual peripheral registered")

	return Handle{ID: e.id, Name: def.Name}, nil
}

// Definitions returns a view of every registered definition by ID.
func (m *Manager) Definitions() map[ID]DefinitionView {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[ID]DefinitionView, len(m.entries))
	for id, e := range m.entries {
		out[id] = e.def.view(id, e.resources)
	}
	return out
}

// Instance returns the live instance behind a handle.
func (m *Manager) Instance(h Handle) (Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[h.ID]
	if !ok {
		return nil, false
	}
	return e.instance, true
}

// Remove unsubscribes the instance and shuts it down.
func (m *Manager) Remove(h Handle) error {
	m.mu.Lock()
	e, ok := m.entries[h.ID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPeripheral, h.Name)
	}
	delete(m.entries, h.ID)
	for i, id := range m.order {
		if id == h.ID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.remove(e)
	return nil
}

func (m *Manager) remove(e *entry) {
	_ = e.subs.Close()
	m.shutdown(e)
	if m.cfg.metricsEnabled {
		metrics.PeripheralsRegistered.Dec()
	}
	m.logger.Debug().
		Str(log.FieldPeripheral, e.def.Name).
		Str(log.FieldPeripheralID, string(e.id)).
		Msg("virtual peripheral removed")
}

func (m *Manager) shutdown(e *entry) {
	s, ok := e.instance.(Shutdowner)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str(log.FieldPeripheral, e.def.Name).
				Interface("panic", r).
				Msg("virtual peripheral shutdown panicked")
		}
	}()
	s.Shutdown()
}

// Close removes every peripheral, most recently registered first, and
// rejects later registrations.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	entries := make([]*entry, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		entries = append(entries, m.entries[m.order[i]])
	}
	m.entries = make(map[ID]*entry)
	m.order = nil
	m.mu.Unlock()

	for _, e := range entries {
		m.remove(e)
	}
	return nil
}

// Len returns the number of registered peripherals.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
