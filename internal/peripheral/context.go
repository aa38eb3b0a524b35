package peripheral

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
	"github.com/Organization5762/heart/internal/log"
	"github.com/Organization5762/heart/internal/metrics"
)

// scope is the state shared by an instance's root context and the nested
// contexts handed to resolvers.
type scope struct {
	id             ID
	name           string
	metadata       map[string]any
	bus            *event.Bus
	resources      ResourceView
	logger         zerolog.Logger
	metricsEnabled bool

	// mu serializes resolution. Only root contexts lock it; nested
	// contexts run while it is held.
	mu    sync.Mutex
	cache map[string]any
}

// Context is owned by a single instance and gives it access to the bus,
// the shared StateStore and its resources.
type Context struct {
	*scope
	chain  []string
	nested bool
}

func newContext(id ID, def Definition, resources ResourceView, bus *event.Bus, logger zerolog.Logger, metricsEnabled bool) *Context {
	return &Context{scope: &scope{
		id:             id,
		name:           def.Name,
		metadata:       copyMetadata(def.Metadata),
		bus:            bus,
		resources:      resources,
		logger:         logger.With().Str(log.FieldPeripheral, def.Name).Str(log.FieldPeripheralID, string(id)).Logger(),
		metricsEnabled: metricsEnabled,
		cache:          make(map[string]any),
	}}
}

// Resource returns the named resource, resolving it on first use.
// Successful results are memoized; failed resolutions are retried on the
// next call.
func (c *Context) Resource(name string) (any, error) {
	if !c.nested {
		c.mu.Lock()
		defer c.mu.Unlock()
	}

	if v, ok := c.cache[name]; ok {
		return v, nil
	}
	resolve, ok := c.resources.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownResource, name, c.name)
	}
	if slices.Contains(c.chain, name) {
		path := append(slices.Clone(c.chain), name)
		return nil, fmt.Errorf("%w: %s", ErrResourceCycle, strings.Join(path, " -> "))
	}

	child := &Context{
		scope:  c.scope,
		chain:  append(slices.Clone(c.chain), name),
		nested: true,
	}
	v, err := resolve(child)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", name, err)
	}
	c.cache[name] = v
	c.logger.Debug().Str(log.FieldResource, name).Msg("resource resolved")
	return v, nil
}

// ResourceAs resolves a resource and asserts its type.
func ResourceAs[T any](c *Context, name string) (T, error) {
	var zero T
	v, err := c.Resource(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resource %q is %T, not %T", name, v, zero)
	}
	return t, nil
}

// Resources returns a read-only view of the declared resources.
func (c *Context) Resources() ResourceView {
	return c.resources
}

// State returns the bus's StateStore.
func (c *Context) State() *event.StateStore {
	return c.bus.State()
}

// Bus returns the event bus.
func (c *Context) Bus() *event.Bus {
	return c.bus
}

// Emit publishes an event synthesized by this peripheral through pub.
func (c *Context) Emit(ctx context.Context, pub *event.Publisher, eventType topic.Topic, data any, opts ...event.EmitOption) error {
	if err := pub.Emit(ctx, eventType, data, opts...); err != nil {
		return err
	}
	c.countOutput()
	return nil
}

// Publisher returns a publisher that stamps producer on this peripheral's
// output.
func (c *Context) Publisher(producer event.Producer) *event.Publisher {
	return event.NewPublisher(c.bus, producer)
}

// Forward re-publishes evt through pub, keeping its type and timestamp.
func (c *Context) Forward(ctx context.Context, pub *event.Publisher, evt event.Event) error {
	if err := pub.Forward(ctx, evt); err != nil {
		return err
	}
	c.countOutput()
	return nil
}

func (c *Context) countOutput() {
	if c.metricsEnabled {
		metrics.IncPeripheralOutput(c.name)
	}
}

// ID returns the peripheral's registration ID.
func (c *Context) ID() ID {
	return c.id
}

// Name returns the definition name.
func (c *Context) Name() string {
	return c.name
}

// Metadata returns a copy of the definition metadata.
func (c *Context) Metadata() map[string]any {
	return copyMetadata(c.metadata)
}

// Logger returns a logger annotated with the peripheral's identity.
func (c *Context) Logger() zerolog.Logger {
	return c.logger
}
