package peripheral

import (
	"context"
	"fmt"
	"sort"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
)

// Instance is a live virtual peripheral.
type Instance interface {
	Handle(ctx context.Context, evt event.Event) error
}

// Shutdowner is implemented by instances that hold timers, runs or other
// resources to release on removal.
type Shutdowner interface {
	Shutdown()
}

// InstanceFunc adapts a function to Instance.
type InstanceFunc func(ctx context.Context, evt event.Event) error

// Handle calls f.
func (f InstanceFunc) Handle(ctx context.Context, evt event.Event) error {
	return f(ctx, evt)
}

// Factory constructs an instance from its context.
type Factory func(ctx *Context) (Instance, error)

// Resolver produces a named resource. It may request other resources from
// ctx. The ctx passed to a resolver is only valid for the duration of the
// call.
type Resolver func(ctx *Context) (any, error)

// Definition declares a virtual peripheral.
type Definition struct {
	Name       string
	EventTypes []topic.Topic
	Factory    Factory
	Resources  map[string]Resolver
	Metadata   map[string]any

	// Priority is the subscription priority of the instance's handler.
	Priority event.Priority

	// Filter, when set, drops events before they reach the instance.
	Filter event.FilterFunc
}

func (d Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	if d.Factory == nil {
		return fmt.Errorf("%w: %s has no factory", ErrInvalidDefinition, d.Name)
	}
	for _, t := range d.EventTypes {
		if !t.IsValid() {
			return fmt.Errorf("%w: %s event type %q", ErrInvalidDefinition, d.Name, t)
		}
	}
	for name, r := range d.Resources {
		if r == nil {
			return fmt.Errorf("%w: %s resource %q has no resolver", ErrInvalidDefinition, d.Name, name)
		}
	}
	return nil
}

// ID identifies a registered peripheral.
type ID string

// Handle refers to a registered peripheral.
type Handle struct {
	ID   ID
	Name string
}

// ResourceView is a read-only view of a definition's resources. It is
// backed by a private copy; changing the map a Definition was built from
// has no effect on it.
type ResourceView struct {
	resolvers map[string]Resolver
}

func newResourceView(src map[string]Resolver) ResourceView {
	m := make(map[string]Resolver, len(src))
	for k, v := range src {
		m[k] = v
	}
	return ResourceView{resolvers: m}
}

// Get returns the resolver registered under name.
func (v ResourceView) Get(name string) (Resolver, bool) {
	r, ok := v.resolvers[name]
	return r, ok
}

// Has reports whether name is declared.
func (v ResourceView) Has(name string) bool {
	_, ok := v.resolvers[name]
	return ok
}

// Names returns the declared resource names in sorted order.
func (v ResourceView) Names() []string {
	names := make([]string, 0, len(v.resolvers))
	for name := range v.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared resources.
func (v ResourceView) Len() int {
	return len(v.resolvers)
}

// DefinitionView describes a registered definition. Its fields are copies.
type DefinitionView struct {
	ID         ID
	Name       string
	EventTypes []topic.Topic
	Resources  ResourceView
	Metadata   map[string]any
	Priority   event.Priority
}

func (d Definition) view(id ID, resources ResourceView) DefinitionView {
	return DefinitionView{
		ID:         id,
		Name:       d.Name,
		EventTypes: append([]topic.Topic(nil), d.EventTypes...),
		Resources:  resources,
		Metadata:   copyMetadata(d.Metadata),
		Priority:   d.Priority,
	}
}

func copyMetadata(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	return event.CopyPayload(md).(map[string]any)
}
