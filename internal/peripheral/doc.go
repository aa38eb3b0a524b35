// Package peripheral hosts virtual peripherals: components that consume
// existing event streams and synthesize new, higher-level events.
//
// A Definition names the event types an instance listens to, a Factory that
// builds the instance and a set of named Resources. Resources are resolved
// lazily through the instance's Context; a resolver may request other
// resources by name, each is evaluated at most once, and missing names or
// cycles are reported as ErrUnknownResource and ErrResourceCycle.
//
// The Manager builds the Context, constructs the instance and subscribes its
// Handle method to every listed event type. Remove unsubscribes the instance
// and calls Shutdown when the instance implements Shutdowner.
//
//	m := peripheral.NewManager(bus)
//	h, err := m.Register(peripheral.Definition{
//		Name:       "konami",
//		EventTypes: []topic.Topic{"button.pressed"},
//		Factory:    newKonami,
//	})
//	defer m.Remove(h)
package peripheral
