package event

import "context"

// Priority determines handler execution order.
// Higher values execute first; equal priorities run in registration order.
type Priority int

const (
	// PriorityCritical is for handlers that must observe an event first.
	PriorityCritical Priority = 100

	// PriorityHigh is for virtual peripherals and other derived producers.
	PriorityHigh Priority = 50

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 0

	// PriorityLow is for metrics, logging handlers that run last.
	PriorityLow Priority = -50
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p >= PriorityCritical:
		return "critical"
	case p >= PriorityHigh:
		return "high"
	case p >= PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// Handler is the interface for event handlers.
type Handler interface {
	// Handle processes an event. Returned errors are logged by the bus and
	// never reach the publisher.
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// FilterFunc is a predicate for filtering events.
// Return true to allow the event, false to filter it out.
type FilterFunc func(evt Event) bool

// Stats contains event bus statistics.
type Stats struct {
	// EventsPublished is the total number of events published.
	EventsPublished uint64

	// EventsDelivered is the number of successful handler executions.
	EventsDelivered uint64

	// HandlersExecuted is the total number of handler executions.
	HandlersExecuted uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// AvgDeliveryTimeNs is the average handler execution time in nanoseconds.
	AvgDeliveryTimeNs int64

	// ActiveSubscribers is the current number of active subscriptions.
	ActiveSubscribers int
}
