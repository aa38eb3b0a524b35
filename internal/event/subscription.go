package event

import (
	"context"
	"sync/atomic"

	"github.com/Organization5762/heart/internal/event/dispatch"
	"github.com/Organization5762/heart/internal/event/topic"
)

// Subscription is a handle on a registered handler.
type Subscription interface {
	ID() string

	// EventType is the exact type the handler receives.
	EventType() topic.Topic

	Priority() Priority

	// Active reports whether events are still delivered.
	Active() bool

	// Cancel stops delivery permanently. Use Bus.Unsubscribe to also drop
	// the registry entry.
	Cancel()
}

type subscribeConfig struct {
	priority Priority
	filter   FilterFunc
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*subscribeConfig)

// WithPriority sets the delivery priority. Higher priorities run first; the
// default is PriorityNormal.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *subscribeConfig) {
		c.priority = p
	}
}

// WithFilter delivers only events for which f returns true.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *subscribeConfig) {
		c.filter = f
	}
}

type subscription struct {
	id        string
	eventType topic.Topic
	seq       uint64
	priority  Priority
	filter    FilterFunc
	cancelled atomic.Bool

	// handler is wrapped once at registration for the dispatch runner.
	handler dispatch.Handler
}

func newSubscription(id string, t topic.Topic, seq uint64, h Handler, opts ...SubscriptionOption) *subscription {
	cfg := subscribeConfig{priority: PriorityNormal}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &subscription{
		id:        id,
		eventType: t,
		seq:       seq,
		priority:  cfg.priority,
		filter:    cfg.filter,
		handler: dispatch.HandlerFunc(func(ctx context.Context, e any) error {
			return h.Handle(ctx, e.(Event))
		}),
	}
}

func (s *subscription) ID() string             { return s.id }
func (s *subscription) EventType() topic.Topic { return s.eventType }
func (s *subscription) Priority() Priority     { return s.priority }
func (s *subscription) Active() bool           { return !s.cancelled.Load() }
func (s *subscription) Cancel()                { s.cancelled.Store(true) }

// accepts reports whether evt should be handed to this subscription now.
func (s *subscription) accepts(evt Event) bool {
	return s.Active() && (s.filter == nil || s.filter(evt))
}

// before orders delivery: higher priority first, then earlier registration.
func (s *subscription) before(o *subscription) bool {
	if s.priority != o.priority {
		return s.priority > o.priority
	}
	return s.seq < o.seq
}
