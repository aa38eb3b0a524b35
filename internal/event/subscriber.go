package event

import (
	"sync"

	"github.com/Organization5762/heart/internal/event/topic"
)

// Subscriber groups the subscriptions owned by one component so they can be
// dropped together. Playlists and virtual peripherals each hold one.
type Subscriber struct {
	bus *Bus

	mu     sync.Mutex
	order  []string
	owned  map[string]Subscription
	closed bool
}

// NewSubscriber returns an empty group on bus.
func NewSubscriber(bus *Bus) *Subscriber {
	return &Subscriber{bus: bus, owned: make(map[string]Subscription)}
}

// Subscribe registers handler and tracks the subscription.
func (s *Subscriber) Subscribe(eventType topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}
	sub, err := s.bus.Subscribe(eventType, handler, opts...)
	if err != nil {
		return nil, err
	}
	s.order = append(s.order, sub.ID())
	s.owned[sub.ID()] = sub
	return sub, nil
}

// SubscribeFunc is Subscribe for a plain function.
func (s *Subscriber) SubscribeFunc(eventType topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return s.Subscribe(eventType, fn, opts...)
}

// SubscribeAll registers handler for every type in eventTypes. Either all
// subscriptions are created or none are.
func (s *Subscriber) SubscribeAll(eventTypes []topic.Topic, handler Handler, opts ...SubscriptionOption) error {
	created := make([]Subscription, 0, len(eventTypes))
	for _, t := range eventTypes {
		sub, err := s.Subscribe(t, handler, opts...)
		if err != nil {
			for _, c := range created {
				_ = s.Unsubscribe(c)
			}
			return err
		}
		created = append(created, sub)
	}
	return nil
}

// Unsubscribe drops one subscription from the group and the bus.
func (s *Subscriber) Unsubscribe(sub Subscription) error {
	s.mu.Lock()
	s.forget(sub.ID())
	s.mu.Unlock()

	return s.bus.Unsubscribe(sub)
}

func (s *Subscriber) forget(id string) {
	if _, ok := s.owned[id]; !ok {
		return
	}
	delete(s.owned, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Close unsubscribes everything and rejects further subscriptions. It is
// safe to call more than once.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for _, id := range s.order {
		_ = s.bus.Unsubscribe(s.owned[id])
	}
	s.order = nil
	s.owned = nil
	return nil
}

// Count is the number of live subscriptions in the group.
func (s *Subscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
