package event

import (
	"sort"
	"sync"

	"github.com/Organization5762/heart/internal/event/topic"
)

// registry indexes subscriptions by exact event type. Each type's slice is
// kept in delivery order and replaced, never mutated, so snapshots handed out
// by match stay valid while the registry changes.
type registry struct {
	mu     sync.RWMutex
	byType map[topic.Topic][]*subscription
	byID   map[string]*subscription
}

func newRegistry() *registry {
	return &registry{
		byType: make(map[topic.Topic][]*subscription),
		byID:   make(map[string]*subscription),
	}
}

func (r *registry) add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.byType[sub.eventType]
	idx := sort.Search(len(cur), func(i int) bool { return sub.before(cur[i]) })

	next := make([]*subscription, 0, len(cur)+1)
	next = append(next, cur[:idx]...)
	next = append(next, sub)
	next = append(next, cur[idx:]...)

	r.byType[sub.eventType] = next
	r.byID[sub.id] = sub
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)

	cur := r.byType[sub.eventType]
	next := make([]*subscription, 0, len(cur))
	for _, s := range cur {
		if s != sub {
			next = append(next, s)
		}
	}
	if len(next) == 0 {
		delete(r.byType, sub.eventType)
	} else {
		r.byType[sub.eventType] = next
	}
	return true
}

// match returns the delivery-ordered subscriptions for t. The caller may
// iterate the result without holding any lock.
func (r *registry) match(t topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byType[t]
}

func (r *registry) countFor(t topic.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType[t])
}

func (r *registry) countActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, sub := range r.byID {
		if sub.Active() {
			n++
		}
	}
	return n
}

func (r *registry) eventTypes() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]topic.Topic, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
