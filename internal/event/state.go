package event

import (
	"sort"
	"sync"
	"time"

	"github.com/Organization5762/heart/internal/event/topic"
)

// StateEntry is the most recent event recorded for an event type and
// producer.
type StateEntry struct {
	Type      topic.Topic
	Producer  Producer
	Data      any
	Timestamp time.Time
}

// Event rebuilds the event this entry was recorded from.
func (e StateEntry) Event() Event {
	return Event{Type: e.Type, Data: e.Data, Producer: e.Producer, Timestamp: e.Timestamp}
}

type stateKey struct {
	t topic.Topic
	p Producer
}

// StateStore caches the latest event per (type, producer) and per type.
//
// The bus writes an event into the store before any subscriber for that
// event runs. Reads are safe from any goroutine.
type StateStore struct {
	mu         sync.RWMutex
	byProducer map[stateKey]StateEntry
	byType     map[topic.Topic]StateEntry
	copier     *payloadCopier
}

// NewStateStore creates an empty store that copies payloads in and out.
func NewStateStore() *StateStore {
	return newStateStore(defaultCopier)
}

func newStateStore(copier *payloadCopier) *StateStore {
	return &StateStore{
		byProducer: make(map[stateKey]StateEntry),
		byType:     make(map[topic.Topic]StateEntry),
		copier:     copier,
	}
}

// Latest returns the most recent entry for the event type across all
// producers.
func (s *StateStore) Latest(t topic.Topic) (StateEntry, bool) {
	s.mu.RLock()
	entry, ok := s.byType[t]
	s.mu.RUnlock()
	if !ok {
		return StateEntry{}, false
	}
	return s.out(entry), true
}

// LatestFor returns the most recent entry for the event type from exactly
// the given producer. NoProducer matches only events emitted without one.
func (s *StateStore) LatestFor(t topic.Topic, p Producer) (StateEntry, bool) {
	s.mu.RLock()
	entry, ok := s.byProducer[stateKey{t: t, p: p}]
	s.mu.RUnlock()
	if !ok {
		return StateEntry{}, false
	}
	return s.out(entry), true
}

// Snapshot returns every per-producer entry ordered by type, then producer.
func (s *StateStore) Snapshot() []StateEntry {
	s.mu.RLock()
	entries := make([]StateEntry, 0, len(s.byProducer))
	for _, e := range s.byProducer {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type < entries[j].Type
		}
		pi, pj := entries[i].Producer, entries[j].Producer
		if pi.Valid != pj.Valid {
			return !pi.Valid
		}
		return pi.ID < pj.ID
	})
	for i := range entries {
		entries[i] = s.out(entries[i])
	}
	return entries
}

// Len returns the number of distinct (type, producer) entries.
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byProducer)
}

// record stores the event as the latest for its type and producer.
func (s *StateStore) record(evt Event) {
	entry := StateEntry{
		Type:      evt.Type,
		Producer:  evt.Producer,
		Data:      s.copier.copy(evt.Data),
		Timestamp: evt.Timestamp,
	}

	s.mu.Lock()
	s.byProducer[stateKey{t: evt.Type, p: evt.Producer}] = entry
	s.byType[evt.Type] = entry
	s.mu.Unlock()
}

func (s *StateStore) out(e StateEntry) StateEntry {
	e.Data = s.copier.copy(e.Data)
	return e
}
