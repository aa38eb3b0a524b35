package event

import (
	"strconv"
	"time"

	"github.com/Organization5762/heart/internal/event/topic"
)

// Producer identifies the source of an event: a physical or virtual
// peripheral. The zero value is NoProducer.
type Producer struct {
	ID    int
	Valid bool
}

// NoProducer marks an event without a producer identity.
var NoProducer = Producer{}

// ProducerID returns the Producer for the given numeric identity.
func ProducerID(id int) Producer {
	return Producer{ID: id, Valid: true}
}

// String returns the numeric identity, or "none" when unset.
func (p Producer) String() string {
	if !p.Valid {
		return "none"
	}
	return strconv.Itoa(p.ID)
}

// Event is a typed notification with payload, producer identity and
// timestamp. Events are values and are never mutated after creation; every
// subscriber receives its own copy of Data.
type Event struct {
	// Type is the event type (e.g., "button.pressed").
	Type topic.Topic

	// Data is the event payload.
	Data any

	// Producer identifies the originating source.
	Producer Producer

	// Timestamp is when the event was created.
	Timestamp time.Time
}

// New creates an event with the given type and payload.
// The timestamp defaults to now unless WithTimestamp is given.
func New(eventType topic.Topic, data any, opts ...EmitOption) Event {
	e := Event{Type: eventType, Data: data}
	for _, opt := range opts {
		opt(&e)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = timeNow()
	}
	return e
}

// Clone returns a copy of the event whose Data shares nothing with the
// original.
func (e Event) Clone() Event {
	e.Data = CopyPayload(e.Data)
	return e
}

// WithProducer returns a copy of the event with a different producer.
func (e Event) WithProducer(p Producer) Event {
	e.Producer = p
	return e
}

// EmitOption customizes an event built by New or Bus.Emit.
type EmitOption func(*Event)

// WithProducer sets the producer identity.
func WithProducer(id int) EmitOption {
	return func(e *Event) {
		e.Producer = ProducerID(id)
	}
}

// WithProducerOf sets the producer from an existing Producer value.
func WithProducerOf(p Producer) EmitOption {
	return func(e *Event) {
		e.Producer = p
	}
}

// WithTimestamp overrides the event timestamp.
func WithTimestamp(t time.Time) EmitOption {
	return func(e *Event) {
		e.Timestamp = t
	}
}

// CopyPayload returns a deep copy of v. Maps, slices, pointers and
// exported struct fields are copied recursively. Types that implement
// deepcopy.Interface (DeepCopy() interface{}) control their own copy.
//
// Values that cannot be copied faithfully are returned as is: structs with
// unexported fields and no DeepCopy method, and values that contain
// themselves. A warning naming the type is logged once.
func CopyPayload(v any) any {
	return defaultCopier.copy(v)
}

// timeNow is a variable to allow testing with fixed timestamps.
var timeNow = time.Now
