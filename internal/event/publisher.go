package event

import (
	"context"

	"github.com/Organization5762/heart/internal/event/topic"
)

// Publisher emits events on behalf of a single producer.
// Virtual peripherals use it to stamp their own identity on derived events.
type Publisher struct {
	bus      *Bus
	producer Producer
}

// NewPublisher creates a Publisher bound to the given producer.
func NewPublisher(bus *Bus, producer Producer) *Publisher {
	return &Publisher{bus: bus, producer: producer}
}

// Emit publishes an event under the publisher's producer.
// Options may still override the timestamp.
func (p *Publisher) Emit(ctx context.Context, eventType topic.Topic, data any, opts ...EmitOption) error {
	all := make([]EmitOption, 0, len(opts)+1)
	all = append(all, WithProducerOf(p.producer))
	all = append(all, opts...)
	return p.bus.Emit(ctx, eventType, data, all...)
}

// Forward re-publishes an existing event under the publisher's producer,
// keeping its type, payload and timestamp.
func (p *Publisher) Forward(ctx context.Context, evt Event) error {
	return p.bus.Publish(ctx, evt.WithProducer(p.producer))
}
