package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Organization5762/heart/internal/event/dispatch"
	"github.com/Organization5762/heart/internal/event/topic"
	"github.com/Organization5762/heart/internal/log"
	"github.com/Organization5762/heart/internal/metrics"
)

// Bus is the central in-process event dispatcher.
//
// Emit and Publish deliver synchronously on the caller's goroutine. A
// subscriber may emit again from inside its handler; the nested event is
// fully delivered before the outer event reaches its remaining subscribers.
type Bus struct {
	registry *registry
	state    *StateStore
	runner   *dispatch.Runner
	copier   *payloadCopier
	config   busConfig
	logger   zerolog.Logger

	seq atomic.Uint64

	// Stats
	eventsPublished  atomic.Uint64
	eventsDelivered  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
	totalDeliveryNs  atomic.Int64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	copier := newPayloadCopier(config.logger)
	return &Bus{
		registry: newRegistry(),
		state:    newStateStore(copier),
		runner:   dispatch.New(dispatch.WithTimeout(config.handlerTimeout)),
		copier:   copier,
		config:   config,
		logger:   config.logger,
	}
}

// State returns the bus's latest-state cache.
func (b *Bus) State() *StateStore {
	return b.state
}

// Emit builds an event from its parts and publishes it.
func (b *Bus) Emit(ctx context.Context, eventType topic.Topic, data any, opts ...EmitOption) error {
	return b.Publish(ctx, New(eventType, data, opts...))
}

// Publish delivers a fully formed event. The state store is updated first,
// then subscribers run in priority order. Subscriber errors and panics are
// logged and counted; they never abort delivery or reach the caller.
//
// Each subscriber and the state store get their own copy of evt.Data; see
// CopyPayload for the types that are shared instead.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if !evt.Type.IsValid() {
		return fmt.Errorf("%w: type %q", ErrInvalidEvent, evt.Type)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = timeNow()
	}

	b.state.record(evt)
	b.eventsPublished.Add(1)
	if b.config.metricsEnabled {
		metrics.IncBusEvent(evt.Type.String())
	}

	for _, sub := range b.registry.match(evt.Type) {
		if !sub.accepts(evt) {
			continue
		}

		delivered := evt
		delivered.Data = b.copier.copy(evt.Data)

		result := b.runner.Run(ctx, delivered, sub.handler)
		b.handlersExecuted.Add(1)
		b.totalDeliveryNs.Add(result.Elapsed.Nanoseconds())

		switch result.Outcome {
		case dispatch.Panicked:
			b.handlerPanics.Add(1)
			b.reportFailure(sub, evt, result)
		case dispatch.Failed:
			b.handlerErrors.Add(1)
			b.reportFailure(sub, evt, result)
		default:
			b.eventsDelivered.Add(1)
		}
	}

	return nil
}

func (b *Bus) reportFailure(sub *subscription, evt Event, result dispatch.Result) {
	if b.config.metricsEnabled {
		metrics.IncSubscriberFailure(evt.Type.String(), result.Outcome.String())
	}

	herr := &HandlerError{SubscriptionID: sub.ID(), EventType: sub.eventType.String(), Err: result.Err}
	entry := b.logger.Error().
		Err(herr).
		Str(log.FieldEventType, evt.Type.String()).
		Str(log.FieldProducer, evt.Producer.String()).
		Str(log.FieldSubscriptionID, sub.ID()).
		Int(log.FieldPriority, int(sub.Priority()))
	if result.Outcome == dispatch.Panicked {
		entry.Bytes("stack", result.Stack).Msg("EventBus subscriber panicked")
		return
	}
	entry.Msg("EventBus subscriber failed")
}

// Subscribe registers handler for events of exactly the given type.
func (b *Bus) Subscribe(eventType topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !eventType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, eventType)
	}

	sub := newSubscription(uuid.NewString(), eventType, b.seq.Add(1), handler, opts...)
	b.registry.add(sub)
	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (b *Bus) SubscribeFunc(eventType topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(eventType, fn, opts...)
}

// RunOnEvent returns a decorator that subscribes the wrapped function at
// default priority and returns it unchanged:
//
//	onPress := bus.RunOnEvent("button.pressed")(func(ctx context.Context, evt event.Event) error {
//	    ...
//	})
func (b *Bus) RunOnEvent(eventType topic.Topic) func(HandlerFunc) HandlerFunc {
	return func(fn HandlerFunc) HandlerFunc {
		if _, err := b.SubscribeFunc(eventType, fn); err != nil {
			b.logger.Error().Err(err).Str(log.FieldEventType, eventType.String()).Msg("RunOnEvent subscription failed")
		}
		return fn
	}
}

// Unsubscribe removes a subscription. Deliveries already in progress finish.
func (b *Bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	sub.Cancel()
	if !b.registry.remove(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

// SubscriberCount returns the number of subscriptions for an event type.
func (b *Bus) SubscriberCount(eventType topic.Topic) int {
	return b.registry.countFor(eventType)
}

// EventTypes returns the sorted event types that have at least one
// subscription.
func (b *Bus) EventTypes() []topic.Topic {
	return b.registry.eventTypes()
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	executed := b.handlersExecuted.Load()
	var avgNs int64
	if executed > 0 {
		avgNs = b.totalDeliveryNs.Load() / int64(executed)
	}

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		HandlersExecuted:  executed,
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		AvgDeliveryTimeNs: avgNs,
		ActiveSubscribers: b.registry.countActive(),
	}
}
