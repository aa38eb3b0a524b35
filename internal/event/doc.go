// Package event provides the in-process event bus at the center of the
// device-control engine.
//
// Drivers publish raw input samples (button presses, switch rotations,
// sensor readings) as Events. The Bus records each event in its StateStore
// and then invokes every subscriber for that event type synchronously on
// the publishing goroutine.
//
// # Architecture
//
//	                 ┌──────────────────────────────────────────┐
//	 driver ──Emit──▶│                 Bus                       │
//	                 │  1. normalize event (timestamp)           │
//	                 │  2. StateStore.record                     │
//	                 │  3. registry match (priority, then FIFO)  │
//	                 │  4. dispatch each subscriber              │
//	                 └──────────────────────────────────────────┘
//	                                   │
//	          ┌────────────────────────┼───────────────────────┐
//	          ▼                        ▼                       ▼
//	┌─────────────────┐      ┌─────────────────┐     ┌─────────────────┐
//	│   StateStore    │      │    registry     │     │    dispatch     │
//	│ latest per type │      │ exact-type subs │     │ error & panic   │
//	│ and producer    │      │ sorted by prio  │     │ capture         │
//	└─────────────────┘      └─────────────────┘     └─────────────────┘
//
// # Ordering
//
// Subscribers run by descending Priority; equal priorities run in
// registration order. A subscriber may emit from inside its handler. The
// nested event is delivered completely before the outer event continues
// to its remaining subscribers (depth-first).
//
// # Failure Isolation
//
// A subscriber that returns an error or panics is logged with the text
// "EventBus subscriber" and skipped. Remaining subscribers still run and the
// publisher never sees the failure.
//
// # Payload Isolation
//
// Each subscriber receives its own deep copy of the event payload, and the
// StateStore keeps another. Mutating a delivered payload cannot affect other
// subscribers, the recorded state, or the producer's original value.
//
// Copies are made with github.com/mohae/deepcopy, which cannot see unexported
// struct fields. Payload types with unexported state should implement
// DeepCopy() interface{}. A payload that would lose data in the copy, or
// that contains itself, is delivered uncopied and the bus logs one warning
// per type.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	bus.SubscribeFunc("button.pressed", func(ctx context.Context, evt event.Event) error {
//	    fmt.Println("pressed by", evt.Producer)
//	    return nil
//	}, event.WithPriority(event.PriorityHigh))
//
//	bus.Emit(ctx, "button.pressed", map[string]any{"pressed": true}, event.WithProducer(1))
//
//	entry, ok := bus.State().LatestFor("button.pressed", event.ProducerID(1))
//
// # Thread Safety
//
// Bus, Subscriber and StateStore are safe for concurrent use. There is no
// ordering guarantee between events emitted concurrently from different
// goroutines; within one goroutine emit order is preserved.
package event
