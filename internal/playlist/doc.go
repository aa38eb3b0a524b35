// Package playlist schedules timed sequences of synthetic events.
//
// A Playlist is a reusable template: an ordered list of Steps, each emitting
// one event type Repeat times after an Offset, spaced by Interval. The
// Manager registers templates and starts runs from them. Every run executes
// on its own goroutine and ends in exactly one terminal state:
//
//	pending -> running -> completed | interrupted | cancelled
//
// Runs are observable through three reserved event types on the bus:
//
//	playlist.created  CreatedPayload, emitted synchronously by Start
//	playlist.emitted  EmittedPayload, once per step emission
//	playlist.stopped  StoppedPayload, once per run
//
// Step data is deep-copied for every emission and every telemetry payload,
// so subscribers that mutate what they receive never affect later repeats,
// other runs or other subscribers.
//
// A template with TriggerEventType starts a run whenever that event is
// published. InterruptEvents cancel every active run of the template with
// reason "interrupted".
//
// Templates can also be decoded from TOML:
//
//	[[playlist]]
//	name = "intro"
//	completion_event_type = "intro.done"
//
//	[[playlist.step]]
//	event_type = "led.flash"
//	offset = 0.5
//	repeat = 3
//	interval = 0.25
//	data = { color = "red" }
package playlist
