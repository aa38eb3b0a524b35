// Package topic names the event types carried by the event bus.
//
// Topics use dot notation to group related types:
//
//	input.button.pressed
//	playlist.created
//	playlist.stopped
//
// Dispatch is by exact equality. Child derives output types from input
// types.
package topic
