// Package events defines the raw input event types published by hardware
// drivers and their payloads.
//
// Topics follow dot notation, <source>.<device>.<action>:
//
//	input.button.pressed
//	input.switch.changed
//	input.gamepad.axis
//
// Drivers publish with the device's producer identity:
//
//	bus.Emit(ctx, events.TopicButtonPressed,
//		events.Button{Name: "red", Pressed: true},
//		event.WithProducer(3),
//	)
//
// Payloads that represent an on/off condition implement GateValue so they
// can drive gated virtual peripherals directly.
package events
