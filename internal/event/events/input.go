package events

import (
	"math"

	"github.com/Organization5762/heart/internal/event/topic"
)

// Input event topics.
const (
	// TopicButtonPressed is published when a push button goes down.
	TopicButtonPressed topic.Topic = "input.button.pressed"

	// TopicButtonReleased is published when a push button comes up.
	TopicButtonReleased topic.Topic = "input.button.released"

	// TopicSwitchChanged is published when a latching switch or rotary
	// selector changes position.
	TopicSwitchChanged topic.Topic = "input.switch.changed"

	// TopicGamepadButton is published for gamepad button transitions.
	TopicGamepadButton topic.Topic = "input.gamepad.button"

	// TopicGamepadAxis is published when a stick or trigger moves.
	TopicGamepadAxis topic.Topic = "input.gamepad.axis"

	// TopicSensorReading is published for periodic sensor samples.
	TopicSensorReading topic.Topic = "input.sensor.reading"
)

// InputTopics returns every raw input topic.
func InputTopics() []topic.Topic {
	return []topic.Topic{
		TopicButtonPressed,
		TopicButtonReleased,
		TopicSwitchChanged,
		TopicGamepadButton,
		TopicGamepadAxis,
		TopicSensorReading,
	}
}

// Button is the payload for push button events.
type Button struct {
	// Name identifies the button on its device (e.g., "red", "start").
	Name string

	// Pressed is true while the button is held down.
	Pressed bool
}

// GateValue reports whether the button is held.
func (b Button) GateValue() bool { return b.Pressed }

// Switch is the payload for TopicSwitchChanged.
type Switch struct {
	Name string

	// On is the state of a two-position switch.
	On bool

	// Position is the detent of a rotary selector, zero for toggles.
	Position int
}

// GateValue reports whether the switch is on.
func (s Switch) GateValue() bool { return s.On }

// GamepadButton is the payload for TopicGamepadButton.
type GamepadButton struct {
	Button  string
	Pressed bool
}

// GateValue reports whether the button is held.
func (b GamepadButton) GateValue() bool { return b.Pressed }

// AxisDeadzone is the magnitude below which an axis counts as centered.
const AxisDeadzone = 0.1

// GamepadAxis is the payload for TopicGamepadAxis.
type GamepadAxis struct {
	Axis string

	// Value is normalized to [-1, 1].
	Value float64
}

// GateValue reports whether the axis is outside the deadzone.
func (a GamepadAxis) GateValue() bool { return math.Abs(a.Value) >= AxisDeadzone }

// SensorReading is the payload for TopicSensorReading.
type SensorReading struct {
	Sensor string
	Value  float64
	Unit   string
}
