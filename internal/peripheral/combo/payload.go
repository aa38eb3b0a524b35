package combo

import (
	"reflect"
	"time"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/peripheral"
)

// VirtualPeripheral identifies the definition that synthesized an event.
type VirtualPeripheral struct {
	Name     string
	Metadata map[string]any
}

// VirtualPeripheralKey is the map key injected into mirrored map payloads.
const VirtualPeripheralKey = "virtual_peripheral"

func describe(c *peripheral.Context) VirtualPeripheral {
	return VirtualPeripheral{Name: c.Name(), Metadata: c.Metadata()}
}

// DoubleTapPayload is emitted by DoubleTap.
type DoubleTapPayload struct {
	VirtualPeripheral VirtualPeripheral
	Producer          event.Producer
	Events            []event.Event
	Interval          time.Duration
}

// SimultaneousPayload is emitted by Simultaneous.
type SimultaneousPayload struct {
	VirtualPeripheral VirtualPeripheral
	Producers         []event.Producer
	Events            []event.Event
}

// SequencePayload is emitted by Sequence.
type SequencePayload struct {
	VirtualPeripheral VirtualPeripheral
	Events            []event.Event
	Elapsed           time.Duration
}

// MirroredPayload wraps non-map payloads re-emitted by GatedMirror.
type MirroredPayload struct {
	VirtualPeripheral VirtualPeripheral
	Data              any
}

// GatedPlaylistPayload is emitted by GatedPlaylist when an output event
// type is configured.
type GatedPlaylistPayload struct {
	VirtualPeripheral VirtualPeripheral
	RunID             string
	Trigger           event.Event
	Cancelled         []string
}

// GateValuer lets payload types report their own gate state.
type GateValuer interface {
	GateValue() bool
}

// gateKeys are checked in order on map payloads.
var gateKeys = []string{"pressed", "state", "enabled", "value", "active"}

// Truthy reports whether a payload opens a gate. Maps are judged by the
// first of pressed, state, enabled, value or active they contain; other
// values by GateValue or their own truthiness.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	if m, ok := v.(map[string]any); ok {
		for _, k := range gateKeys {
			if inner, ok := m[k]; ok {
				return Truthy(inner)
			}
		}
		return len(m) > 0
	}
	if g, ok := v.(GateValuer); ok {
		return g.GateValue()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return Truthy(rv.Elem().Interface())
	}
	return true
}

// within reports whether later happened no more than window after earlier.
func within(earlier, later time.Time, window time.Duration) bool {
	d := later.Sub(earlier)
	return d >= 0 && d <= window
}

// near reports whether a and b are at most window apart in either order.
func near(a, b time.Time, window time.Duration) bool {
	return within(a, b, window) || within(b, a, window)
}
