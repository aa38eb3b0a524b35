package playlist

import (
	"time"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
)

// Reserved telemetry event types.
const (
	EventCreated topic.Topic = "playlist.created"
	EventEmitted topic.Topic = "playlist.emitted"
	EventStopped topic.Topic = "playlist.stopped"
)

// StepSnapshot describes a step as it was when the run started.
type StepSnapshot struct {
	EventType topic.Topic
	Data      any
	Offset    time.Duration
	Repeat    int
	Interval  time.Duration
	Producer  event.Producer
}

// CreatedPayload is published on EventCreated.
type CreatedPayload struct {
	PlaylistID   RunID
	Playlist     string
	TriggerEvent *event.Event
	Metadata     map[string]any
	Steps        []StepSnapshot
}

// EmittedPayload is published on EventEmitted after each step emission.
type EmittedPayload struct {
	PlaylistID  RunID
	Playlist    string
	EventType   topic.Topic
	StepIndex   int
	RepeatIndex int
	Data        any
	Metadata    map[string]any
}

// InterruptEvent records the event that interrupted a run.
type InterruptEvent struct {
	EventType topic.Topic
	Data      any
}

// StoppedPayload is published on EventStopped when a run ends.
type StoppedPayload struct {
	PlaylistID     RunID
	Playlist       string
	Reason         StopReason
	InterruptEvent *InterruptEvent
	Metadata       map[string]any
}

// CompletionPayload is published on a playlist's CompletionEventType.
type CompletionPayload struct {
	PlaylistID RunID
	Metadata   map[string]any
}

func snapshotSteps(steps []Step) []StepSnapshot {
	out := make([]StepSnapshot, len(steps))
	for i, s := range steps {
		out[i] = StepSnapshot{
			EventType: s.EventType,
			Data:      event.CopyPayload(s.Data),
			Offset:    s.Offset,
			Repeat:    s.repeats(),
			Interval:  s.Interval,
			Producer:  s.Producer,
		}
	}
	return out
}

func cloneMetadata(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	return event.CopyPayload(md).(map[string]any)
}
