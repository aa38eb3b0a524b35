package playlist

import (
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
)

// templateFile is the TOML layout accepted by DecodeTOML.
type templateFile struct {
	Playlists []playlistTemplate `toml:"playlist"`
}

type playlistTemplate struct {
	Name                string         `toml:"name"`
	CompletionEventType string         `toml:"completion_event_type"`
	TriggerEventType    string         `toml:"trigger_event_type"`
	InterruptEvents     []string       `toml:"interrupt_events"`
	Metadata            map[string]any `toml:"metadata"`
	Steps               []stepTemplate `toml:"step"`
}

// stepTemplate expresses offset and interval in seconds.
type stepTemplate struct {
	EventType string  `toml:"event_type"`
	Offset    float64 `toml:"offset"`
	Repeat    int     `toml:"repeat"`
	Interval  float64 `toml:"interval"`
	Producer  *int    `toml:"producer"`
	Data      any     `toml:"data"`
}

// DecodeTOML reads playlist templates from r. Unknown keys are rejected and
// every decoded playlist is validated.
func DecodeTOML(r io.Reader) ([]Playlist, error) {
	var file templateFile
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding playlist templates: %w", err)
	}

	out := make([]Playlist, 0, len(file.Playlists))
	for _, pt := range file.Playlists {
		p := pt.playlist()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (pt playlistTemplate) playlist() Playlist {
	p := Playlist{
		Name:                pt.Name,
		CompletionEventType: topic.Topic(pt.CompletionEventType),
		TriggerEventType:    topic.Topic(pt.TriggerEventType),
		Metadata:            pt.Metadata,
	}
	for _, t := range pt.InterruptEvents {
		p.InterruptEvents = append(p.InterruptEvents, topic.Topic(t))
	}
	for _, st := range pt.Steps {
		s := Step{
			EventType: topic.Topic(st.EventType),
			Data:      st.Data,
			Offset:    seconds(st.Offset),
			Repeat:    st.Repeat,
			Interval:  seconds(st.Interval),
		}
		if st.Producer != nil {
			s.Producer = event.ProducerID(*st.Producer)
		}
		p.Steps = append(p.Steps, s)
	}
	return p
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
