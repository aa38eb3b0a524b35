package topic

import "strings"

// Topic names an event type in dot notation, such as "button.pressed" or
// "playlist.stopped". The bus matches topics exactly.
type Topic string

// Separator joins topic segments.
const Separator = "."

func (t Topic) String() string {
	return string(t)
}

// Child appends one segment: Topic("playlist").Child("created") is
// "playlist.created".
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return t + Separator + Topic(segment)
}

// IsValid reports whether t is non-empty, has no empty segments and
// contains no whitespace.
func (t Topic) IsValid() bool {
	if t == "" || strings.ContainsAny(string(t), " \t\r\n") {
		return false
	}
	for _, seg := range strings.Split(string(t), Separator) {
		if seg == "" {
			return false
		}
	}
	return true
}

// Join builds a topic from segments.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}

// Unique drops repeated topics, keeping first-seen order.
func Unique(topics ...Topic) []Topic {
	seen := make(map[Topic]bool, len(topics))
	out := make([]Topic, 0, len(topics))
	for _, t := range topics {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
