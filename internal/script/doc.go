// Package script compiles Lua expressions into event predicates.
//
// Predicates run in a sandboxed gopher-lua state with only the base, table,
// string and math libraries. Each evaluation sees these globals:
//
//	event_type  the event type as a string
//	producer    the producer number, or nil when unset
//	timestamp   Unix time in seconds
//	data        the payload converted to Lua values
//
// Example:
//
//	p, err := script.Compile(`event_type == "button.pressed" and data.pressed`)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//	matched := p.Match(evt)
package script
