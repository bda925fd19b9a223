package research

import (
	"encoding/json"
	"errors"
)

// ErrEmptyInstructions is returned for requests with no instructions
// after trimming.
var ErrEmptyInstructions = errors.New("research instructions must not be empty")

// EventType tags a progress event. The stream is consumed exactly once,
// in emission order. EventError and EventDone are mutually exclusive
// terminals; nothing follows either.
type EventType string

const (
	EventStatus  EventType = "status"
	EventSource  EventType = "source"
	EventContent EventType = "content"
	EventSources EventType = "sources"
	EventError   EventType = "error"
	EventDone    EventType = "done"
)

// Event is one entry in the research progress stream. Exactly one of
// the payload fields is set, according to Type.
type Event struct {
	Type      EventType
	Message   string     // status, content, error
	Source    *Source    // source
	Citations []Citation // sources
}

func statusEvent(msg string) Event  { return Event{Type: EventStatus, Message: msg} }
func contentEvent(msg string) Event { return Event{Type: EventContent, Message: msg} }
func errorEvent(msg string) Event   { return Event{Type: EventError, Message: msg} }
func doneEvent() Event              { return Event{Type: EventDone} }

func sourceEvent(src Source) Event {
	return Event{Type: EventSource, Source: &src}
}

func sourcesEvent(citations []Citation) Event {
	return Event{Type: EventSources, Citations: citations}
}

// Data renders the SSE data payload for the event: plain text for
// status/content/error, JSON for source/sources, empty for done.
func (e Event) Data() string {
	switch e.Type {
	case EventSource:
		data, err := json.Marshal(e.Source)
		if err != nil {
			return "{}"
		}
		return string(data)
	case EventSources:
		citations := e.Citations
		if citations == nil {
			citations = []Citation{}
		}
		data, err := json.Marshal(citations)
		if err != nil {
			return "[]"
		}
		return string(data)
	case EventDone:
		return ""
	default:
		return e.Message
	}
}
