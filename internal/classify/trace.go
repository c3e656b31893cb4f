package classify

import (
	"fmt"
	"log/slog"
)

// EventKind names something a lookup or the shape search did.
type EventKind string

const (
	EventPastLimit    EventKind = "past-limit"
	EventContextEnd   EventKind = "context-end"
	EventContextStart EventKind = "context-start"
	EventSpeculative  EventKind = "speculative"
	EventShape        EventKind = "shape"
)

// Event is one entry of a Trace.
type Event struct {
	Kind   EventKind
	Offset int
	Detail string
}

func (e Event) String() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s@%d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("%s@%d: %s", e.Kind, e.Offset, e.Detail)
}

// Trace collects the events of one classification. A nil *Trace records nothing.
type Trace struct {
	Events []Event
}

func (t *Trace) add(kind EventKind, offset int, detail string) {
	if t == nil {
		return
	}
	t.Events = append(t.Events, Event{Kind: kind, Offset: offset, Detail: detail})
}

// Has reports whether an event of kind was recorded.
func (t *Trace) Has(kind EventKind) bool {
	if t == nil {
		return false
	}
	for _, e := range t.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Exhausted reports whether any lookup fell outside the stored context and a sentinel
// was substituted.
func (t *Trace) Exhausted() bool {
	return t.Has(EventPastLimit) || t.Has(EventContextEnd) || t.Has(EventContextStart)
}

// LogTo writes the collected events at debug level.
func (t *Trace) LogTo(logger *slog.Logger, id string) {
	if t == nil || logger == nil {
		return
	}
	for _, e := range t.Events {
		logger.Debug("classify", "id", id, "event", string(e.Kind), "offset", e.Offset, "detail", e.Detail)
	}
}
