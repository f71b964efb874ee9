package flow

import "strings"

// EventKind classifies an inbound event by its payload shape.
type EventKind string

const (
	// KindText is a free-text message typed by the user.
	KindText EventKind = "text"
	// KindButton is a button press carrying its callback payload.
	KindButton EventKind = "button"
	// KindLocation is a shared geographic location.
	KindLocation EventKind = "location"
)

// Event is one transport-agnostic inbound event.
type Event struct {
	SessionKey string
	Kind       EventKind
	Payload    string
	Lat        float64
	Lon        float64
}

// IsRestart reports whether the event is the explicit restart command,
// which forces the next state back to the root menu from anywhere.
func IsRestart(ev Event) bool {
	if ev.Kind == KindLocation {
		return false
	}
	p := strings.ToLower(strings.TrimSpace(ev.Payload))
	return p == "/start" || p == "start"
}
