package attendance

import (
	"fmt"
	"time"
)

// Kind is the direction of an attendance event.
type Kind string

const (
	KindJoin  Kind = "join"
	KindLeave Kind = "leave"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindJoin, KindLeave:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("event_type must be %q or %q, got %q", KindJoin, KindLeave, s)
	}
}

// Event is the canonical form of one join or leave notification. It lives
// only for the duration of a request.
type Event struct {
	SessionID string
	UserID    string
	Kind      Kind
	At        time.Time
}
