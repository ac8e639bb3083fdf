// Package event maps provider webhook envelopes onto canonical attendance
// events.
package event

import (
	"context"

	"github.com/foxseedlab/attendance/internal/attendance"
	"github.com/foxseedlab/attendance/internal/timestamp"
)

const (
	TypeParticipantJoined = "meeting.participant_joined"
	TypeParticipantLeft   = "meeting.participant_left"
	TypeURLValidation     = "endpoint.url_validation"

	UnknownID = "unknown"
)

type ResultType int

const (
	ResultIgnored ResultType = iota
	ResultAttendance
	ResultHandshake
)

type Result struct {
	Type      ResultType
	EventType string
	Event     attendance.Event
	// PlainToken is set for handshake results; it may be empty when the
	// provider omitted it.
	PlainToken string
}

type Normalizer struct {
	timestamps *timestamp.Normalizer
}

func NewNormalizer(ts *timestamp.Normalizer) *Normalizer {
	if ts == nil {
		ts = timestamp.NewNormalizer()
	}
	return &Normalizer{timestamps: ts}
}

// Normalize never fails: missing identifiers degrade to UnknownID and
// missing or unusable timestamps degrade to the current time.
func (n *Normalizer) Normalize(ctx context.Context, envelope Document) Result {
	eventType := envelope.Text("event")
	if eventType == TypeURLValidation {
		return Result{
			Type:       ResultHandshake,
			EventType:  eventType,
			PlainToken: envelope.Object("payload").Text("plainToken"),
		}
	}

	kind, ok := KindForEventType(eventType)
	if !ok {
		return Result{Type: ResultIgnored, EventType: eventType}
	}

	object := envelope.Object("payload").Object("object")
	participant := object.Object("participant")

	raw, _ := TimestampValue(envelope, participant, kind)
	at, _ := n.timestamps.Normalize(ctx, raw, timestamp.Lenient)

	return Result{
		Type:      ResultAttendance,
		EventType: eventType,
		Event: attendance.Event{
			SessionID: SessionID(object),
			UserID:    UserID(participant),
			Kind:      kind,
			At:        at,
		},
	}
}

func KindForEventType(eventType string) (attendance.Kind, bool) {
	switch eventType {
	case TypeParticipantJoined:
		return attendance.KindJoin, true
	case TypeParticipantLeft:
		return attendance.KindLeave, true
	default:
		return "", false
	}
}

// SessionID prefers the meeting instance uuid over the reusable meeting id.
func SessionID(object Document) string {
	return coalesce(object.Text("uuid"), object.Text("id"), UnknownID)
}

func UserID(participant Document) string {
	return coalesce(
		participant.Text("email"),
		participant.Text("user_id"),
		participant.Text("id"),
		UnknownID,
	)
}

// TimestampValue picks the participant-level time matching kind, then the
// envelope event_ts. A false second return means neither was present.
func TimestampValue(envelope, participant Document, kind attendance.Kind) (any, bool) {
	field := "join_time"
	if kind == attendance.KindLeave {
		field = "leave_time"
	}
	if v, ok := participant.Value(field); ok {
		return v, true
	}
	return envelope.Value("event_ts")
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
