// Package attendance turns canonical join/leave events into attendance
// segments and derives summaries from them.
package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/attendance/internal/apperror"
	"github.com/foxseedlab/attendance/internal/logging"
	"github.com/foxseedlab/attendance/internal/repository"
)

type Action string

const (
	ActionSegmentOpened Action = "segment_opened"
	ActionSegmentClosed Action = "segment_closed"
	ActionNoOpenSegment Action = "no_open_segment"
)

type Outcome struct {
	Action    Action
	SegmentID int64
	// DurationSec is set only for ActionSegmentClosed and may be negative
	// when the leave precedes the join.
	DurationSec int64
}

// Recorder observes applied outcomes, e.g. for metrics.
type Recorder interface {
	RecordOutcome(kind Kind, outcome Outcome)
}

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(Kind, Outcome) {}

type Tracker struct {
	writer   repository.SegmentWriter
	recorder Recorder
}

func NewTracker(writer repository.SegmentWriter, recorder Recorder) *Tracker {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Tracker{writer: writer, recorder: recorder}
}

// Apply opens or closes a segment for ev inside one transaction scoped to
// the event's (session, user) pair.
func (t *Tracker) Apply(ctx context.Context, ev Event) (Outcome, error) {
	if t.writer == nil {
		return Outcome{}, apperror.NewStoreUnavailable("store is not initialized")
	}
	if ev.SessionID == "" || ev.UserID == "" {
		return Outcome{}, apperror.NewValidation("session_id and user_id are required")
	}
	if ev.Kind != KindJoin && ev.Kind != KindLeave {
		return Outcome{}, apperror.NewValidation("unsupported event kind " + string(ev.Kind))
	}

	var out Outcome
	key := repository.SegmentKey{SessionID: ev.SessionID, UserID: ev.UserID}
	err := t.writer.WithinSegmentTx(ctx, key, func(tx repository.SegmentTx) error {
		if err := tx.EnsureSession(ctx, ev.SessionID); err != nil {
			return err
		}
		if err := tx.EnsureUser(ctx, ev.UserID); err != nil {
			return err
		}
		var err error
		if ev.Kind == KindJoin {
			out, err = openSegment(ctx, tx, ev)
		} else {
			out, err = closeLatestSegment(ctx, tx, ev)
		}
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to apply attendance event", logging.ErrKey, err, "session_id", ev.SessionID, "user_id", ev.UserID, "kind", ev.Kind)
		return Outcome{}, apperror.NewStoreUnavailable("failed to record attendance", err)
	}

	slog.InfoContext(ctx, "attendance event applied",
		"session_id", ev.SessionID,
		"user_id", ev.UserID,
		"kind", ev.Kind,
		"action", out.Action,
		"segment_id", out.SegmentID,
		"duration_sec", out.DurationSec)
	t.recorder.RecordOutcome(ev.Kind, out)
	return out, nil
}

// openSegment does not look for an existing open segment: a repeated join
// yields a second concurrently open segment.
func openSegment(ctx context.Context, tx repository.SegmentTx, ev Event) (Outcome, error) {
	id, err := tx.InsertOpenSegment(ctx, ev.SessionID, ev.UserID, ev.At)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionSegmentOpened, SegmentID: id}, nil
}

func closeLatestSegment(ctx context.Context, tx repository.SegmentTx, ev Event) (Outcome, error) {
	seg, err := tx.LatestOpenSegment(ctx, ev.SessionID, ev.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if seg == nil {
		return Outcome{Action: ActionNoOpenSegment}, nil
	}
	duration := DurationSeconds(seg.JoinTime, ev.At)
	if err := tx.CloseSegment(ctx, repository.CloseSegmentInput{
		SegmentID:   seg.ID,
		LeaveTime:   ev.At,
		DurationSec: duration,
	}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionSegmentClosed, SegmentID: seg.ID, DurationSec: duration}, nil
}

// DurationSeconds truncates toward zero and keeps the sign.
func DurationSeconds(join, leave time.Time) int64 {
	return int64(leave.Sub(join) / time.Second)
}
