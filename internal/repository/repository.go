package repository

import (
	"context"
	"time"
)

// SegmentKey identifies the (session, user) pair whose open segment a write
// unit may touch.
type SegmentKey struct {
	SessionID string
	UserID    string
}

type CloseSegmentInput struct {
	SegmentID   int64
	LeaveTime   time.Time
	DurationSec int64
}

// SegmentTx is the write surface available inside one atomic unit.
type SegmentTx interface {
	EnsureSession(ctx context.Context, sessionID string) error
	EnsureUser(ctx context.Context, userID string) error
	InsertOpenSegment(ctx context.Context, sessionID, userID string, joinTime time.Time) (int64, error)
	// LatestOpenSegment returns the open segment with the latest join_time
	// (then highest id) for the pair, or nil when there is none.
	LatestOpenSegment(ctx context.Context, sessionID, userID string) (*AttendanceSegment, error)
	CloseSegment(ctx context.Context, input CloseSegmentInput) error
}

// SegmentWriter runs fn inside a transaction that excludes every other writer
// for the same key until it commits. A non-nil error from fn rolls back.
type SegmentWriter interface {
	WithinSegmentTx(ctx context.Context, key SegmentKey, fn func(tx SegmentTx) error) error
}

type SummaryReader interface {
	ListSessionSummaries(ctx context.Context, limit int) ([]SessionSummary, error)
	ListSessionParticipants(ctx context.Context, sessionID string) ([]ParticipantSummary, error)
	// ListDailyParticipants aggregates closed segments whose join_time lies in
	// [start, end], across all sessions.
	ListDailyParticipants(ctx context.Context, start, end time.Time) ([]ParticipantSummary, error)
}

type Store interface {
	SegmentWriter
	SummaryReader
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close()
}
