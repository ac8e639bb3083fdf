package repository

import "time"

// AttendanceSegment is one continuous interval of presence. LeaveTime and
// DurationSec are nil while the segment is open.
type AttendanceSegment struct {
	ID          int64
	SessionID   string
	UserID      string
	JoinTime    time.Time
	LeaveTime   *time.Time
	DurationSec *int64
}

func (s AttendanceSegment) IsOpen() bool {
	return s.LeaveTime == nil
}

type SessionSummary struct {
	SessionID               string
	ParticipantCount        int64
	TotalParticipantSeconds int64
	FirstJoin               *time.Time
	LastSeen                *time.Time
}

type ParticipantSummary struct {
	UserID       string
	Segments     int64
	TotalSeconds int64
	FirstJoin    *time.Time
	LastSeen     *time.Time
}
