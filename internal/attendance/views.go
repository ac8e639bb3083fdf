package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/foxseedlab/attendance/internal/apperror"
	"github.com/foxseedlab/attendance/internal/repository"
)

const dayLayout = "2006-01-02"

// DayWindow is a UTC calendar day, [00:00:00, 23:59:59].
type DayWindow struct {
	Day   string
	Start time.Time
	End   time.Time
}

func ParseDay(day string) (DayWindow, error) {
	d, err := time.Parse(dayLayout, day)
	if err != nil {
		return DayWindow{}, apperror.NewInvalidDateFormat("Invalid date. Use YYYY-MM-DD", err)
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return DayWindow{
		Day:   day,
		Start: start,
		End:   start.Add(24*time.Hour - time.Second),
	}, nil
}

// Views are read-only and recompute from the segment log on every call.
type Views struct {
	reader       repository.SummaryReader
	defaultLimit int
	maxLimit     int
}

func NewViews(reader repository.SummaryReader, defaultLimit, maxLimit int) *Views {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &Views{reader: reader, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// EffectiveLimit maps 0 to the default and clamps to the maximum.
func (v *Views) EffectiveLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, apperror.NewValidation(fmt.Sprintf("limit must be positive, got %d", limit))
	case limit == 0:
		return v.defaultLimit, nil
	case limit > v.maxLimit:
		return v.maxLimit, nil
	default:
		return limit, nil
	}
}

func (v *Views) Sessions(ctx context.Context, limit int) ([]repository.SessionSummary, error) {
	n, err := v.EffectiveLimit(limit)
	if err != nil {
		return nil, err
	}
	if v.reader == nil {
		return nil, apperror.NewStoreUnavailable("store is not initialized")
	}
	rows, err := v.reader.ListSessionSummaries(ctx, n)
	if err != nil {
		return nil, apperror.NewStoreUnavailable("failed to list sessions", err)
	}
	return rows, nil
}

// SessionParticipants is ordered by descending total duration.
func (v *Views) SessionParticipants(ctx context.Context, sessionID string) ([]repository.ParticipantSummary, error) {
	if v.reader == nil {
		return nil, apperror.NewStoreUnavailable("store is not initialized")
	}
	rows, err := v.reader.ListSessionParticipants(ctx, sessionID)
	if err != nil {
		return nil, apperror.NewStoreUnavailable("failed to load session participants", err)
	}
	return rows, nil
}

// Daily counts only closed segments that joined within the day.
func (v *Views) Daily(ctx context.Context, day string) (DayWindow, []repository.ParticipantSummary, error) {
	window, err := ParseDay(day)
	if err != nil {
		return DayWindow{}, nil, err
	}
	if v.reader == nil {
		return window, nil, apperror.NewStoreUnavailable("store is not initialized")
	}
	rows, err := v.reader.ListDailyParticipants(ctx, window.Start, window.End)
	if err != nil {
		return window, nil, apperror.NewStoreUnavailable("failed to load daily summary", err)
	}
	return window, rows, nil
}
