package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/foxseedlab/attendance/internal/attendance"
	"github.com/foxseedlab/attendance/internal/event"
	"github.com/foxseedlab/attendance/internal/repository"
	"github.com/foxseedlab/attendance/internal/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// listSegments returns every segment of the pair in join order.
func (r *SQLiteRepository) listSegments(ctx context.Context, sessionID, userID string) ([]repository.AttendanceSegment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, user_id, join_time, leave_time, duration_sec
		 FROM attendance_segments
		 WHERE session_id = ? AND user_id = ?
		 ORDER BY join_time ASC, id ASC`,
		sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.AttendanceSegment
	for rows.Next() {
		var (
			s        repository.AttendanceSegment
			join     string
			leave    sql.NullString
			duration sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.SessionID, &s.UserID, &join, &leave, &duration); err != nil {
			return nil, err
		}
		if s.JoinTime, err = parseSQLiteTime(join); err != nil {
			return nil, err
		}
		if s.LeaveTime, err = parseNullSQLiteTime(leave); err != nil {
			return nil, err
		}
		if duration.Valid {
			d := duration.Int64
			s.DurationSec = &d
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "attendance.db"), 4)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	store := newTestSQLite(t)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Ping(context.Background()))
}

func TestSQLite_JoinLeaveLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	tracker := attendance.NewTracker(store, nil)

	out, err := tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "a@x.io", Kind: attendance.KindJoin, At: at("2024-01-01T10:00:00Z")})
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionSegmentOpened, out.Action)

	out, err = tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "a@x.io", Kind: attendance.KindLeave, At: at("2024-01-01T10:30:00Z")})
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionSegmentClosed, out.Action)
	assert.Equal(t, int64(1800), out.DurationSec)

	out, err = tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "a@x.io", Kind: attendance.KindLeave, At: at("2024-01-01T10:31:00Z")})
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionNoOpenSegment, out.Action)

	segs, err := store.listSegments(ctx, "S1", "a@x.io")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.False(t, segs[0].IsOpen())
	assert.True(t, segs[0].JoinTime.Equal(at("2024-01-01T10:00:00Z")))
	require.NotNil(t, segs[0].DurationSec)
	assert.Equal(t, int64(1800), *segs[0].DurationSec)
}

func TestSQLite_LeaveClosesLatestOpenSegment(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	tracker := attendance.NewTracker(store, nil)

	for _, ts := range []string{"2024-01-01T10:00:00Z", "2024-01-01T10:05:00Z"} {
		_, err := tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "u", Kind: attendance.KindJoin, At: at(ts)})
		require.NoError(t, err)
	}
	out, err := tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "u", Kind: attendance.KindLeave, At: at("2024-01-01T10:10:00Z")})
	require.NoError(t, err)
	assert.Equal(t, int64(300), out.DurationSec)

	segs, err := store.listSegments(ctx, "S1", "u")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.True(t, segs[0].IsOpen())
	assert.False(t, segs[1].IsOpen())
}

func TestSQLite_NegativeDurationIsStored(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	tracker := attendance.NewTracker(store, nil)

	_, err := tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "u", Kind: attendance.KindJoin, At: at("2024-01-01T10:00:00Z")})
	require.NoError(t, err)
	out, err := tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "u", Kind: attendance.KindLeave, At: at("2024-01-01T09:59:00Z")})
	require.NoError(t, err)
	assert.Equal(t, int64(-60), out.DurationSec)

	rows, err := store.ListSessionParticipants(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(-60), rows[0].TotalSeconds)
}

func TestSQLite_ConcurrentLeavesCloseOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	tracker := attendance.NewTracker(store, nil)

	_, err := tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "u", Kind: attendance.KindJoin, At: at("2024-01-01T10:00:00Z")})
	require.NoError(t, err)

	const n = 8
	actions := make([]attendance.Action, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			out, err := tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "u", Kind: attendance.KindLeave, At: at("2024-01-01T10:01:00Z")})
			actions[i] = out.Action
			return err
		})
	}
	require.NoError(t, g.Wait())

	closed := 0
	for _, a := range actions {
		if a == attendance.ActionSegmentClosed {
			closed++
		} else {
			assert.Equal(t, attendance.ActionNoOpenSegment, a)
		}
	}
	assert.Equal(t, 1, closed)
}

func TestSQLite_SessionSummaries(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	tracker := attendance.NewTracker(store, nil)

	events := []attendance.Event{
		{SessionID: "S1", UserID: "a", Kind: attendance.KindJoin, At: at("2024-01-01T10:00:00Z")},
		{SessionID: "S1", UserID: "a", Kind: attendance.KindLeave, At: at("2024-01-01T10:10:00Z")},
		{SessionID: "S1", UserID: "b", Kind: attendance.KindJoin, At: at("2024-01-01T10:05:00Z")},
		{SessionID: "S2", UserID: "a", Kind: attendance.KindJoin, At: at("2024-01-02T09:00:00Z")},
		{SessionID: "S2", UserID: "a", Kind: attendance.KindLeave, At: at("2024-01-02T09:00:30Z")},
	}
	for _, ev := range events {
		_, err := tracker.Apply(ctx, ev)
		require.NoError(t, err)
	}

	list, err := store.ListSessionSummaries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "S2", list[0].SessionID)
	assert.Equal(t, int64(1), list[0].ParticipantCount)
	assert.Equal(t, int64(30), list[0].TotalParticipantSeconds)
	assert.Equal(t, "S1", list[1].SessionID)
	assert.Equal(t, int64(2), list[1].ParticipantCount)
	assert.Equal(t, int64(600), list[1].TotalParticipantSeconds)
	require.NotNil(t, list[1].FirstJoin)
	assert.True(t, list[1].FirstJoin.Equal(at("2024-01-01T10:00:00Z")))
	require.NotNil(t, list[1].LastSeen)
	assert.True(t, list[1].LastSeen.After(at("2024-06-01T00:00:00Z")), "open segment counts as seen now")

	limited, err := store.ListSessionSummaries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	participants, err := store.ListSessionParticipants(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, "a", participants[0].UserID)
	assert.Equal(t, int64(600), participants[0].TotalSeconds)
	assert.Equal(t, int64(1), participants[0].Segments)
	assert.Equal(t, "b", participants[1].UserID)
	assert.Equal(t, int64(0), participants[1].TotalSeconds)

	none, err := store.ListSessionParticipants(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_DailyParticipants(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	tracker := attendance.NewTracker(store, nil)

	events := []attendance.Event{
		{SessionID: "S1", UserID: "a", Kind: attendance.KindJoin, At: at("2024-01-01T00:00:00Z")},
		{SessionID: "S1", UserID: "a", Kind: attendance.KindLeave, At: at("2024-01-01T00:01:00Z")},
		{SessionID: "S2", UserID: "a", Kind: attendance.KindJoin, At: at("2024-01-01T23:59:59Z")},
		{SessionID: "S2", UserID: "a", Kind: attendance.KindLeave, At: at("2024-01-02T00:00:09Z")},
		{SessionID: "S1", UserID: "b", Kind: attendance.KindJoin, At: at("2024-01-01T12:00:00Z")},
		{SessionID: "S3", UserID: "c", Kind: attendance.KindJoin, At: at("2024-01-02T00:00:00Z")},
		{SessionID: "S3", UserID: "c", Kind: attendance.KindLeave, At: at("2024-01-02T01:00:00Z")},
	}
	for _, ev := range events {
		_, err := tracker.Apply(ctx, ev)
		require.NoError(t, err)
	}

	window, err := attendance.ParseDay("2024-01-01")
	require.NoError(t, err)
	rows, err := store.ListDailyParticipants(ctx, window.Start, window.End)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].UserID)
	assert.Equal(t, int64(2), rows[0].Segments)
	assert.Equal(t, int64(70), rows[0].TotalSeconds)
	require.NotNil(t, rows[0].LastSeen)
	assert.True(t, rows[0].LastSeen.Equal(at("2024-01-02T00:00:09Z")))
}

func TestSQLite_FractionalSecondsOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	base := at("2024-01-01T10:00:00Z")
	err := store.WithinSegmentTx(ctx, repository.SegmentKey{SessionID: "S1", UserID: "u"}, func(tx repository.SegmentTx) error {
		require.NoError(t, tx.EnsureSession(ctx, "S1"))
		require.NoError(t, tx.EnsureUser(ctx, "u"))
		if _, err := tx.InsertOpenSegment(ctx, "S1", "u", base.Add(900*time.Millisecond)); err != nil {
			return err
		}
		_, err := tx.InsertOpenSegment(ctx, "S1", "u", base.Add(100*time.Millisecond))
		return err
	})
	require.NoError(t, err)

	err = store.WithinSegmentTx(ctx, repository.SegmentKey{SessionID: "S1", UserID: "u"}, func(tx repository.SegmentTx) error {
		seg, err := tx.LatestOpenSegment(ctx, "S1", "u")
		require.NoError(t, err)
		require.NotNil(t, seg)
		assert.True(t, seg.JoinTime.Equal(base.Add(900*time.Millisecond)))
		return nil
	})
	require.NoError(t, err)
}

func TestSQLite_FailedTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	err := store.WithinSegmentTx(ctx, repository.SegmentKey{SessionID: "S1", UserID: "u"}, func(tx repository.SegmentTx) error {
		require.NoError(t, tx.EnsureSession(ctx, "S1"))
		return tx.CloseSegment(ctx, repository.CloseSegmentInput{SegmentID: 42, LeaveTime: time.Now(), DurationSec: 1})
	})
	require.Error(t, err)

	list, err := store.ListSessionSummaries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "/tmp/a.db?"+sqliteDSNParams, sqliteDSN("/tmp/a.db"))
	assert.Equal(t, "/tmp/a.db?cache=shared&"+sqliteDSNParams, sqliteDSN("/tmp/a.db?cache=shared"))
	assert.Equal(t, "/tmp/a.db", sqliteFilePath("file:/tmp/a.db?cache=shared"))
}

func TestSQLite_OpenWithExistingQuery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "attendance.db")
	store, err := OpenSQLite(ctx, path+"?_pragma=synchronous(NORMAL)", 2)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))

	tracker := attendance.NewTracker(store, nil)
	out, err := tracker.Apply(ctx, attendance.Event{SessionID: "S1", UserID: "u", Kind: attendance.KindJoin, At: at("2024-01-01T10:00:00Z")})
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionSegmentOpened, out.Action)
}

func TestSQLite_FarFutureWebhookKeepsStoreReadable(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	tracker := attendance.NewTracker(store, nil)
	now := at("2025-12-29T10:00:00Z")
	normalizer := event.NewNormalizer(timestamp.NewNormalizerWithClock(func() time.Time { return now }))

	for _, body := range []string{
		`{"event":"meeting.participant_joined","event_ts":253402300800000,"payload":{"object":{"uuid":"S1","participant":{"email":"u"}}}}`,
		`{"event":"meeting.participant_left","event_ts":253402300800000,"payload":{"object":{"uuid":"S1","participant":{"email":"u"}}}}`,
	} {
		doc, err := event.Decode([]byte(body))
		require.NoError(t, err)
		res := normalizer.Normalize(ctx, doc)
		require.Equal(t, event.ResultAttendance, res.Type)
		assert.True(t, res.Event.At.Equal(now))
		_, err = tracker.Apply(ctx, res.Event)
		require.NoError(t, err)
	}

	segs, err := store.listSegments(ctx, "S1", "u")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.False(t, segs[0].IsOpen())

	list, err := store.ListSessionSummaries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].FirstJoin.Equal(now))
}
