package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/foxseedlab/attendance/internal/repository"

	_ "modernc.org/sqlite"
)

// sqliteTimeLayout is fixed width so TEXT comparison, MIN and MAX order
// instants chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// _txlock=immediate makes every BeginTx take the write lock up front, which
// serializes segment writers across connections.
const sqliteDSNParams = "_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"

type SQLiteRepository struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string, maxConns int) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(sqliteFilePath(path)), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// sqliteDSN appends the connection parameters to path, which may already
// carry its own query.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteDSNParams
	}
	return path + "?" + sqliteDSNParams
}

func sqliteFilePath(dsn string) string {
	p, _, _ := strings.Cut(dsn, "?")
	return strings.TrimPrefix(p, "file:")
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func parseNullSQLiteTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseSQLiteTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *SQLiteRepository) WithinSegmentTx(ctx context.Context, _ repository.SegmentKey, fn func(tx repository.SegmentTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&sqliteSegmentTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type sqliteSegmentTx struct {
	tx *sql.Tx
}

func (t *sqliteSegmentTx) EnsureSession(ctx context.Context, sessionID string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO sessions (session_id) VALUES (?) ON CONFLICT DO NOTHING`, sessionID)
	return err
}

func (t *sqliteSegmentTx) EnsureUser(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO users (id) VALUES (?) ON CONFLICT DO NOTHING`, userID)
	return err
}

func (t *sqliteSegmentTx) InsertOpenSegment(ctx context.Context, sessionID, userID string, joinTime time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO attendance_segments (session_id, user_id, join_time) VALUES (?, ?, ?)`,
		sessionID, userID, formatSQLiteTime(joinTime))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *sqliteSegmentTx) LatestOpenSegment(ctx context.Context, sessionID, userID string) (*repository.AttendanceSegment, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT id, session_id, user_id, join_time
		 FROM attendance_segments
		 WHERE session_id = ? AND user_id = ? AND leave_time IS NULL
		 ORDER BY join_time DESC, id DESC
		 LIMIT 1`,
		sessionID, userID)
	var (
		s    repository.AttendanceSegment
		join string
	)
	if err := row.Scan(&s.ID, &s.SessionID, &s.UserID, &join); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	jt, err := parseSQLiteTime(join)
	if err != nil {
		return nil, err
	}
	s.JoinTime = jt
	return &s, nil
}

func (t *sqliteSegmentTx) CloseSegment(ctx context.Context, input repository.CloseSegmentInput) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE attendance_segments
		 SET leave_time = ?, duration_sec = ?
		 WHERE id = ? AND leave_time IS NULL`,
		formatSQLiteTime(input.LeaveTime), input.DurationSec, input.SegmentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("segment %d was not open", input.SegmentID)
	}
	return nil
}

func (r *SQLiteRepository) ListSessionSummaries(ctx context.Context, limit int) ([]repository.SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, participant_count, total_participant_seconds, first_join, last_seen
		 FROM session_summary
		 ORDER BY first_join IS NULL, first_join DESC, session_id DESC
		 LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []repository.SessionSummary{}
	for rows.Next() {
		var (
			s               repository.SessionSummary
			first, lastSeen sql.NullString
		)
		if err := rows.Scan(&s.SessionID, &s.ParticipantCount, &s.TotalParticipantSeconds, &first, &lastSeen); err != nil {
			return nil, err
		}
		if s.FirstJoin, err = parseNullSQLiteTime(first); err != nil {
			return nil, err
		}
		if s.LastSeen, err = parseNullSQLiteTime(lastSeen); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *SQLiteRepository) ListSessionParticipants(ctx context.Context, sessionID string) ([]repository.ParticipantSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, segments, total_seconds, first_join, last_seen
		 FROM session_user_summary
		 WHERE session_id = ?
		 ORDER BY total_seconds DESC, user_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	return collectSQLiteParticipants(rows)
}

func (r *SQLiteRepository) ListDailyParticipants(ctx context.Context, start, end time.Time) ([]repository.ParticipantSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			user_id,
			COUNT(*) AS segments,
			COALESCE(SUM(duration_sec), 0) AS total_seconds,
			MIN(join_time) AS first_join,
			MAX(leave_time) AS last_seen
		 FROM attendance_segments
		 WHERE join_time >= ? AND join_time <= ?
		   AND leave_time IS NOT NULL
		 GROUP BY user_id
		 ORDER BY total_seconds DESC, user_id ASC`,
		formatSQLiteTime(start), formatSQLiteTime(end))
	if err != nil {
		return nil, err
	}
	return collectSQLiteParticipants(rows)
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	return RunSQLiteMigration(ctx, r.db)
}

func (r *SQLiteRepository) Close() {
	_ = r.db.Close()
}

func collectSQLiteParticipants(rows *sql.Rows) ([]repository.ParticipantSummary, error) {
	defer rows.Close()
	list := []repository.ParticipantSummary{}
	for rows.Next() {
		var (
			p               repository.ParticipantSummary
			first, lastSeen sql.NullString
		)
		if err := rows.Scan(&p.UserID, &p.Segments, &p.TotalSeconds, &first, &lastSeen); err != nil {
			return nil, err
		}
		var err error
		if p.FirstJoin, err = parseNullSQLiteTime(first); err != nil {
			return nil, err
		}
		if p.LastSeen, err = parseNullSQLiteTime(lastSeen); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
