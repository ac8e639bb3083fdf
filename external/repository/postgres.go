package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxseedlab/attendance/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// advisoryLockKey feeds pg_advisory_xact_lock so that writers for the same
// (session, user) pair serialize while other pairs proceed.
func advisoryLockKey(key repository.SegmentKey) string {
	return key.SessionID + "\x1f" + key.UserID
}

func (r *PostgresRepository) WithinSegmentTx(ctx context.Context, key repository.SegmentKey, fn func(tx repository.SegmentTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, advisoryLockKey(key)); err != nil {
		return fmt.Errorf("acquire segment lock: %w", err)
	}
	if err := fn(&postgresSegmentTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type postgresSegmentTx struct {
	tx pgx.Tx
}

func (t *postgresSegmentTx) EnsureSession(ctx context.Context, sessionID string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO sessions (session_id) VALUES ($1) ON CONFLICT DO NOTHING`, sessionID)
	return err
}

func (t *postgresSegmentTx) EnsureUser(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT DO NOTHING`, userID)
	return err
}

func (t *postgresSegmentTx) InsertOpenSegment(ctx context.Context, sessionID, userID string, joinTime time.Time) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO attendance_segments (session_id, user_id, join_time)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		sessionID, userID, joinTime.UTC()).Scan(&id)
	return id, err
}

func (t *postgresSegmentTx) LatestOpenSegment(ctx context.Context, sessionID, userID string) (*repository.AttendanceSegment, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT id, session_id, user_id, join_time
		 FROM attendance_segments
		 WHERE session_id = $1 AND user_id = $2 AND leave_time IS NULL
		 ORDER BY join_time DESC, id DESC
		 LIMIT 1
		 FOR UPDATE`,
		sessionID, userID)
	var s repository.AttendanceSegment
	if err := row.Scan(&s.ID, &s.SessionID, &s.UserID, &s.JoinTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.JoinTime = s.JoinTime.UTC()
	return &s, nil
}

func (t *postgresSegmentTx) CloseSegment(ctx context.Context, input repository.CloseSegmentInput) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE attendance_segments
		 SET leave_time = $1, duration_sec = $2
		 WHERE id = $3 AND leave_time IS NULL`,
		input.LeaveTime.UTC(), input.DurationSec, input.SegmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("segment %d was not open", input.SegmentID)
	}
	return nil
}

func (r *PostgresRepository) ListSessionSummaries(ctx context.Context, limit int) ([]repository.SessionSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, participant_count, total_participant_seconds, first_join, last_seen
		 FROM session_summary
		 ORDER BY first_join DESC NULLS LAST, session_id DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []repository.SessionSummary{}
	for rows.Next() {
		var s repository.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.ParticipantCount, &s.TotalParticipantSeconds, &s.FirstJoin, &s.LastSeen); err != nil {
			return nil, err
		}
		s.FirstJoin, s.LastSeen = utcPtr(s.FirstJoin), utcPtr(s.LastSeen)
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) ListSessionParticipants(ctx context.Context, sessionID string) ([]repository.ParticipantSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, segments, total_seconds, first_join, last_seen
		 FROM session_user_summary
		 WHERE session_id = $1
		 ORDER BY total_seconds DESC, user_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	return collectParticipants(rows)
}

func (r *PostgresRepository) ListDailyParticipants(ctx context.Context, start, end time.Time) ([]repository.ParticipantSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT
			user_id,
			COUNT(*) AS segments,
			COALESCE(SUM(duration_sec), 0)::BIGINT AS total_seconds,
			MIN(join_time) AS first_join,
			MAX(leave_time) AS last_seen
		 FROM attendance_segments
		 WHERE join_time >= $1 AND join_time <= $2
		   AND leave_time IS NOT NULL
		 GROUP BY user_id
		 ORDER BY total_seconds DESC, user_id ASC`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return collectParticipants(rows)
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Migrate(ctx context.Context) error {
	return RunMigration(ctx, r.pool)
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func collectParticipants(rows pgx.Rows) ([]repository.ParticipantSummary, error) {
	defer rows.Close()
	list := []repository.ParticipantSummary{}
	for rows.Next() {
		var p repository.ParticipantSummary
		if err := rows.Scan(&p.UserID, &p.Segments, &p.TotalSeconds, &p.FirstJoin, &p.LastSeen); err != nil {
			return nil, err
		}
		p.FirstJoin, p.LastSeen = utcPtr(p.FirstJoin), utcPtr(p.LastSeen)
		list = append(list, p)
	}
	return list, rows.Err()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
