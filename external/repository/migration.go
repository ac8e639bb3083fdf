package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_segments (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(session_id),
		user_id TEXT NOT NULL REFERENCES users(id),
		join_time TIMESTAMPTZ NOT NULL,
		leave_time TIMESTAMPTZ,
		duration_sec BIGINT,
		CHECK ((leave_time IS NULL) = (duration_sec IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_segments_open ON attendance_segments (session_id, user_id, join_time DESC) WHERE leave_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_segments_join_time ON attendance_segments (join_time)`,
	`CREATE OR REPLACE VIEW session_summary AS
	SELECT
		s.session_id,
		COUNT(DISTINCT a.user_id) AS participant_count,
		COALESCE(SUM(a.duration_sec), 0)::BIGINT AS total_participant_seconds,
		MIN(a.join_time) AS first_join,
		MAX(CASE WHEN a.id IS NULL THEN NULL ELSE COALESCE(a.leave_time, NOW()) END) AS last_seen
	FROM sessions s
	LEFT JOIN attendance_segments a ON a.session_id = s.session_id
	GROUP BY s.session_id`,
	`CREATE OR REPLACE VIEW session_user_summary AS
	SELECT
		session_id,
		user_id,
		COUNT(*) AS segments,
		COALESCE(SUM(duration_sec), 0)::BIGINT AS total_seconds,
		MIN(join_time) AS first_join,
		MAX(COALESCE(leave_time, NOW())) AS last_seen
	FROM attendance_segments
	GROUP BY session_id, user_id`,
}

// sqliteNow renders the current instant in sqliteTimeLayout so the views can
// compare it against stored TEXT timestamps.
const sqliteNow = `strftime('%Y-%m-%dT%H:%M:%S.000000000Z', 'now')`

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL DEFAULT (` + sqliteNow + `)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL DEFAULT (` + sqliteNow + `)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(session_id),
		user_id TEXT NOT NULL REFERENCES users(id),
		join_time TEXT NOT NULL,
		leave_time TEXT,
		duration_sec INTEGER,
		CHECK ((leave_time IS NULL) = (duration_sec IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_segments_open ON attendance_segments (session_id, user_id, join_time) WHERE leave_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_segments_join_time ON attendance_segments (join_time)`,
	`CREATE VIEW IF NOT EXISTS session_summary AS
	SELECT
		s.session_id AS session_id,
		COUNT(DISTINCT a.user_id) AS participant_count,
		COALESCE(SUM(a.duration_sec), 0) AS total_participant_seconds,
		MIN(a.join_time) AS first_join,
		MAX(CASE WHEN a.id IS NULL THEN NULL ELSE COALESCE(a.leave_time, ` + sqliteNow + `) END) AS last_seen
	FROM sessions s
	LEFT JOIN attendance_segments a ON a.session_id = s.session_id
	GROUP BY s.session_id`,
	`CREATE VIEW IF NOT EXISTS session_user_summary AS
	SELECT
		session_id,
		user_id,
		COUNT(*) AS segments,
		COALESCE(SUM(duration_sec), 0) AS total_seconds,
		MIN(join_time) AS first_join,
		MAX(COALESCE(leave_time, ` + sqliteNow + `)) AS last_seen
	FROM attendance_segments
	GROUP BY session_id, user_id`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range postgresMigrations {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func RunSQLiteMigration(ctx context.Context, db *sql.DB) error {
	for i, s := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, strings.TrimSpace(s)); err != nil {
			return fmt.Errorf("sqlite migration %d: %w", i, err)
		}
	}
	return nil
}
