package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/match-session-planner/internal/model"
)

// MySQLStore persists the snapshot in two tables, sessions and
// attendances.  SaveAll rewrites both tables inside one transaction so a
// reader sees either the old or the new snapshot, never a mix.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a new MySQLStore bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// schema is applied by EnsureSchema.  Codes are stored in clear text
// because the read views return them.  Free-form fields are TEXT so any
// value the other stores accept fits here as well.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id               VARCHAR(36)  NOT NULL PRIMARY KEY,
		title            TEXT         NOT NULL,
		description      TEXT         NOT NULL,
		date             TEXT         NOT NULL,
		time             TEXT         NOT NULL,
		max_participants INT          NOT NULL,
		session_type     VARCHAR(16)  NOT NULL,
		match_type       VARCHAR(16)  NOT NULL,
		skill_level      VARCHAR(16)  NOT NULL,
		management_code  VARCHAR(32)  NOT NULL,
		private_code     VARCHAR(32)  NULL,
		created_at       DATETIME(6)  NOT NULL,
		seq              BIGINT       NOT NULL,
		UNIQUE KEY uq_sessions_private_code (private_code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS attendances (
		id              VARCHAR(36)  NOT NULL PRIMARY KEY,
		session_id      VARCHAR(36)  NOT NULL,
		player_name     TEXT         NOT NULL,
		email           TEXT         NULL,
		attendance_code VARCHAR(32)  NOT NULL,
		joined_at       DATETIME(6)  NOT NULL,
		seq             BIGINT       NOT NULL,
		KEY idx_attendances_session (session_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables when they do not exist yet.
func (r *MySQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LoadAll reads both tables in insertion order.
func (r *MySQLStore) LoadAll(ctx context.Context) (model.Snapshot, error) {
	snap := normalize(model.Snapshot{})

	const qs = `SELECT id, title, description, date, time, max_participants,
	                   session_type, match_type, skill_level, management_code,
	                   private_code, created_at
	            FROM sessions ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, qs)
	if err != nil {
		return model.Snapshot{}, err
	}
	for rows.Next() {
		var s model.Session
		var privateCode sql.NullString
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Date, &s.Time, &s.MaxParticipants,
			&s.SessionType, &s.MatchType, &s.SkillLevel, &s.ManagementCode,
			&privateCode, &s.CreatedAt); err != nil {
			rows.Close()
			return model.Snapshot{}, err
		}
		if privateCode.Valid {
			s.PrivateCode = privateCode.String
		}
		s.CreatedAt = s.CreatedAt.UTC()
		snap.Sessions = append(snap.Sessions, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return model.Snapshot{}, err
	}
	if err := rows.Close(); err != nil {
		return model.Snapshot{}, err
	}

	const qa = `SELECT id, session_id, player_name, email, attendance_code, joined_at
	            FROM attendances ORDER BY seq`
	rows, err = r.db.QueryContext(ctx, qa)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.Attendance
		var email sql.NullString
		if err := rows.Scan(&a.ID, &a.SessionID, &a.PlayerName, &email, &a.AttendanceCode, &a.JoinedAt); err != nil {
			return model.Snapshot{}, err
		}
		if email.Valid {
			a.Email = email.String
		}
		a.JoinedAt = a.JoinedAt.UTC()
		snap.Attendances = append(snap.Attendances, a)
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// SaveAll replaces the contents of both tables with snap.  The
// statements run in a transaction; on any error nothing is changed.
func (r *MySQLStore) SaveAll(ctx context.Context, snap model.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendances`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return err
	}
	if err := r.insertSessionsTx(ctx, tx, snap.Sessions); err != nil {
		return err
	}
	if err := r.insertAttendancesTx(ctx, tx, snap.Attendances); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertSessionsTx inserts all sessions in a single statement.  Passing
// an empty slice has no effect and returns nil.
func (r *MySQLStore) insertSessionsTx(ctx context.Context, tx *sql.Tx, sessions []model.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	query := `INSERT INTO sessions (id, title, description, date, time, max_participants,
	          session_type, match_type, skill_level, management_code, private_code, created_at, seq) VALUES `
	args := make([]interface{}, 0, len(sessions)*13)
	for i, s := range sessions {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, s.ID, s.Title, s.Description, s.Date, s.Time, s.MaxParticipants,
			string(s.SessionType), string(s.MatchType), string(s.SkillLevel), s.ManagementCode,
			nullString(s.PrivateCode), dbTime(s.CreatedAt), i)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// insertAttendancesTx inserts all attendances in a single statement.
func (r *MySQLStore) insertAttendancesTx(ctx context.Context, tx *sql.Tx, attendances []model.Attendance) error {
	if len(attendances) == 0 {
		return nil
	}
	query := `INSERT INTO attendances (id, session_id, player_name, email, attendance_code, joined_at, seq) VALUES `
	args := make([]interface{}, 0, len(attendances)*7)
	for i, a := range attendances {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, a.ID, a.SessionID, a.PlayerName, nullString(a.Email), a.AttendanceCode, dbTime(a.JoinedAt), i)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// dbTime keeps DATETIME columns in UTC (the DSN sets loc=UTC).
func dbTime(t time.Time) time.Time {
	return t.UTC()
}
