package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertSession registers a session if it is not already known.
// First write wins: a later start event for the same id is a no-op, so
// re-ingesting an identical event never duplicates or rewrites the row.
func (s *Store) UpsertSession(id, projectPath string, startedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, project_path, started_at) VALUES (?, ?, ?)`,
		id, projectPath, startedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: upsert session %s: %w", id, err)
	}
	return nil
}

// CloseSession marks a session as ended. If the session was never
// started (end event arrived first, or the start was lost), a
// degenerate row is created with started_at equal to ended_at and the
// project path from the end event, rather than dropping the event.
// ended_at is clamped to started_at so an ended session never appears
// to end before it began.
func (s *Store) CloseSession(id, projectPath string, endedAt time.Time, summary *string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: close session %s: begin: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO sessions (id, project_path, started_at) VALUES (?, ?, ?)`,
		id, projectPath, endedAt.Unix(),
	); err != nil {
		return fmt.Errorf("store: close session %s: ensure: %w", id, err)
	}

	if _, err := tx.Exec(
		`UPDATE sessions
		 SET ended_at = MAX(started_at, ?),
		     summary  = COALESCE(?, summary)
		 WHERE id = ?`,
		endedAt.Unix(), nullableString(summary), id,
	); err != nil {
		return fmt.Errorf("store: close session %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: close session %s: commit: %w", id, err)
	}
	return nil
}

// GetSession retrieves a session by id. Returns sql.ErrNoRows when absent.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, project_path, started_at, ended_at, summary FROM sessions WHERE id = ?`, id,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns sessions ordered by started_at descending.
// status filters to "active" (no end timestamp) or "ended"; empty
// returns everything.
func (s *Store) ListSessions(status string) ([]Session, error) {
	query := `SELECT id, project_path, started_at, ended_at, summary FROM sessions`
	switch status {
	case "":
	case "active":
		query += ` WHERE ended_at IS NULL`
	case "ended":
		query += ` WHERE ended_at IS NOT NULL`
	default:
		return nil, fmt.Errorf("store: unknown session status %q", status)
	}
	query += ` ORDER BY started_at DESC, id DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *sess)
	}
	return results, rows.Err()
}

type rowLike interface {
	Scan(dest ...any) error
}

func scanSession(row rowLike) (*Session, error) {
	var (
		sess    Session
		started int64
		ended   sql.NullInt64
		summary sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.ProjectPath, &started, &ended, &summary); err != nil {
		return nil, err
	}
	sess.StartedAt = scanEpoch(started)
	sess.EndedAt = scanEpochPtr(ended)
	if summary.Valid {
		v := summary.String
		sess.Summary = &v
	}
	sess.Status = "active"
	if sess.EndedAt != nil {
		sess.Status = "ended"
	}
	return &sess, nil
}
