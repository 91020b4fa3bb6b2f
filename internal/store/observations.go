package store

import (
	"fmt"
	"time"
)

// AddObservation appends one observation and returns its assigned id.
// The owning session is created on demand inside the same transaction
// (hook events can arrive out of order), so either both rows commit or
// neither does. The FTS index is kept current by an insert trigger.
func (s *Store) AddObservation(sessionID, typ, content string, createdAt time.Time) (int64, error) {
	content = truncateStored(content, s.cfg.MaxObservationLength)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: add observation: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO sessions (id, project_path, started_at) VALUES (?, '', ?)`,
		sessionID, createdAt.Unix(),
	); err != nil {
		return 0, fmt.Errorf("store: add observation: ensure session: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO observations (session_id, type, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, typ, content, createdAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("store: add observation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: add observation: id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: add observation: commit: %w", err)
	}
	return id, nil
}

// ListObservations returns observations most recent first, optionally
// filtered by type and bounded by [since, until). A nil bound means
// unbounded; limit <= 0 means no limit (the default window is all-time).
func (s *Store) ListObservations(typ string, since, until *time.Time, limit int) ([]Observation, error) {
	query := `SELECT id, session_id, type, content, created_at FROM observations WHERE 1=1`
	args := []any{}

	if typ != "" {
		query += ` AND type = ?`
		args = append(args, typ)
	}
	if since != nil {
		query += ` AND created_at >= ?`
		args = append(args, since.Unix())
	}
	if until != nil {
		query += ` AND created_at < ?`
		args = append(args, until.Unix())
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return s.queryObservations(query, args...)
}

// SearchObservations matches content case-insensitively by substring,
// most recent first. An empty query returns the unfiltered list with
// the same semantics as ListObservations, including its unbounded
// default; the result cap applies to matching queries only.
func (s *Store) SearchObservations(query string, limit int) ([]Observation, error) {
	if query == "" {
		return s.ListObservations("", nil, nil, limit)
	}
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	pattern := "%" + escapeLike(query) + "%"
	return s.queryObservations(
		`SELECT id, session_id, type, content, created_at
		 FROM observations
		 WHERE content LIKE ? ESCAPE '\'
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		pattern, limit,
	)
}

// SearchRanked performs FTS5 relevance-ranked search over observation
// content. It matches on tokens rather than raw substrings, so it is
// exposed on the MCP tool surface only; the HTTP search contract stays
// substring-based.
func (s *Store) SearchRanked(query string, limit int) ([]Observation, error) {
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return s.ListObservations("", nil, nil, limit)
	}

	return s.queryObservations(
		`SELECT o.id, o.session_id, o.type, o.content, o.created_at
		 FROM observations_fts fts
		 JOIN observations o ON o.id = fts.rowid
		 WHERE observations_fts MATCH ?
		 ORDER BY fts.rank
		 LIMIT ?`,
		ftsQuery, limit,
	)
}

// ─── Aggregation reads ───────────────────────────────────────────────────────

// ActiveSessionCount counts distinct sessions with any activity (a
// session start, an observation, or a prompt) in [from, until).
func (s *Store) ActiveSessionCount(from, until time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM (
			SELECT id AS sid FROM sessions WHERE started_at >= ? AND started_at < ?
			UNION
			SELECT session_id FROM observations WHERE created_at >= ? AND created_at < ?
			UNION
			SELECT session_id FROM user_prompts WHERE created_at >= ? AND created_at < ?
		)`,
		from.Unix(), until.Unix(), from.Unix(), until.Unix(), from.Unix(), until.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: active session count: %w", err)
	}
	return n, nil
}

// ObservationCount counts observations created in [from, until).
func (s *Store) ObservationCount(from, until time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM observations WHERE created_at >= ? AND created_at < ?`,
		from.Unix(), until.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: observation count: %w", err)
	}
	return n, nil
}

// ObservationsBetween returns observations in [from, until) in
// created_at ascending order, for rollup highlight extraction.
func (s *Store) ObservationsBetween(from, until time.Time) ([]Observation, error) {
	return s.queryObservations(
		`SELECT id, session_id, type, content, created_at
		 FROM observations
		 WHERE created_at >= ? AND created_at < ?
		 ORDER BY created_at ASC, id ASC`,
		from.Unix(), until.Unix(),
	)
}

func (s *Store) queryObservations(query string, args ...any) ([]Observation, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Observation
	for rows.Next() {
		var (
			o       Observation
			created int64
		)
		if err := rows.Scan(&o.ID, &o.SessionID, &o.Type, &o.Content, &created); err != nil {
			return nil, err
		}
		o.CreatedAt = scanEpoch(created)
		results = append(results, o)
	}
	return results, rows.Err()
}
