package store

import (
	"fmt"
	"time"
)

// AddPrompt appends a user prompt, assigning the next prompt ordinal
// for the session. The ordinal is claimed inside the same transaction
// as the insert, and the single-connection pool serializes writers, so
// ordinals stay gapless and strictly increasing even when several hook
// processes post concurrently. A unique index on
// (session_id, prompt_number) backs the guarantee at the schema level.
func (s *Store) AddPrompt(sessionID, promptText string, createdAt time.Time) (id int64, promptNumber int, err error) {
	promptText = truncateStored(promptText, s.cfg.MaxPromptLength)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("store: add prompt: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO sessions (id, project_path, started_at) VALUES (?, '', ?)`,
		sessionID, createdAt.Unix(),
	); err != nil {
		return 0, 0, fmt.Errorf("store: add prompt: ensure session: %w", err)
	}

	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(prompt_number), 0) + 1 FROM user_prompts WHERE session_id = ?`,
		sessionID,
	).Scan(&promptNumber); err != nil {
		return 0, 0, fmt.Errorf("store: add prompt: next ordinal: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO user_prompts (session_id, prompt_number, prompt_text, created_at)
		 VALUES (?, ?, ?, ?)`,
		sessionID, promptNumber, promptText, createdAt.Unix(),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("store: add prompt: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("store: add prompt: id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("store: add prompt: commit: %w", err)
	}
	return id, promptNumber, nil
}

// ListPrompts returns the most recent prompts across all sessions.
func (s *Store) ListPrompts(limit int) ([]UserPrompt, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryPrompts(
		`SELECT id, session_id, prompt_number, prompt_text, created_at
		 FROM user_prompts
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
}

// PromptsBySession returns all prompts grouped by session, each group
// ordered by prompt number ascending.
func (s *Store) PromptsBySession() (map[string][]UserPrompt, error) {
	prompts, err := s.queryPrompts(
		`SELECT id, session_id, prompt_number, prompt_text, created_at
		 FROM user_prompts
		 ORDER BY session_id ASC, prompt_number ASC`,
	)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]UserPrompt, len(prompts))
	for _, p := range prompts {
		grouped[p.SessionID] = append(grouped[p.SessionID], p)
	}
	return grouped, nil
}

func (s *Store) queryPrompts(query string, args ...any) ([]UserPrompt, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query prompts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []UserPrompt
	for rows.Next() {
		var (
			p       UserPrompt
			created int64
		)
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PromptNumber, &p.PromptText, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = scanEpoch(created)
		results = append(results, p)
	}
	return results, rows.Err()
}
