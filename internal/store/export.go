package store

import (
	"fmt"
	"time"
)

// ExportData is the full serializable dump of the database, suitable
// for backup or migration while the daemon keeps running.
type ExportData struct {
	Version      string        `json:"version"`
	ExportedAt   time.Time     `json:"exported_at"`
	Sessions     []Session     `json:"sessions"`
	Observations []Observation `json:"observations"`
	Prompts      []UserPrompt  `json:"prompts"`
}

// Stats returns aggregate totals.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM sessions`, &stats.TotalSessions},
		{`SELECT COUNT(*) FROM observations`, &stats.TotalObservations},
		{`SELECT COUNT(*) FROM user_prompts`, &stats.TotalPrompts},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("store: stats: %w", err)
		}
	}

	rows, err := s.db.Query(
		`SELECT project_path FROM sessions
		 WHERE project_path != ''
		 GROUP BY project_path
		 ORDER BY MAX(started_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: stats projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		stats.Projects = append(stats.Projects, p)
	}
	return stats, rows.Err()
}

// Export dumps every row in insertion order.
func (s *Store) Export(version string) (*ExportData, error) {
	data := &ExportData{
		Version:    version,
		ExportedAt: time.Now().UTC(),
	}

	sessions, err := s.ListSessions("")
	if err != nil {
		return nil, fmt.Errorf("store: export sessions: %w", err)
	}
	data.Sessions = sessions

	data.Observations, err = s.queryObservations(
		`SELECT id, session_id, type, content, created_at FROM observations ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: export observations: %w", err)
	}

	data.Prompts, err = s.queryPrompts(
		`SELECT id, session_id, prompt_number, prompt_text, created_at FROM user_prompts ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: export prompts: %w", err)
	}

	return data, nil
}
