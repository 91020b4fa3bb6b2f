// Package store implements the durable storage engine for do-worker.
//
// It uses SQLite with an FTS5 index to persist sessions, observations,
// and user prompts ingested from the Do hook system. The store is the
// single owner of the database file: every mutation goes through its
// append/upsert operations, and readers always observe fully committed
// rows.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Session represents one assistant working session against a project.
// A session with no EndedAt is active.
type Session struct {
	ID          string     `json:"id"`
	ProjectPath string     `json:"project_path"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Summary     *string    `json:"summary,omitempty"`
	Status      string     `json:"status"`
}

// Observation is a discrete typed note emitted during a session.
// Rows are append-only: never updated, never deleted.
type Observation struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPrompt records one prompt a human gave the assistant. The
// prompt number is an ordinal within the owning session, gapless and
// strictly increasing.
type UserPrompt struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	PromptNumber int       `json:"prompt_number"`
	PromptText   string    `json:"prompt_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats holds aggregate totals across the whole database.
type Stats struct {
	TotalSessions     int      `json:"total_sessions"`
	TotalObservations int      `json:"total_observations"`
	TotalPrompts      int      `json:"total_prompts"`
	Projects          []string `json:"projects"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file. The parent directory is
	// created on open.
	Path string

	// MaxObservationLength and MaxPromptLength cap stored text;
	// longer content is truncated with a marker, matching the limits
	// the hooks already apply on their side.
	MaxObservationLength int
	MaxPromptLength      int

	MaxSearchResults int
}

// DefaultConfig returns the default configuration: ~/.do/memory.db.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Path:                 filepath.Join(home, ".do", "memory.db"),
		MaxObservationLength: 2000,
		MaxPromptLength:      5000,
		MaxSearchResults:     200,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistence engine backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (creating if needed) the database at cfg.Path, applies
// pragmas and migrations, and returns a ready Store.
//
// The pool is pinned to a single connection so writers serialize:
// prompt ordinal assignment and session upserts need that, and at
// loopback ingest rates one connection is never the bottleneck.
// synchronous=FULL makes every committed append durable before the
// caller is acknowledged.
func New(cfg Config) (*Store, error) {
	if cfg.MaxObservationLength <= 0 {
		cfg.MaxObservationLength = 2000
	}
	if cfg.MaxPromptLength <= 0 {
		cfg.MaxPromptLength = 5000
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 200
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	db, err := openDB("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.cfg.Path
}

// ─── Migrations ──────────────────────────────────────────────────────────────

// migrations are applied in version order inside a transaction each,
// with applied versions recorded in the migrations table. Existing
// databases gain new tables on upgrade without data loss.
var migrations = map[int]string{
	1: `
		CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			project_path TEXT    NOT NULL DEFAULT '',
			started_at   INTEGER NOT NULL,
			ended_at     INTEGER,
			summary      TEXT
		);

		CREATE TABLE IF NOT EXISTS observations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT    NOT NULL,
			type       TEXT    NOT NULL,
			content    TEXT    NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE TABLE IF NOT EXISTS user_prompts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id    TEXT    NOT NULL,
			prompt_number INTEGER NOT NULL,
			prompt_text   TEXT    NOT NULL,
			created_at    INTEGER NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE TABLE IF NOT EXISTS migrations (
			version    INTEGER PRIMARY KEY,
			applied_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
		CREATE INDEX IF NOT EXISTS idx_obs_session      ON observations(session_id);
		CREATE INDEX IF NOT EXISTS idx_obs_type         ON observations(type);
		CREATE INDEX IF NOT EXISTS idx_obs_created      ON observations(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_prompts_session  ON user_prompts(session_id);
		CREATE INDEX IF NOT EXISTS idx_prompts_created  ON user_prompts(created_at DESC);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_ordinal ON user_prompts(session_id, prompt_number);
	`,
	2: `
		CREATE VIRTUAL TABLE IF NOT EXISTS observations_fts USING fts5(
			content,
			type,
			content='observations',
			content_rowid='id'
		);

		CREATE TRIGGER IF NOT EXISTS obs_fts_insert AFTER INSERT ON observations BEGIN
			INSERT INTO observations_fts(rowid, content, type)
			VALUES (new.id, new.content, new.type);
		END;

		CREATE VIRTUAL TABLE IF NOT EXISTS prompts_fts USING fts5(
			prompt_text,
			content='user_prompts',
			content_rowid='id'
		);

		CREATE TRIGGER IF NOT EXISTS prompt_fts_insert AFTER INSERT ON user_prompts BEGIN
			INSERT INTO prompts_fts(rowid, prompt_text)
			VALUES (new.id, new.prompt_text);
		END;
	`,
}

func (s *Store) migrate() error {
	current, err := s.schemaVersion()
	if err != nil {
		return err
	}

	for version := current + 1; ; version++ {
		script, ok := migrations[version]
		if !ok {
			return nil
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", version, err)
		}
		if _, err := tx.Exec(script); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", version, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO migrations (version, applied_at) VALUES (?, ?)`,
			version, time.Now().Unix(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: record: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", version, err)
		}
	}
}

func (s *Store) schemaVersion() (int, error) {
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='migrations'`,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(version) FROM migrations`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

// Maintain compacts the store: merges FTS segments and truncates the
// WAL so the database file is current and safe to copy for backup.
func (s *Store) Maintain() error {
	steps := []string{
		`INSERT INTO observations_fts(observations_fts) VALUES('optimize')`,
		`INSERT INTO prompts_fts(prompts_fts) VALUES('optimize')`,
		`PRAGMA wal_checkpoint(TRUNCATE)`,
	}
	for _, q := range steps {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("store: maintain: %w", err)
		}
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func scanEpoch(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func scanEpochPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := scanEpoch(v.Int64)
	return &t
}

// Truncate shortens a string to max bytes with an ellipsis.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func truncateStored(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... [truncated]"
}

// escapeLike escapes LIKE metacharacters so user input matches
// literally. Backslash is the ESCAPE character in our queries.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "fix auth bug" → `"fix" "auth" "bug"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}
