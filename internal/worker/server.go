// Package worker exposes the storage engine over loopback HTTP. This
// is the only integration point for consumers: the Do hooks post
// events here, and the dashboard reads sessions, observations,
// prompts, and daily summaries back out.
package worker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/yejune/do-worker/internal/event"
	"github.com/yejune/do-worker/internal/store"
	"github.com/yejune/do-worker/internal/summary"
)

// Server routes HTTP requests to the storage engine.
type Server struct {
	store   *store.Store
	version string
	mux     *http.ServeMux
	now     func() time.Time
}

// NewServer builds the worker HTTP handler around the given store.
func NewServer(st *store.Store, version string) *Server {
	s := &Server{
		store:   st,
		version: version,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/observations", s.handleListObservations)
	s.mux.HandleFunc("GET /api/observations/search", s.handleSearchObservations)
	s.mux.HandleFunc("GET /api/summaries", s.handleSummaries)
	s.mux.HandleFunc("GET /api/prompts", s.handleListPrompts)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)

	s.mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	s.mux.HandleFunc("PUT /api/sessions/{id}/end", s.handleEndSession)
	s.mux.HandleFunc("POST /api/observations", s.handleCreateObservation)
	s.mux.HandleFunc("POST /api/prompts", s.handleCreatePrompt)

	return s
}

// ServeHTTP implements http.Handler, logging each request with a
// generated request id.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	slog.Info("http request",
		"request_id", uuid.NewString(),
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ─── Read handlers ───────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
		"db_type": "sqlite",
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", "active", "ended":
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}

	sessions, err := s.store.ListSessions(status)
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleListObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	typ := q.Get("type")
	if typ != "" && !event.ValidObservationType(typ) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown observation type %q", typ))
		return
	}

	since, err := optionalTime(q.Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	until, err := optionalTime(q.Get("until"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	observations, err := s.store.ListObservations(typ, since, until, limit)
	if err != nil {
		slog.Error("list observations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if observations == nil {
		observations = []store.Observation{}
	}
	writeJSON(w, http.StatusOK, observations)
}

func (s *Server) handleSearchObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	observations, err := s.store.SearchObservations(q.Get("q"), limit)
	if err != nil {
		slog.Error("search observations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if observations == nil {
		observations = []store.Observation{}
	}
	writeJSON(w, http.StatusOK, observations)
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	days := summary.DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid days %q", raw))
			return
		}
		days = n
	}

	summaries, err := summary.Rollup(s.store, days, s.now())
	if err != nil {
		slog.Error("summaries failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("group") == "session" {
		grouped, err := s.store.PromptsBySession()
		if err != nil {
			slog.Error("grouped prompts failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, grouped)
		return
	}

	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prompts, err := s.store.ListPrompts(limit)
	if err != nil {
		slog.Error("list prompts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if prompts == nil {
		prompts = []store.UserPrompt{}
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		slog.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ─── Ingest handlers ─────────────────────────────────────────────────────────

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var e event.SessionStart
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	startedAt, err := e.Validate(s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpsertSession(e.SessionID, e.ProjectPath, startedAt); err != nil {
		slog.Error("session start failed", "session_id", e.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "session_id": e.SessionID})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var e event.SessionEnd
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	endedAt, err := e.Validate(sessionID, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CloseSession(sessionID, e.ProjectPath, endedAt, e.Summary); err != nil {
		slog.Error("session end failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "session_id": sessionID})
}

func (s *Server) handleCreateObservation(w http.ResponseWriter, r *http.Request) {
	var e event.Observation
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	createdAt, err := e.Validate(s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.AddObservation(e.SessionID, e.Type, e.Content, createdAt)
	if err != nil {
		slog.Error("observation ingest failed", "session_id", e.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var e event.UserPrompt
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	createdAt, err := e.Validate(s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, number, err := s.store.AddPrompt(e.SessionID, e.PromptText, createdAt)
	if err != nil {
		slog.Error("prompt ingest failed", "session_id", e.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id, "prompt_number": int64(number)})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func optionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q (want RFC 3339)", raw)
	}
	return &ts, nil
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}
