// Package event defines the events emitted by the Do hook system and
// validates them at the ingest boundary.
//
// Four kinds exist: session start, session end, observation, and user
// prompt. Hooks are short-lived Python processes, so the wire format is
// forgiving about timestamps (either an RFC 3339 string or a
// "*_epoch" Unix-seconds integer is accepted), but everything else is
// validated strictly: an event that fails validation is rejected before
// it touches storage.
package event

import (
	"fmt"
	"strings"
	"time"
)

// ObservationTypes is the closed set of observation kinds. Anything
// else is rejected, not coerced.
var ObservationTypes = []string{"decision", "error", "success", "insight", "question"}

// maxClockSkew bounds how far in the future a caller-supplied timestamp
// may be before it is rejected as garbage.
const maxClockSkew = 24 * time.Hour

// SessionStart announces a new working session.
type SessionStart struct {
	SessionID      string `json:"session_id"`
	ProjectPath    string `json:"project_path"`
	StartedAt      string `json:"started_at,omitempty"`
	StartedAtEpoch int64  `json:"started_at_epoch,omitempty"`
}

// SessionEnd closes an existing session, optionally attaching a summary.
type SessionEnd struct {
	EndedAt      string  `json:"ended_at,omitempty"`
	EndedAtEpoch int64   `json:"ended_at_epoch,omitempty"`
	Summary      *string `json:"summary,omitempty"`
	ProjectPath  string  `json:"project_path,omitempty"`
}

// Observation is a discrete typed note logged during a session.
type Observation struct {
	SessionID      string `json:"session_id"`
	Type           string `json:"type"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at,omitempty"`
	CreatedAtEpoch int64  `json:"created_at_epoch,omitempty"`
}

// UserPrompt records one prompt the human gave the assistant.
// Legacy hooks send a client-side prompt_number; it is ignored. The
// storage engine assigns ordinals so they stay gapless under
// concurrent callers.
type UserPrompt struct {
	SessionID      string `json:"session_id"`
	PromptText     string `json:"prompt_text"`
	PromptNumber   int    `json:"prompt_number,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	CreatedAtEpoch int64  `json:"created_at_epoch,omitempty"`
}

// Validate checks the session start event. On success the resolved
// start time is returned.
func (e *SessionStart) Validate(now time.Time) (time.Time, error) {
	if strings.TrimSpace(e.SessionID) == "" {
		return time.Time{}, fmt.Errorf("session_id is required")
	}
	return resolveTime("started_at", e.StartedAt, e.StartedAtEpoch, now)
}

// Validate checks the session end event for the given session id.
func (e *SessionEnd) Validate(sessionID string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(sessionID) == "" {
		return time.Time{}, fmt.Errorf("session_id is required")
	}
	return resolveTime("ended_at", e.EndedAt, e.EndedAtEpoch, now)
}

// Validate checks the observation event.
func (e *Observation) Validate(now time.Time) (time.Time, error) {
	if strings.TrimSpace(e.SessionID) == "" {
		return time.Time{}, fmt.Errorf("session_id is required")
	}
	if !ValidObservationType(e.Type) {
		return time.Time{}, fmt.Errorf("unknown observation type %q (want one of %s)",
			e.Type, strings.Join(ObservationTypes, ", "))
	}
	if strings.TrimSpace(e.Content) == "" {
		return time.Time{}, fmt.Errorf("content is required")
	}
	return resolveTime("created_at", e.CreatedAt, e.CreatedAtEpoch, now)
}

// Validate checks the user prompt event.
func (e *UserPrompt) Validate(now time.Time) (time.Time, error) {
	if strings.TrimSpace(e.SessionID) == "" {
		return time.Time{}, fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(e.PromptText) == "" {
		return time.Time{}, fmt.Errorf("prompt_text is required")
	}
	return resolveTime("created_at", e.CreatedAt, e.CreatedAtEpoch, now)
}

// ValidObservationType reports whether typ is in the closed set.
func ValidObservationType(typ string) bool {
	for _, t := range ObservationTypes {
		if typ == t {
			return true
		}
	}
	return false
}

// resolveTime turns the (string, epoch) pair into a concrete time.
// Precedence: RFC 3339 string, then epoch, then now. A timestamp more
// than maxClockSkew in the future is rejected.
func resolveTime(field, rfc string, epoch int64, now time.Time) (time.Time, error) {
	var ts time.Time
	switch {
	case strings.TrimSpace(rfc) != "":
		parsed, err := parseTimestamp(strings.TrimSpace(rfc))
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", field, err)
		}
		ts = parsed
	case epoch > 0:
		ts = time.Unix(epoch, 0)
	default:
		return now, nil
	}

	if ts.After(now.Add(maxClockSkew)) {
		return time.Time{}, fmt.Errorf("%s is too far in the future: %s", field, ts.UTC().Format(time.RFC3339))
	}
	return ts, nil
}

// parseTimestamp accepts RFC 3339 plus the "2006-01-02 15:04:05"
// format the legacy SQLite tooling emits.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
