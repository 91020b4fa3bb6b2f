package event

import (
	"strings"
	"testing"
	"time"
)

var now = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func TestSessionStartValidate(t *testing.T) {
	e := SessionStart{SessionID: "sess-1", StartedAt: "2026-08-20T09:00:00Z"}
	got, err := e.Validate(now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("time = %v, want %v", got, want)
	}
}

func TestSessionStartRequiresID(t *testing.T) {
	e := SessionStart{SessionID: "   "}
	if _, err := e.Validate(now); err == nil {
		t.Error("expected error for blank session_id")
	}
}

func TestSessionStartEpochTimestamp(t *testing.T) {
	epoch := now.Add(-time.Hour).Unix()
	e := SessionStart{SessionID: "sess-1", StartedAtEpoch: epoch}
	got, err := e.Validate(now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Unix() != epoch {
		t.Errorf("time = %v, want epoch %d", got, epoch)
	}
}

func TestSessionStartDefaultsToNow(t *testing.T) {
	e := SessionStart{SessionID: "sess-1"}
	got, err := e.Validate(now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("time = %v, want now", got)
	}
}

func TestSessionStartStringBeatsEpoch(t *testing.T) {
	e := SessionStart{
		SessionID:      "sess-1",
		StartedAt:      "2026-08-20T09:00:00Z",
		StartedAtEpoch: now.Unix(),
	}
	got, err := e.Validate(now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Hour() != 9 {
		t.Errorf("time = %v, want the RFC 3339 value", got)
	}
}

func TestSessionStartRejectsFarFuture(t *testing.T) {
	e := SessionStart{SessionID: "sess-1", StartedAt: now.Add(48 * time.Hour).Format(time.RFC3339)}
	if _, err := e.Validate(now); err == nil {
		t.Error("expected error for timestamp 48h in the future")
	}
}

func TestSessionStartLegacyTimestampFormat(t *testing.T) {
	e := SessionStart{SessionID: "sess-1", StartedAt: "2026-08-20 09:00:00"}
	got, err := e.Validate(now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Hour() != 9 || got.Location() != time.UTC {
		t.Errorf("time = %v, want 09:00 UTC", got)
	}
}

func TestSessionStartBadTimestamp(t *testing.T) {
	e := SessionStart{SessionID: "sess-1", StartedAt: "yesterday"}
	_, err := e.Validate(now)
	if err == nil || !strings.Contains(err.Error(), "started_at") {
		t.Errorf("err = %v, want a started_at parse error", err)
	}
}

func TestSessionEndValidate(t *testing.T) {
	e := SessionEnd{EndedAt: "2026-08-20T11:00:00Z"}
	got, err := e.Validate("sess-1", now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Hour() != 11 {
		t.Errorf("time = %v", got)
	}

	if _, err := e.Validate("", now); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestObservationValidate(t *testing.T) {
	tests := []struct {
		name    string
		e       Observation
		wantErr bool
	}{
		{"valid", Observation{SessionID: "s", Type: "decision", Content: "chose X"}, false},
		{"missing session", Observation{Type: "decision", Content: "x"}, true},
		{"unknown type", Observation{SessionID: "s", Type: "thought", Content: "x"}, true},
		{"empty type", Observation{SessionID: "s", Content: "x"}, true},
		{"blank content", Observation{SessionID: "s", Type: "error", Content: "  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.e.Validate(now)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestObservationAllTypesAccepted(t *testing.T) {
	for _, typ := range ObservationTypes {
		e := Observation{SessionID: "s", Type: typ, Content: "x"}
		if _, err := e.Validate(now); err != nil {
			t.Errorf("type %q rejected: %v", typ, err)
		}
	}
}

func TestUserPromptValidate(t *testing.T) {
	e := UserPrompt{SessionID: "s", PromptText: "fix the tests"}
	if _, err := e.Validate(now); err != nil {
		t.Fatalf("validate: %v", err)
	}

	blank := UserPrompt{SessionID: "s", PromptText: "   "}
	if _, err := blank.Validate(now); err == nil {
		t.Error("expected error for blank prompt_text")
	}
}

func TestValidObservationType(t *testing.T) {
	if !ValidObservationType("insight") {
		t.Error("insight should be valid")
	}
	if ValidObservationType("INSIGHT") {
		t.Error("type matching is case-sensitive")
	}
	if ValidObservationType("") {
		t.Error("empty type should be invalid")
	}
}
