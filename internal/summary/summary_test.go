package summary

import (
	"strings"
	"testing"
	"time"

	"github.com/yejune/do-worker/internal/store"
)

// fakeReader serves canned observations, deriving counts from the same
// data so the rollup sees a consistent view.
type fakeReader struct {
	observations []store.Observation
	sessions     map[string]time.Time // session id -> started_at
}

func (f *fakeReader) between(from, until time.Time) []store.Observation {
	var out []store.Observation
	for _, o := range f.observations {
		if !o.CreatedAt.Before(from) && o.CreatedAt.Before(until) {
			out = append(out, o)
		}
	}
	return out
}

func (f *fakeReader) ActiveSessionCount(from, until time.Time) (int, error) {
	seen := map[string]bool{}
	for id, started := range f.sessions {
		if !started.Before(from) && started.Before(until) {
			seen[id] = true
		}
	}
	for _, o := range f.between(from, until) {
		seen[o.SessionID] = true
	}
	return len(seen), nil
}

func (f *fakeReader) ObservationCount(from, until time.Time) (int, error) {
	return len(f.between(from, until)), nil
}

func (f *fakeReader) ObservationsBetween(from, until time.Time) ([]store.Observation, error) {
	return f.between(from, until), nil
}

func obs(sessionID, typ, content string, at time.Time) store.Observation {
	return store.Observation{SessionID: sessionID, Type: typ, Content: content, CreatedAt: at}
}

var now = time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)

func day(offset int, hour int) time.Time {
	return time.Date(2026, 8, 20+offset, hour, 0, 0, 0, time.UTC)
}

func TestRollupWindow(t *testing.T) {
	r := &fakeReader{}

	summaries, err := Rollup(r, 3, now)
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("days = %d, want 3", len(summaries))
	}
	// Most recent day first.
	want := []string{"2026-08-20", "2026-08-19", "2026-08-18"}
	for i, w := range want {
		if summaries[i].Date != w {
			t.Errorf("day %d = %q, want %q", i, summaries[i].Date, w)
		}
	}
}

func TestRollupDefaultAndMaxDays(t *testing.T) {
	r := &fakeReader{}

	summaries, err := Rollup(r, 0, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != DefaultDays {
		t.Errorf("days = %d, want default %d", len(summaries), DefaultDays)
	}

	summaries, err = Rollup(r, 500, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != MaxDays {
		t.Errorf("days = %d, want clamped to %d", len(summaries), MaxDays)
	}
}

func TestRollupCounts(t *testing.T) {
	r := &fakeReader{
		sessions: map[string]time.Time{
			"a": day(0, 9),
			"b": day(-1, 10),
		},
		observations: []store.Observation{
			obs("a", "decision", "today one", day(0, 10)),
			obs("a", "error", "today two", day(0, 11)),
			obs("b", "insight", "yesterday", day(-1, 11)),
		},
	}

	summaries, err := Rollup(r, 2, now)
	if err != nil {
		t.Fatal(err)
	}

	today := summaries[0]
	if today.SessionsCount != 1 || today.ObservationsCount != 2 {
		t.Errorf("today = %d sessions / %d observations, want 1/2", today.SessionsCount, today.ObservationsCount)
	}
	yesterday := summaries[1]
	if yesterday.SessionsCount != 1 || yesterday.ObservationsCount != 1 {
		t.Errorf("yesterday = %d sessions / %d observations, want 1/1", yesterday.SessionsCount, yesterday.ObservationsCount)
	}
}

func TestRollupEmptyDayHasEmptyHighlights(t *testing.T) {
	r := &fakeReader{}

	summaries, err := Rollup(r, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	s := summaries[0]
	if s.SessionsCount != 0 || s.ObservationsCount != 0 {
		t.Errorf("counts = %d/%d, want zero", s.SessionsCount, s.ObservationsCount)
	}
	// Empty, not nil: the JSON must carry [] rather than null.
	if s.Highlights == nil {
		t.Error("highlights is nil, want empty slice")
	}
	if len(s.Highlights) != 0 {
		t.Errorf("highlights = %v, want empty", s.Highlights)
	}
}

func TestHighlightsPreferInsightsAndDecisions(t *testing.T) {
	r := &fakeReader{
		observations: []store.Observation{
			obs("a", "success", "routine one", day(0, 9)),
			obs("a", "insight", "the cache was the bottleneck", day(0, 10)),
			obs("a", "success", "routine two", day(0, 11)),
			obs("a", "decision", "moved to batch writes", day(0, 12)),
			obs("a", "success", "routine three", day(0, 13)),
			obs("a", "success", "routine four", day(0, 13).Add(time.Minute)),
			obs("a", "success", "routine five", day(0, 13).Add(2 * time.Minute)),
		},
	}

	summaries, err := Rollup(r, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	h := summaries[0].Highlights
	if len(h) != 5 {
		t.Fatalf("highlights = %d, want 5", len(h))
	}
	// Both preferred entries survive the cap.
	joined := strings.Join(h, "|")
	if !strings.Contains(joined, "bottleneck") || !strings.Contains(joined, "batch writes") {
		t.Errorf("preferred types missing from highlights: %v", h)
	}
	// Chronological order is preserved after merging buckets.
	if h[0] != "routine one" {
		t.Errorf("first highlight = %q, want the earliest", h[0])
	}
	if h[1] != "the cache was the bottleneck" {
		t.Errorf("second highlight = %q", h[1])
	}
}

func TestHighlightTruncation(t *testing.T) {
	long := strings.Repeat("x", 150)
	r := &fakeReader{
		observations: []store.Observation{
			obs("a", "insight", long, day(0, 10)),
		},
	}

	summaries, err := Rollup(r, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	h := summaries[0].Highlights
	if len(h) != 1 {
		t.Fatalf("highlights = %d, want 1", len(h))
	}
	if want := strings.Repeat("x", 100) + "..."; h[0] != want {
		t.Errorf("highlight length = %d, want truncated to 100 plus ellipsis", len(h[0]))
	}
}

func TestHighlightsCapAtFivePreferred(t *testing.T) {
	var observations []store.Observation
	for i := 0; i < 8; i++ {
		observations = append(observations, obs("a", "insight", "note", day(0, 9).Add(time.Duration(i)*time.Minute)))
	}
	r := &fakeReader{observations: observations}

	summaries, err := Rollup(r, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries[0].Highlights) != 5 {
		t.Errorf("highlights = %d, want capped at 5", len(summaries[0].Highlights))
	}
}
