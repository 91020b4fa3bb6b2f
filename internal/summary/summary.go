// Package summary derives per-day rollups from raw session and
// observation history. It owns no state: every rollup is recomputed
// from storage through the same read operations any other consumer
// would use.
package summary

import (
	"fmt"
	"time"

	"github.com/yejune/do-worker/internal/store"
)

// Reader is the slice of the storage engine the rollup needs.
type Reader interface {
	ActiveSessionCount(from, until time.Time) (int, error)
	ObservationCount(from, until time.Time) (int, error)
	ObservationsBetween(from, until time.Time) ([]store.Observation, error)
}

// DaySummary is the rollup for one calendar day.
type DaySummary struct {
	Date              string   `json:"date"`
	SessionsCount     int      `json:"sessions_count"`
	ObservationsCount int      `json:"observations_count"`
	Highlights        []string `json:"highlights"`
}

const (
	// DefaultDays is the window served when the caller does not ask
	// for a specific one.
	DefaultDays = 7

	// MaxDays bounds the window so a bad query parameter cannot turn
	// into a full-history scan per day.
	MaxDays = 90

	maxHighlights      = 5
	highlightMaxLength = 100
)

// Rollup computes summaries for the `days` most recent calendar days,
// ending with the day containing now, most recent day first. Days with
// no activity are still emitted with zero counts and an empty highlight
// list: the dashboard charts a contiguous range and must never see a
// gap. Day boundaries follow now's location.
func Rollup(r Reader, days int, now time.Time) ([]DaySummary, error) {
	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	results := make([]DaySummary, 0, days)
	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	for i := 0; i < days; i++ {
		dayStart := today.AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1)

		sessions, err := r.ActiveSessionCount(dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("summary: %s: %w", dayStart.Format("2006-01-02"), err)
		}
		observations, err := r.ObservationCount(dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("summary: %s: %w", dayStart.Format("2006-01-02"), err)
		}

		highlights := []string{}
		if observations > 0 {
			candidates, err := r.ObservationsBetween(dayStart, dayEnd)
			if err != nil {
				return nil, fmt.Errorf("summary: %s: %w", dayStart.Format("2006-01-02"), err)
			}
			highlights = extractHighlights(candidates)
		}

		results = append(results, DaySummary{
			Date:              dayStart.Format("2006-01-02"),
			SessionsCount:     sessions,
			ObservationsCount: observations,
			Highlights:        highlights,
		})
	}
	return results, nil
}

// extractHighlights picks up to maxHighlights observations from one
// day, preferring insights and decisions over the other kinds. The
// final list keeps created_at order regardless of which bucket an
// entry came from. Input must already be in created_at order.
func extractHighlights(observations []store.Observation) []string {
	var preferred, rest []store.Observation
	for _, o := range observations {
		switch o.Type {
		case "insight", "decision":
			preferred = append(preferred, o)
		default:
			rest = append(rest, o)
		}
	}

	picked := preferred
	if len(picked) > maxHighlights {
		picked = picked[:maxHighlights]
	} else if need := maxHighlights - len(picked); need > 0 {
		if need > len(rest) {
			need = len(rest)
		}
		picked = append(picked, rest[:need]...)
	}

	// Merge back into chronological order: both buckets preserved it,
	// but preferred entries may interleave with the fill.
	ordered := make([]store.Observation, len(picked))
	copy(ordered, picked)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].CreatedAt.Before(ordered[j-1].CreatedAt); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	highlights := make([]string, 0, len(ordered))
	for _, o := range ordered {
		highlights = append(highlights, store.Truncate(o.Content, highlightMaxLength))
	}
	return highlights
}
