// Package completion derives and reconciles a session's completion status.
//
// Detect is a pure function of a session's messages and a reference time.
// The Reconciler runs it from every trigger point (ingest, read, batch and
// manual sync, and an optional cron schedule) and persists the result only
// when it differs from what is stored.
package completion

import (
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/models"
)

// Policy parameterizes detection.
type Policy struct {
	// Marker is the substring that, in any AI message, latches the session
	// to complete. Matching is case-sensitive. An empty marker never matches.
	Marker string
	// Freshness is how long after the newest message a session still counts
	// as in progress.
	Freshness time.Duration
}

// Result is the outcome of detection.
type Result struct {
	Status models.CompletionStatus
	// CompletedAt is the timestamp of the earliest marker message; nil
	// unless Status is complete.
	CompletedAt *time.Time
}

// Detect computes the completion status of msgs at now. Messages need not be
// sorted.
func Detect(msgs []models.Message, now time.Time, p Policy) Result {
	if len(msgs) == 0 {
		return Result{Status: models.CompletionIncomplete}
	}

	var (
		completedAt *time.Time
		newest      = msgs[0].Timestamp
	)
	for i := range msgs {
		m := &msgs[i]
		if m.Timestamp.After(newest) {
			newest = m.Timestamp
		}
		if m.Sender == models.SenderAI && p.Marker != "" && strings.Contains(m.Content, p.Marker) {
			if completedAt == nil || m.Timestamp.Before(*completedAt) {
				ts := m.Timestamp
				completedAt = &ts
			}
		}
	}

	if completedAt != nil {
		return Result{Status: models.CompletionComplete, CompletedAt: completedAt}
	}
	if now.Sub(newest) <= p.Freshness {
		return Result{Status: models.CompletionInProgress}
	}
	return Result{Status: models.CompletionIncomplete}
}

// Matches reports whether r equals the stored values. Timestamps are
// compared to the second since some backends drop sub-second precision.
func (r Result) Matches(status models.CompletionStatus, completedAt *time.Time) bool {
	if r.Status != status {
		return false
	}
	if (r.CompletedAt == nil) != (completedAt == nil) {
		return false
	}
	if r.CompletedAt == nil {
		return true
	}
	d := r.CompletedAt.Sub(*completedAt)
	return d < time.Second && d > -time.Second
}
