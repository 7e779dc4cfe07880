package model

import (
	"fmt"
	"time"
)

// FetchRequest is one request to materialize an artifact. It is never persisted.
type FetchRequest struct {
	URL      string
	FormatID string
	Cookies  CookieMaterial
}

// FetchTask represents a single fetch tracked by the worker pool
type FetchTask struct {
	ID         string        `json:"id"`
	URL        string        `json:"url"`
	FormatID   string        `json:"format_id"`
	Status     TaskStatus    `json:"status"`
	Token      ArtifactToken `json:"video_id,omitempty"` // set once the artifact is ready
	LastError  string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  time.Time     `json:"started_at,omitzero"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
}

// Elapsed returns how long the task has been running, or ran, on a worker.
// Zero if the task has not started.
func (ft *FetchTask) Elapsed(now time.Time) time.Duration {
	if ft.StartedAt.IsZero() {
		return 0
	}
	if !ft.FinishedAt.IsZero() {
		return ft.FinishedAt.Sub(ft.StartedAt)
	}
	return now.Sub(ft.StartedAt)
}

// GetElapsedString returns the elapsed time formatted as hh:mm:ss or mm:ss, or "-" if not started
func (ft *FetchTask) GetElapsedString(now time.Time) string {
	secs := int(ft.Elapsed(now).Seconds())
	if ft.StartedAt.IsZero() {
		return "-"
	}

	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
