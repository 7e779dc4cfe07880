package model

import (
	"testing"
	"time"
)

func TestFetchTask_GetElapsedString(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		elapsed  time.Duration
		started  bool
		expected string
	}{
		{0, false, "-"},
		{0, true, "00:00"},
		{30 * time.Second, true, "00:30"},
		{90 * time.Second, true, "01:30"},
		{time.Hour, true, "01:00:00"},
		{time.Hour + time.Minute + time.Second, true, "01:01:01"},
	}

	for _, test := range tests {
		task := &FetchTask{}
		if test.started {
			task.StartedAt = start
		}
		result := task.GetElapsedString(start.Add(test.elapsed))
		if result != test.expected {
			t.Errorf("GetElapsedString() after %v = %s, expected %s", test.elapsed, result, test.expected)
		}
	}
}

func TestFetchTask_ElapsedStopsAtFinish(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	task := &FetchTask{
		ID:         "task-1",
		Status:     TaskStatusCompleted,
		StartedAt:  start,
		FinishedAt: start.Add(42 * time.Second),
	}

	if got := task.Elapsed(start.Add(time.Hour)); got != 42*time.Second {
		t.Errorf("Expected elapsed to be 42s, got %v", got)
	}
}
