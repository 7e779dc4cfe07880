package model

// TaskStatus represents the status of a fetch task
type TaskStatus string

const (
	// TaskStatusPending means the task is queued but not started
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusStarting means a worker picked the task up and is reserving the artifact
	TaskStatusStarting TaskStatus = "starting"

	// TaskStatusDownloading means the extraction tool is running
	TaskStatusDownloading TaskStatus = "downloading"

	// TaskStatusStopping means a cancel was requested and the worker has not yet returned
	TaskStatusStopping TaskStatus = "stopping"

	// TaskStatusStopped means the task was cancelled by the caller
	TaskStatusStopped TaskStatus = "stopped"

	// TaskStatusCompleted means the artifact is ready to be served
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusError means the fetch failed or timed out
	TaskStatusError TaskStatus = "error"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if a worker currently owns the task
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusStarting || ts == TaskStatusDownloading || ts == TaskStatusStopping
}

// IsFinished returns true if the task reached a terminal state (completed, stopped, or error)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusStopped || ts == TaskStatusError
}
