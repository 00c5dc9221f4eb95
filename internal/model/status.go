package model

// Status represents the lifecycle state of a download job
type Status string

const (
	// StatusPending means the job is queued but not started
	StatusPending Status = "pending"

	// StatusRunning means the worker process is downloading
	StatusRunning Status = "running"

	// StatusPaused means the worker process is suspended
	StatusPaused Status = "paused"

	// StatusCompleted means the job finished successfully
	StatusCompleted Status = "completed"

	// StatusError means the job failed with an error
	StatusError Status = "error"

	// StatusCancelled means the job was cancelled by the user
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsActive returns true if the job has a live worker process attached
func (s Status) IsActive() bool {
	return s == StatusRunning || s == StatusPaused
}

// IsTerminal returns true if no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}
