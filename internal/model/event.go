package model

// EventType names a queue lifecycle event
type EventType string

const (
	// EventAdded fires when a job enters the queue
	EventAdded EventType = "added"

	// EventStatusChange fires on every status transition
	EventStatusChange EventType = "statusChange"

	// EventProgress fires when a running job's progress strictly increases
	EventProgress EventType = "progress"

	// EventComplete fires when a job reaches completed
	EventComplete EventType = "complete"

	// EventError fires when a job reaches error
	EventError EventType = "error"

	// EventRemoved fires when a job leaves the in-memory queue
	EventRemoved EventType = "removed"
)

// Event is the unit delivered to every queue observer. Job is a snapshot
// taken at emission time; receivers may keep it without copying.
type Event struct {
	Type EventType `json:"type"`
	Job  *Job      `json:"job"`
}
