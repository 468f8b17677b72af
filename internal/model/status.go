package model

// TaskStatus represents the status of a fetch or transcode task
type TaskStatus string

const (
	// TaskStatusPending means the task is queued but not started
	TaskStatusPending TaskStatus = "Pending"

	// TaskStatusRunning means the external tool is working on the task
	TaskStatusRunning TaskStatus = "Running"

	// TaskStatusCompleted means the task finished successfully
	TaskStatusCompleted TaskStatus = "Completed"

	// TaskStatusSkipped means the output already existed and was kept
	TaskStatusSkipped TaskStatus = "Skipped"

	// TaskStatusStopped means the run was cancelled before the task finished
	TaskStatusStopped TaskStatus = "Stopped"

	// TaskStatusError means the task failed with an error
	TaskStatusError TaskStatus = "Error"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task is in an active state
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusRunning
}

// IsFinished returns true if the task is in a finished state
func (ts TaskStatus) IsFinished() bool {
	switch ts {
	case TaskStatusCompleted, TaskStatusSkipped, TaskStatusStopped, TaskStatusError:
		return true
	default:
		return false
	}
}
