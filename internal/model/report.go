package model

import "time"

// Report summarizes one fetch run.
type Report struct {
	RunID      string
	OutputRoot string
	StartedAt  time.Time
	FinishedAt time.Time
	Tasks      []*FetchTask
}

// Planned returns the number of entries the run was asked to process.
func (r *Report) Planned() int {
	return len(r.Tasks)
}

func (r *Report) count(status TaskStatus) int {
	n := 0
	for _, t := range r.Tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

// Succeeded returns the number of completed downloads.
func (r *Report) Succeeded() int { return r.count(TaskStatusCompleted) }

// Skipped returns the number of entries whose output was kept as-is.
func (r *Report) Skipped() int { return r.count(TaskStatusSkipped) }

// Failed returns the number of failed downloads.
func (r *Report) Failed() int { return r.count(TaskStatusError) }

// Produced returns the paths of the files written during the run.
func (r *Report) Produced() []string {
	var paths []string
	for _, t := range r.Tasks {
		if t.Status == TaskStatusCompleted && t.OutputPath != "" {
			paths = append(paths, t.OutputPath)
		}
	}
	return paths
}

// Failures returns the tasks that ended in an error.
func (r *Report) Failures() []*FetchTask {
	var failed []*FetchTask
	for _, t := range r.Tasks {
		if t.Status == TaskStatusError {
			failed = append(failed, t)
		}
	}
	return failed
}
