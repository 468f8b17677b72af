package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FetchTask tracks one downloader invocation for a catalog entry
type FetchTask struct {
	ID         string
	Entry      VideoEntry
	Status     TaskStatus
	Attempts   int
	Percent    int       // 0 to 100
	Speed      string    // human readable speed (e.g., "1.2MB/s")
	ETASec     int       // ETA in seconds, -1 if unknown
	LastError  string    // last error message if any
	OutputPath string    // path of the produced (or expected) file
	FileSize   int64     // file size in bytes
	StartedAt  time.Time // when the download started
	FinishedAt time.Time // when the download finished
}

// TranscodeTask tracks one transcoder invocation
type TranscodeTask struct {
	ID         string
	Recipe     string
	InputPath  string
	OutputPath string
	Status     TaskStatus
	Progress   float64 // 0.0 to 1.0
	Percent    int     // 0 to 100
	LastError  string  // last error message if any
	StartedAt  time.Time
	FinishedAt time.Time
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (ft *FetchTask) GetETAString() string {
	if ft.ETASec <= 0 {
		return "—"
	}

	hours := ft.ETASec / 3600
	minutes := (ft.ETASec % 3600) / 60
	seconds := ft.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns title, filename, or URL in order of preference
func (ft *FetchTask) GetDisplayTitle() string {
	if ft.Entry.Title != "" {
		return ft.Entry.Title
	}

	if ft.OutputPath != "" {
		name := filepath.Base(ft.OutputPath)
		return strings.TrimSuffix(name, filepath.Ext(name))
	}

	if ft.Entry.ID == "" {
		return ""
	}
	return ft.Entry.URL()
}

// Duration returns the wall time spent on the task, zero if unfinished.
func (ft *FetchTask) Duration() time.Duration {
	if ft.StartedAt.IsZero() || ft.FinishedAt.IsZero() {
		return 0
	}
	return ft.FinishedAt.Sub(ft.StartedAt)
}
