package download

import (
	"context"

	"github.com/ytget/phin/internal/model"
)

// Request describes a single downloader invocation.
type Request struct {
	Entry        model.VideoEntry
	OutputStem   string // output path without extension
	AudioFormat  string
	AudioQuality string
	Overwrite    bool
	Thumbnail    bool
	InfoJSON     bool
	Progress     func(Progress)
}

// Progress is a downloader progress notification.
type Progress struct {
	Percent int
	Speed   string
	ETASec  int
}

// Downloader fetches the audio of one catalog entry.
type Downloader interface {
	Download(ctx context.Context, req Request) error
}

// Recorder is told about the lifecycle of a run. Implementations must not
// retain the tasks beyond the call.
type Recorder interface {
	BeginRun(ctx context.Context, report *model.Report) error
	RecordTask(ctx context.Context, runID string, task *model.FetchTask) error
	FinishRun(ctx context.Context, report *model.Report) error
}
