package download

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// yt-dlp settings
const (
	BestAudioFormat         = "bestaudio"
	OutputExtTemplate       = ".%(ext)s"
	DefaultProgressInterval = 500 * time.Millisecond
)

// YTDLP runs the yt-dlp binary through go-ytdlp.
type YTDLP struct {
	executable string
}

// NewYTDLP creates a downloader. An empty executable uses yt-dlp from PATH.
func NewYTDLP(executable string) *YTDLP {
	return &YTDLP{executable: executable}
}

// Download requests the best available audio stream, extracts it to the
// requested container and writes it to req.OutputStem plus extension.
func (y *YTDLP) Download(ctx context.Context, req Request) error {
	dl := ytdlp.New().
		Format(BestAudioFormat).
		ExtractAudio().
		AudioFormat(req.AudioFormat).
		AudioQuality(req.AudioQuality).
		Output(outputTemplate(req.OutputStem))

	if y.executable != "" {
		dl.SetExecutable(y.executable)
	}

	if req.Overwrite {
		dl.ForceOverwrites()
	} else {
		dl.NoOverwrites()
	}

	if req.Thumbnail {
		dl.WriteThumbnail()
	}
	if req.InfoJSON {
		dl.WriteInfoJSON()
	}

	if req.Progress != nil {
		dl.ProgressFunc(DefaultProgressInterval, func(update ytdlp.ProgressUpdate) {
			req.Progress(convertProgress(update))
		})
	}

	if _, err := dl.Run(ctx, req.Entry.URL()); err != nil {
		return fmt.Errorf("yt-dlp failed for %s: %w", req.Entry.ID, err)
	}
	return nil
}

// outputTemplate turns an output stem into a yt-dlp output template. Percent
// signs in the stem must not be read as template fields.
func outputTemplate(stem string) string {
	return strings.ReplaceAll(stem, "%", "%%") + OutputExtTemplate
}

func convertProgress(update ytdlp.ProgressUpdate) Progress {
	p := Progress{ETASec: -1}

	if update.TotalBytes > 0 {
		p.Percent = int(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100)
	}

	if !update.Started.IsZero() {
		elapsed := time.Since(update.Started)
		if elapsed.Seconds() > 0 {
			bytesPerSecond := float64(update.DownloadedBytes) / elapsed.Seconds()
			p.Speed = fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
		}
	}

	if eta := update.ETA(); eta > 0 {
		p.ETASec = int(eta.Seconds())
	}
	return p
}
