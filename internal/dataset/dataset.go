// Package dataset turns downloaded recordings into training corpora: a JSON
// dataset with one entry per audio file, its LitGPT JSONL rendition and a
// synthetic seed corpus of style and region descriptions.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ytget/phin/internal/common"
	"github.com/ytget/phin/internal/logdomain"
	"github.com/ytget/phin/internal/platform"
	"github.com/ytget/phin/internal/transcode"
)

// Default file names inside the dataset output directory
const (
	DatasetFileName   = "phin_training_dataset.json"
	LitGPTFileName    = "litgpt_phin_dataset.jsonl"
	SyntheticFileName = "phin_training_data.jsonl"
)

// ErrNoAudio is returned when a directory holds no audio files.
var ErrNoAudio = errors.New("no audio files found")

// Entry is one recording in the dataset JSON.
type Entry struct {
	AudioPath  string  `json:"audio_path"`
	Text       string  `json:"text"`
	Filename   string  `json:"filename"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
}

// Prober reports the duration of a media file in seconds.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Builder creates dataset entries from audio files.
type Builder struct {
	prober     Prober
	sampleRate int
	include    func(path string) bool
	log        *log.Logger
}

// NewBuilder creates a Builder. The sample rate is recorded in every entry
// and should match the rate the audio was resampled to.
func NewBuilder(prober Prober, sampleRate int) (*Builder, error) {
	l, err := common.GetLogger(logdomain.Dataset)
	if err != nil {
		return nil, err
	}

	return &Builder{
		prober:     prober,
		sampleRate: sampleRate,
		include:    isRecording,
		log:        l,
	}, nil
}

// isRecording skips the outputs of the postprocessing recipes, so each
// recording enters the dataset once.
func isRecording(path string) bool {
	return !transcode.IsDerived(path)
}

// SetFilter selects the audio files Build uses. By default every file that
// is not the output of a recipe is used.
func (b *Builder) SetFilter(include func(path string) bool) {
	b.include = include
}

// Build creates one entry per selected audio file below root, in path
// order. A file whose duration cannot be probed is kept with a zero duration.
func (b *Builder) Build(ctx context.Context, root string) ([]Entry, error) {
	all, err := platform.FindAudioFiles(root)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(all))
	for _, path := range all {
		if b.include == nil || b.include(path) {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAudio, root)
	}

	entries := make([]Entry, 0, len(files))
	for i, path := range files {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		b.log.Printf("[DEBUG] Processing file %d/%d: %s\n", i+1, len(files), path)

		var duration float64
		if duration, err = b.prober.ProbeDuration(ctx, path); err != nil {
			b.log.Printf("[WARN] Cannot probe %s: %s\n", path, err.Error())
			duration = 0
		}

		entries = append(entries, Entry{
			AudioPath:  path,
			Text:       describeRecording(root, path, duration, b.sampleRate),
			Filename:   filepath.Base(path),
			Duration:   duration,
			SampleRate: b.sampleRate,
		})
	}

	b.log.Printf("[INFO] Created dataset with %d entries from %s\n", len(entries), root)
	return entries, nil
} // func (b *Builder) Build(ctx context.Context, root string) ([]Entry, error)

// describeRecording renders the training text of a recording. The category
// is the first directory below root, as laid out by the fetch command.
func describeRecording(root, path string, duration float64, sampleRate int) string {
	var (
		sb       strings.Builder
		name     = filepath.Base(path)
		title    = strings.ReplaceAll(strings.TrimSuffix(name, filepath.Ext(name)), "_", " ")
		category string
	)

	if rel, err := filepath.Rel(root, path); err == nil {
		if parts := strings.Split(filepath.ToSlash(rel), "/"); len(parts) > 1 {
			category = parts[0]
		}
	}

	sb.WriteString("This is a Thai phin (Isan lute) music recording.\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", title)
	if category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", category)
	}

	sb.WriteString("\nMusical Characteristics:\n")
	if duration > 0 {
		fmt.Fprintf(&sb, "- Duration: %.1f seconds\n", duration)
	}
	fmt.Fprintf(&sb, "- Sample Rate: %d Hz\n", sampleRate)

	sb.WriteString("\nCultural Context:\n")
	sb.WriteString("This recording represents traditional Isan (Northeastern Thailand) music " +
		"featuring the phin. The phin is an essential instrument in Isan culture, used in " +
		"various ceremonial and entertainment contexts.\n")

	sb.WriteString("\nTechnical Notes:\n")
	sb.WriteString("- Recommended for: Music transcription, cultural preservation, AI training\n")

	return sb.String()
}

// WriteJSON writes entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if entries == nil {
		entries = []Entry{}
	}
	return enc.Encode(entries)
}

// ReadJSON reads a dataset JSON array.
func ReadJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("cannot decode dataset: %w", err)
	}
	return entries, nil
}

// WriteFile creates path and lets write fill it.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	if err = platform.CreateDirectoryIfNotExists(filepath.Dir(path)); err != nil {
		return err
	}

	var fh *os.File
	if fh, err = os.Create(path); err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer func() {
		if cerr := fh.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("cannot close %s: %w", path, cerr)
		}
	}()

	return write(fh)
}

// ReadJSONFile reads a dataset JSON file.
func ReadJSONFile(path string) ([]Entry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open dataset: %w", err)
	}
	defer fh.Close() // nolint: errcheck

	return ReadJSON(fh)
}
