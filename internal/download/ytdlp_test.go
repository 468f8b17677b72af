package download

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ytget/phin/internal/model"
)

func TestOutputTemplate(t *testing.T) {
	tests := []struct {
		stem     string
		expected string
	}{
		{"/data/basics/Lesson_1", "/data/basics/Lesson_1.%(ext)s"},
		{"/data/covers/100%_Phin", "/data/covers/100%%_Phin.%(ext)s"},
	}

	for _, tt := range tests {
		if got := outputTemplate(tt.stem); got != tt.expected {
			t.Errorf("outputTemplate(%q) = %q, expected %q", tt.stem, got, tt.expected)
		}
	}
}

func TestConvertProgress(t *testing.T) {
	p := convertProgress(ytdlp.ProgressUpdate{
		TotalBytes:      200,
		DownloadedBytes: 50,
		Started:         time.Now().Add(-time.Second),
	})

	if p.Percent != 25 {
		t.Errorf("Expected 25%%, got %d", p.Percent)
	}
	if p.Speed == "" {
		t.Error("Expected speed to be set")
	}

	empty := convertProgress(ytdlp.ProgressUpdate{})
	if empty.Percent != 0 || empty.ETASec != -1 {
		t.Errorf("Expected zero percent and unknown ETA, got %+v", empty)
	}
}

// writeArgvRecorder installs a yt-dlp stand-in that writes each of its
// arguments on a line of its own into the returned file.
func writeArgvRecorder(t *testing.T) (executable, argvFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script executables are not supported on Windows")
	}

	dir := t.TempDir()
	argvFile = filepath.Join(dir, "argv")
	executable = filepath.Join(dir, "yt-dlp")

	script := "#!/bin/sh\nfor a in \"$@\"; do printf '%s\\n' \"$a\"; done > '" + argvFile + "'\n"
	if err := os.WriteFile(executable, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to write fake yt-dlp: %v", err)
	}
	return executable, argvFile
}

func readArgv(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("yt-dlp was not run: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// hasArgs reports whether want appears as a contiguous run in argv.
func hasArgs(argv []string, want ...string) bool {
	for i := 0; i+len(want) <= len(argv); i++ {
		match := true
		for j, w := range want {
			if argv[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestYTDLPArguments(t *testing.T) {
	entry := model.VideoEntry{ID: "abc", Category: model.CategoryHae, Title: "Lai Hae"}

	tests := []struct {
		name    string
		req     Request
		present [][]string
		absent  []string
	}{
		{
			name: "overwrite",
			req:  Request{Overwrite: true},
			present: [][]string{
				{"--force-overwrites"},
			},
			absent: []string{"--no-overwrites", "--write-thumbnail", "--write-info-json"},
		},
		{
			name: "keep existing",
			req:  Request{Overwrite: false},
			present: [][]string{
				{"--no-overwrites"},
			},
			absent: []string{"--force-overwrites"},
		},
		{
			name: "sidecars",
			req:  Request{Overwrite: true, Thumbnail: true, InfoJSON: true},
			present: [][]string{
				{"--write-thumbnail"},
				{"--write-info-json"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exe, argvFile := writeArgvRecorder(t)
			stem := filepath.Join(t.TempDir(), "hae", "Lai_Hae")

			req := tt.req
			req.Entry = entry
			req.OutputStem = stem
			req.AudioFormat = "wav"
			req.AudioQuality = "0"

			if err := NewYTDLP(exe).Download(context.Background(), req); err != nil {
				t.Fatalf("Download failed: %v", err)
			}

			argv := readArgv(t, argvFile)

			fixed := [][]string{
				{"--format", BestAudioFormat},
				{"--extract-audio"},
				{"--audio-format", "wav"},
				{"--audio-quality", "0"},
				{"--output", stem + ".%(ext)s"},
			}
			for _, want := range append(fixed, tt.present...) {
				if !hasArgs(argv, want...) {
					t.Errorf("Expected %q in %q", want, argv)
				}
			}
			for _, flag := range tt.absent {
				if hasArgs(argv, flag) {
					t.Errorf("Did not expect %s in %q", flag, argv)
				}
			}
			if last := argv[len(argv)-1]; last != entry.URL() {
				t.Errorf("Expected the video URL as last argument, got %q", last)
			}
		})
	}
}
