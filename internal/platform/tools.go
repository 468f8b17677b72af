package platform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// External tool names
const (
	YTDLPCommand   = "yt-dlp"
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"
)

// DefaultVersionTimeout bounds the version probe of an external tool.
const DefaultVersionTimeout = 10 * time.Second

// ToolStatus describes an external binary found (or not) on the host.
type ToolStatus struct {
	Name    string
	Path    string
	Version string
	Err     error
}

// Found reports whether the tool was located.
func (ts ToolStatus) Found() bool {
	return ts.Err == nil && ts.Path != ""
}

// LookupTool resolves name (or an explicit path) to an executable.
func LookupTool(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", name, err)
	}
	return path, nil
}

// CheckTool locates the tool and asks it for its version. The version flag
// differs between tools: yt-dlp wants --version, ffmpeg wants -version.
func CheckTool(ctx context.Context, name, versionFlag string) ToolStatus {
	status := ToolStatus{Name: name}

	path, err := LookupTool(name)
	if err != nil {
		status.Err = err
		return status
	}
	status.Path = path

	ctx, cancel := context.WithTimeout(ctx, DefaultVersionTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, versionFlag)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		status.Err = fmt.Errorf("failed to run %s %s: %w", name, versionFlag, err)
		return status
	}
	status.Version = firstLine(out.String())
	return status
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
