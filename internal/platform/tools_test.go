package platform

import (
	"context"
	"testing"
)

func TestLookupTool_Missing(t *testing.T) {
	if _, err := LookupTool("phin-definitely-not-installed"); err == nil {
		t.Error("expected error for missing tool")
	}

	status := CheckTool(context.Background(), "phin-definitely-not-installed", "--version")
	if status.Found() {
		t.Error("missing tool should not be reported as found")
	}
	if status.Err == nil {
		t.Error("expected error on status")
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2024.08.06\n", "2024.08.06"},
		{"ffmpeg version 6.1 Copyright\nbuilt with gcc\n", "ffmpeg version 6.1 Copyright"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}
