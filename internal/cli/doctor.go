package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ollama/ollama/envconfig"
	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/ledger"
	"github.com/ytget/phin/internal/platform"
)

// DefaultPingTimeout bounds the inference server check.
const DefaultPingTimeout = 5 * time.Second

// ErrMissingTools is returned by doctor when a required tool is unusable.
var ErrMissingTools = errors.New("required tools are missing")

type pinger interface {
	Ping(ctx context.Context) error
}

func statusOK(w io.Writer, msg string) {
	fmt.Fprintf(w, "  [ok]  %s\n", msg)
}

func statusWarn(w io.Writer, msg string) {
	fmt.Fprintf(w, "  [!]   %s\n", msg)
}

func statusErr(w io.Writer, msg string) {
	fmt.Fprintf(w, "  [x]   %s\n", msg)
}

func newDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external tools are available",
		Long:  "Check that yt-dlp, ffmpeg and ffprobe can be run, that an existing ledger can be opened and whether the inference server answers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.doctor(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *app) doctor(ctx context.Context, w io.Writer) error {
	var (
		s       = a.settings
		missing int
		tools   = []struct {
			path, flag string
		}{
			{s.YTDLPPath, "--version"},
			{s.FFmpegPath, "-version"},
			{s.FFprobePath, "-version"},
		}
	)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  phin %s  System Check\n\n", Version)

	for _, t := range tools {
		st := a.checkTool(ctx, t.path, t.flag)
		if !st.Found() {
			statusErr(w, st.Err.Error())
			missing++
			continue
		}
		statusOK(w, fmt.Sprintf("%s (%s)", st.Version, st.Path))
	}

	statusOK(w, fmt.Sprintf("Output root: %s", s.GetOutputRoot()))

	if !a.checkLedger(w) {
		missing++
	}

	a.checkInference(ctx, w)

	fmt.Fprintln(w)
	if missing > 0 {
		return fmt.Errorf("%w: %d problems found", ErrMissingTools, missing)
	}
	return nil
} // func (a *app) doctor(ctx context.Context, w io.Writer) error

// checkLedger opens an existing ledger to see that it is readable. A
// missing one is only reported: doctor does not create files.
func (a *app) checkLedger(w io.Writer) bool {
	path := a.ledgerPath()
	if path == "" {
		statusWarn(w, "Ledger disabled")
		return true
	}

	exists, err := platform.FileExists(path)
	if err != nil {
		statusErr(w, fmt.Sprintf("Ledger %s: %s", path, err.Error()))
		return false
	} else if !exists {
		statusWarn(w, fmt.Sprintf("No ledger yet at %s, the first fetch creates it", path))
		return true
	}

	l, err := ledger.Open(path)
	if err != nil {
		statusErr(w, fmt.Sprintf("Ledger %s: %s", path, err.Error()))
		return false
	}
	l.Close() // nolint: errcheck
	statusOK(w, fmt.Sprintf("Ledger: %s", path))
	return true
}

// checkInference only warns: the server is needed by analyze, transcribe
// and describe, not by the dataset commands.
func (a *app) checkInference(ctx context.Context, w io.Writer) {
	gen, err := a.newGenerator(a.settings.Model)
	if err != nil {
		statusWarn(w, err.Error())
		return
	}

	p, ok := gen.(pinger)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if err = p.Ping(ctx); err != nil {
		statusWarn(w, fmt.Sprintf("Inference server at %s does not answer: %s", envconfig.Host(), err.Error()))
		return
	}
	statusOK(w, fmt.Sprintf("Inference server at %s, model %s", envconfig.Host(), a.settings.Model))
}
