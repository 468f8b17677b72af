package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/catalog"
	"github.com/ytget/phin/internal/config"
	"github.com/ytget/phin/internal/download"
	"github.com/ytget/phin/internal/ledger"
	"github.com/ytget/phin/internal/metrics"
	"github.com/ytget/phin/internal/model"
	"github.com/ytget/phin/internal/platform"
)

type fetchFlags struct {
	output       string
	catalogFile  string
	categories   []string
	delay        time.Duration
	format       string
	retries      int
	skipExisting bool
	thumbnails   bool
	infoJSON     bool
	noLedger     bool
	metricsFile  string
}

func newFetchCommand(a *app) *cobra.Command {
	var f fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the audio of every catalog entry",
		Long: `Download the audio of every catalog entry with yt-dlp, one entry at a time,
into <output>/<category>/<title>.<format>, pausing between requests.

A failed entry is reported and the remaining entries are still fetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runFetch(cmd, &f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "output root directory")
	fl.StringVar(&f.catalogFile, "catalog", "", "YAML catalog to use instead of the built-in one")
	fl.StringSliceVar(&f.categories, "category", nil, "only fetch these categories")
	fl.DurationVar(&f.delay, "delay", 0, "pause between downloads (default from settings)")
	fl.StringVar(&f.format, "format", "", "audio container (default from settings)")
	fl.IntVar(&f.retries, "retries", -1, "extra attempts per entry (default from settings)")
	fl.BoolVar(&f.skipExisting, "skip-existing", false, "keep files that already exist instead of overwriting them")
	fl.BoolVar(&f.thumbnails, "thumbnails", false, "also write the video thumbnail next to each file")
	fl.BoolVar(&f.infoJSON, "info-json", false, "also write the video metadata as <title>.info.json")
	fl.BoolVar(&f.noLedger, "no-ledger", false, "do not record the run in the ledger")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

// applyFlags copies the explicitly set flags into the settings.
func (f *fetchFlags) applyFlags(cmd *cobra.Command, s *config.Settings) error {
	fl := cmd.Flags()

	if f.output != "" {
		s.SetOutputRoot(f.output)
	}
	if fl.Changed("delay") {
		s.SetDelay(f.delay)
	}
	if f.format != "" {
		s.SetAudioFormat(f.format)
		if s.GetAudioFormat() != f.format {
			return fmt.Errorf("unsupported audio format %q", f.format)
		}
	}
	if f.retries >= 0 {
		s.SetRetries(f.retries)
	}
	if f.skipExisting {
		s.SetSkipExisting(true)
	}
	if f.thumbnails {
		s.Thumbnails = true
	}
	if f.infoJSON {
		s.InfoJSON = true
	}
	if f.metricsFile != "" {
		s.MetricsFile = f.metricsFile
	}
	return nil
}

func (a *app) loadCatalog(path string, categories []string) (*catalog.Catalog, error) {
	var cat *catalog.Catalog

	if path == "" {
		cat = catalog.Builtin()
	} else {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open catalog: %w", err)
		}
		defer fh.Close() // nolint: errcheck

		if cat, err = catalog.ReadYAML(fh); err != nil {
			return nil, err
		}
	}

	if len(categories) == 0 {
		return cat, nil
	}

	cats := make([]model.Category, 0, len(categories))
	for _, c := range categories {
		parsed, err := model.ParseCategory(c)
		if err != nil {
			return nil, err
		}
		cats = append(cats, parsed)
	}
	return cat.Filter(cats...), nil
}

func (a *app) runFetch(cmd *cobra.Command, f *fetchFlags) error {
	s := a.settings
	if err := f.applyFlags(cmd, s); err != nil {
		return err
	}

	cat, err := a.loadCatalog(f.catalogFile, f.categories)
	if err != nil {
		return err
	}

	svc, err := download.NewService(a.newDownloader(toolPath(s.YTDLPPath, platform.YTDLPCommand)), download.Options{
		OutputRoot:   s.GetOutputRoot(),
		Delay:        s.GetDelay(),
		AudioFormat:  s.GetAudioFormat(),
		AudioQuality: s.AudioQuality,
		SkipExisting: s.SkipExisting(),
		Retries:      s.GetRetries(),
		Thumbnails:   s.Thumbnails,
		InfoJSON:     s.InfoJSON,
	})
	if err != nil {
		return err
	}

	if !f.noLedger && s.LedgerPath != "" {
		l, err := ledger.Open(a.ledgerPath())
		if err != nil {
			return fmt.Errorf("cannot open ledger: %w", err)
		}
		defer l.Close() // nolint: errcheck
		svc.AddRecorder(l)
	}

	var m *metrics.Metrics
	if s.MetricsFile != "" {
		m = metrics.New()
		svc.AddRecorder(m)
	}

	out := cmd.OutOrStdout()
	svc.SetUpdateCallback(func(task *model.FetchTask) {
		if task.Status.IsFinished() {
			printFetchTask(out, task)
		} else if task.Status.IsActive() {
			a.log.Printf("[TRACE] %s: %d%% %s, ETA %s\n",
				task.Entry.ID, task.Percent, task.Speed, task.GetETAString())
		}
	})

	report, runErr := svc.Run(cmd.Context(), cat)
	if report == nil {
		return runErr
	}

	printFetchSummary(out, report)
	for _, path := range report.Produced() {
		a.log.Printf("[DEBUG] Produced %s\n", path)
	}

	if m != nil {
		if err = m.WriteTextfile(s.MetricsFile); err != nil {
			a.log.Printf("[ERROR] %s\n", err.Error())
		}
	}

	// Per-entry failures are part of the report, not of the exit status.
	return runErr
} // func (a *app) runFetch(cmd *cobra.Command, f *fetchFlags) error

func printFetchTask(w io.Writer, task *model.FetchTask) {
	var mark string
	switch task.Status {
	case model.TaskStatusCompleted:
		mark = "[ok]"
	case model.TaskStatusSkipped:
		mark = "[-] "
	case model.TaskStatusError:
		mark = "[x] "
	default:
		return
	}

	fmt.Fprintf(w, "%s %-11s %s", mark, task.Entry.Category, task.GetDisplayTitle())
	if task.Status == model.TaskStatusError {
		fmt.Fprintf(w, ": %s", task.LastError)
	}
	fmt.Fprintln(w)
}

func printFetchSummary(w io.Writer, r *model.Report) {
	fmt.Fprintf(w, "\nFetched %d of %d entries into %s (%d skipped, %d failed)\n",
		r.Succeeded(), r.Planned(), r.OutputRoot, r.Skipped(), r.Failed())

	for _, t := range r.Failures() {
		fmt.Fprintf(w, "  failed: %s %s (%s)\n", t.Entry.ID, t.Entry.Title, t.Entry.URL())
	}
	fmt.Fprintf(w, "Run id: %s\n", r.RunID)
}
