package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/ledger"
	"github.com/ytget/phin/internal/model"
	"github.com/ytget/phin/internal/platform"
)

const reportTimeFormat = "2006-01-02 15:04:05"

func newReportCommand(a *app) *cobra.Command {
	var (
		all   bool
		video string
	)

	cmd := &cobra.Command{
		Use:   "report [run-id|latest]",
		Short: "Show recorded fetch runs and their failures",
		Long: `Without arguments, list the fetch runs recorded in the ledger, newest first.
With a run id (or "latest"), show that run and the entries that failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.openLedger()
			if err != nil {
				return err
			}
			defer l.Close() // nolint: errcheck

			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			switch {
			case video != "":
				tasks, err := l.History(ctx, video)
				if err != nil {
					return err
				}
				return printTaskTable(out, tasks)
			case len(args) == 0:
				runs, err := l.Runs(ctx)
				if err != nil {
					return err
				}
				return printRunTable(out, runs)
			}

			run, err := l.Run(ctx, args[0])
			if err != nil {
				return err
			}
			printRun(out, run)

			var tasks []model.FetchTask
			if all {
				tasks, err = l.Tasks(ctx, run.RunID)
			} else {
				tasks, err = l.Failures(ctx, run.RunID)
			}
			if err != nil {
				return err
			} else if len(tasks) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			return printTaskTable(out, tasks)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "show every entry of the run, not only failures")
	cmd.Flags().StringVar(&video, "video", "", "show every recorded attempt to fetch this video id")
	return cmd
}

// openLedger opens the existing ledger; it is not created by read-only
// commands.
func (a *app) openLedger() (*ledger.Ledger, error) {
	path := a.ledgerPath()
	if path == "" {
		return nil, fmt.Errorf("no ledger configured")
	}

	exists, err := platform.FileExists(path)
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("no ledger at %s, run fetch first", path)
	}

	return ledger.Open(path)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(reportTimeFormat)
}

func printRunTable(w io.Writer, runs []ledger.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tFINISHED\tPLANNED\tOK\tSKIPPED\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.RunID, formatTime(r.Started), formatTime(r.Finished),
			r.Planned, r.Succeeded, r.Skipped, r.Failed)
	}
	return tw.Flush()
}

func printRun(w io.Writer, r *ledger.Run) {
	fmt.Fprintf(w, "Run:      %s\n", r.RunID)
	fmt.Fprintf(w, "Output:   %s\n", r.OutputRoot)
	fmt.Fprintf(w, "Started:  %s\n", formatTime(r.Started))
	if r.Done() {
		fmt.Fprintf(w, "Finished: %s (%s)\n", formatTime(r.Finished),
			r.Finished.Sub(r.Started).Round(time.Second))
	} else {
		fmt.Fprintln(w, "Finished: not finished")
	}
	fmt.Fprintf(w, "Entries:  %d planned, %d fetched, %d skipped, %d failed\n",
		r.Planned, r.Succeeded, r.Skipped, r.Failed)
}

func printTaskTable(w io.Writer, tasks []model.FetchTask) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCATEGORY\tVIDEO\tTITLE\tSIZE\tERROR")
	for _, t := range tasks {
		size := "-"
		if t.FileSize > 0 {
			size = platform.FormatSize(t.FileSize)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Status, t.Entry.Category, t.Entry.ID, t.GetDisplayTitle(), size, t.LastError)
	}
	return tw.Flush()
}
