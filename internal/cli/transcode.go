package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/metrics"
	"github.com/ytget/phin/internal/model"
	"github.com/ytget/phin/internal/transcode"
)

func newTranscodeCommand(a *app) *cobra.Command {
	var (
		pattern     string
		params      transcode.Params
		list        bool
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "transcode <recipe> [dir]",
		Short: "Run a postprocessing recipe over the audio files of a directory",
		Long: `Run an ffmpeg recipe over every file in dir matching the pattern. Without
dir the recipe runs over the category directories of the output root. Each
input produces <name>-<suffix>.<ext> next to it; the segment recipe produces
<name>-seg_000.wav, <name>-seg_001.wav and so on. Files produced by a recipe
are not processed again.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				return printRecipes(out)
			}

			recipe, err := transcode.Lookup(args[0])
			if err != nil {
				return err
			}

			dir := a.settings.GetOutputRoot()
			if len(args) == 2 {
				dir = args[1]
			} else if !cmd.Flags().Changed("pattern") {
				// fetch writes one directory per category
				pattern = filepath.Join("*", pattern)
			}

			svc, err := a.newTranscoder(a.settings.FFmpegPath, a.settings.FFprobePath)
			if err != nil {
				return err
			}

			if metricsFile == "" {
				metricsFile = a.settings.MetricsFile
			}

			var m *metrics.Metrics
			if metricsFile != "" {
				m = metrics.New()
			}

			svc.SetUpdateCallback(func(task *model.TranscodeTask) {
				printTranscodeTask(out, task)
			})

			tasks, runErr := svc.ProcessDir(cmd.Context(), dir, pattern, recipe, params)
			sum := transcode.Summarize(tasks)
			fmt.Fprintf(out, "\nApplied %s to %d of %d files in %s (%d failed, %d stopped)\n",
				recipe.Name, sum.Completed, len(tasks), dir, sum.Failed, sum.Stopped)

			if m != nil {
				for _, t := range tasks {
					m.ObserveTranscode(t)
				}
				if err = m.WriteTextfile(metricsFile); err != nil {
					a.log.Printf("[ERROR] %s\n", err.Error())
				}
			}

			return runErr
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&pattern, "pattern", "p", transcode.DefaultPattern, "glob selecting the input files")
	fl.StringVar(&params.Start, "start", "", "start offset for the trim recipe (e.g. 00:00:30)")
	fl.StringVar(&params.Duration, "duration", "", "length for the trim recipe (e.g. 60)")
	fl.StringVar(&params.SegmentLength, "segment-length", transcode.DefaultSegmentLength, "segment length in seconds for the segment recipe")
	fl.BoolVarP(&list, "list", "l", false, "list the available recipes")
	fl.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

func printRecipes(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECIPE\tOUTPUT\tDESCRIPTION")
	for _, r := range transcode.Recipes() {
		fmt.Fprintf(tw, "%s\t*-%s.%s\t%s\n", r.Name, r.Suffix, r.Ext, r.Description)
	}
	return tw.Flush()
}

func printTranscodeTask(w io.Writer, task *model.TranscodeTask) {
	switch task.Status {
	case model.TaskStatusCompleted:
		fmt.Fprintf(w, "[ok] %s\n", task.OutputPath)
	case model.TaskStatusError:
		fmt.Fprintf(w, "[x]  %s: %s\n", task.InputPath, task.LastError)
	}
}
