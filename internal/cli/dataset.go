package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/dataset"
	"github.com/ytget/phin/internal/transcode"
)

func newDatasetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build training corpora from the downloaded audio",
	}

	cmd.AddCommand(
		newDatasetBuildCommand(a),
		newDatasetLitGPTCommand(a),
		newDatasetSyntheticCommand(a),
		newDatasetValidateCommand(a),
	)
	return cmd
}

// datasetDir is the directory the corpora are written to by default: the
// parent of the output root.
func (a *app) datasetDir() string {
	return filepath.Dir(filepath.Clean(a.settings.GetOutputRoot()))
}

func (a *app) datasetPath(flag, name string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(a.datasetDir(), name)
}

func newDatasetBuildCommand(a *app) *cobra.Command {
	var (
		out        string
		litgpt     bool
		recipeName string
	)

	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Describe every audio file below dir in a dataset JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.settings.GetOutputRoot()
			if len(args) == 1 {
				dir = args[0]
			}

			prober, err := a.newTranscoder(a.settings.FFmpegPath, a.settings.FFprobePath)
			if err != nil {
				return err
			}

			b, err := dataset.NewBuilder(prober, a.settings.SampleRate)
			if err != nil {
				return err
			}

			if recipeName != "" {
				recipe, err := transcode.Lookup(recipeName)
				if err != nil {
					return err
				}
				b.SetFilter(recipe.IsDerived)
			}

			entries, err := b.Build(cmd.Context(), dir)
			if err != nil {
				return err
			}

			path := a.datasetPath(out, dataset.DatasetFileName)
			if err = dataset.WriteFile(path, func(w io.Writer) error {
				return dataset.WriteJSON(w, entries)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entries to %s\n", len(entries), path)

			if !litgpt {
				return nil
			}

			lpath := filepath.Join(filepath.Dir(path), dataset.LitGPTFileName)
			return writeCorpus(cmd.OutOrStdout(), lpath, dataset.ToLitGPT(entries))
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "dataset file (default <output root>/../"+dataset.DatasetFileName+")")
	cmd.Flags().BoolVar(&litgpt, "litgpt", false, "also write the LitGPT corpus next to the dataset")
	cmd.Flags().StringVar(&recipeName, "recipe", "", "use the outputs of this recipe instead of the downloaded recordings")
	return cmd
}

func newDatasetLitGPTCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "litgpt [dataset.json]",
		Short: "Convert a dataset JSON file into a LitGPT JSONL corpus",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := a.datasetPath("", dataset.DatasetFileName)
			if len(args) == 1 {
				in = args[0]
			}

			entries, err := dataset.ReadJSONFile(in)
			if err != nil {
				return err
			}

			return writeCorpus(cmd.OutOrStdout(), a.datasetPath(out, dataset.LitGPTFileName), dataset.ToLitGPT(entries))
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "corpus file (default <output root>/../"+dataset.LitGPTFileName+")")
	return cmd
}

func newDatasetSyntheticCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "synthetic",
		Short: "Write the seed corpus of style and region descriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeCorpus(cmd.OutOrStdout(), a.datasetPath(out, dataset.SyntheticFileName), dataset.Synthetic())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "corpus file (default <output root>/../"+dataset.SyntheticFileName+")")
	return cmd
}

func newDatasetValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <corpus.jsonl>",
		Short: "Check that every line of a corpus is a record with text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close() // nolint: errcheck

			v, err := dataset.ValidateJSONL(fh)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d valid records, %d invalid\n", v.Valid, len(v.Invalid))
			if len(v.Invalid) == 0 {
				return nil
			}

			lines := make([]string, len(v.Invalid))
			for i, n := range v.Invalid {
				lines[i] = fmt.Sprint(n)
			}
			a.log.Printf("[DEBUG] Invalid lines in %s: %s\n", args[0], strings.Join(lines, ", "))
			return fmt.Errorf("%s has %d invalid lines, first at line %d", args[0], len(v.Invalid), v.Invalid[0])
		},
	}
}

func writeCorpus(w io.Writer, path string, records []dataset.Record) error {
	if err := dataset.WriteFile(path, func(out io.Writer) error {
		return dataset.WriteJSONL(out, records)
	}); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %d records to %s\n", len(records), path)
	return nil
}
