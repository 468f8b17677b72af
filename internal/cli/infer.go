package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/dataset"
	"github.com/ytget/phin/internal/inference"
	"gopkg.in/yaml.v3"
)

// Default generation parameters for describe
const (
	DefaultDescribeStyle  = "lam_plearn"
	DefaultDescribeRegion = "isan"
	DefaultDescribeTempo  = 120
)

// newModel connects to the inference server with the configured model, or
// the one named on the command line.
func (a *app) newModel(name string) (*inference.Model, error) {
	if name == "" {
		name = a.settings.Model
	}

	gen, err := a.newGenerator(name)
	if err != nil {
		return nil, err
	}
	return inference.New(gen)
}

func printResult(w io.Writer, asJSON bool, v any) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func newAnalyzeCommand(a *app) *cobra.Command {
	var (
		modelName string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <audio>",
		Short: "Ask the fine-tuned model to analyze a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newModel(modelName)
			if err != nil {
				return err
			}

			res, err := m.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), asJSON, res)
		},
	}

	cmd.Flags().StringVarP(&modelName, "model", "m", "", "model to query (default from settings)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	return cmd
}

func newTranscribeCommand(a *app) *cobra.Command {
	var (
		modelName string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Ask the fine-tuned model to write a recording down in Thai notation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newModel(modelName)
			if err != nil {
				return err
			}

			res, err := m.Transcribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), asJSON, res)
		},
	}

	cmd.Flags().StringVarP(&modelName, "model", "m", "", "model to query (default from settings)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	return cmd
}

func newDescribeCommand(a *app) *cobra.Command {
	var (
		modelName string
		style     string
		region    string
		tempo     int
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Generate a description of a phin style",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.newModel(modelName)
			if err != nil {
				return err
			}

			if !knownValue(dataset.Styles, style) {
				a.log.Printf("[WARN] %q is not one of the known styles\n", style)
			}
			if !knownValue(dataset.Regions, region) {
				a.log.Printf("[WARN] %q is not one of the known regions\n", region)
			}

			text, err := m.Describe(cmd.Context(), style, region, tempo)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&modelName, "model", "m", "", "model to query (default from settings)")
	fl.StringVar(&style, "style", DefaultDescribeStyle, "playing style")
	fl.StringVar(&region, "region", DefaultDescribeRegion, "region of Thailand")
	fl.IntVar(&tempo, "tempo", DefaultDescribeTempo, "tempo in BPM")
	return cmd
}

func knownValue(values []string, v string) bool {
	for _, known := range values {
		if known == v {
			return true
		}
	}
	return false
}
