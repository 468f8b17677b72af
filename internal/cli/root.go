// Package cli implements the phin command line interface.
package cli

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/common"
	"github.com/ytget/phin/internal/config"
	"github.com/ytget/phin/internal/download"
	"github.com/ytget/phin/internal/inference"
	"github.com/ytget/phin/internal/logdomain"
	"github.com/ytget/phin/internal/platform"
	"github.com/ytget/phin/internal/transcode"
)

// Version is set during build via -ldflags "-X github.com/ytget/phin/internal/cli.Version=X.Y.Z"
var Version = "dev"

// app carries the state shared by all commands of one invocation.
type app struct {
	configPath string
	logLevel   string
	settings   *config.Settings
	log        *log.Logger

	// Factories for the external tools, replaced in tests.
	newDownloader func(executable string) download.Downloader
	newGenerator  func(model string) (inference.Generator, error)
	newTranscoder func(ffmpeg, ffprobe string) (*transcode.Service, error)
	checkTool     func(ctx context.Context, name, versionFlag string) platform.ToolStatus
}

func newApp() *app {
	return &app{
		newDownloader: func(executable string) download.Downloader {
			return download.NewYTDLP(executable)
		},
		newGenerator: func(model string) (inference.Generator, error) {
			return inference.NewOllamaGenerator(model)
		},
		newTranscoder: transcode.NewService,
		checkTool:     platform.CheckTool,
	}
}

// NewRootCommand builds the phin command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           common.AppName,
		Short:         "Build a Thai phin music dataset",
		Long:          "Fetch the curated phin catalog with yt-dlp, postprocess the audio with ffmpeg, build training corpora and drive fine-tuning and inference.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file (default "+config.DefaultConfigFile+" if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "minimum log level (TRACE, DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(
		newFetchCommand(a),
		newCatalogCommand(a),
		newTranscodeCommand(a),
		newDatasetCommand(a),
		newTrainCommand(a),
		newAnalyzeCommand(a),
		newTranscribeCommand(a),
		newDescribeCommand(a),
		newReportCommand(a),
		newDoctorCommand(a),
	)

	return root
}

// load reads the settings; the log level flag wins over every other source.
func (a *app) load() error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		s.LogLevel = a.logLevel
		if err = common.SetLogLevel(a.logLevel); err != nil {
			return err
		}
	}

	a.settings = s
	if a.log, err = common.GetLogger(logdomain.CLI); err != nil {
		return err
	}

	a.log.Printf("[DEBUG] Output root %s, delay %s, existing files: %s\n",
		s.OutputRoot, s.Delay, s.Existing)
	return nil
}

// ledgerPath resolves the ledger location; relative paths live below the
// output root.
func (a *app) ledgerPath() string {
	p := a.settings.LedgerPath
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.settings.GetOutputRoot(), p)
}

// toolPath returns the configured path of an external tool, or "" when
// the tool should be looked up in PATH.
func toolPath(configured, name string) string {
	if configured == name {
		return ""
	}
	return configured
}

// Execute runs the command line with ctx and reports errors on stderr.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %s\n", err.Error())
	}
	return err
}
