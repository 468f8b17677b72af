package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/ytget/phin/internal/common"
	"github.com/ytget/phin/internal/dataset"
	"github.com/ytget/phin/internal/logdomain"
	"github.com/ytget/phin/internal/platform"
)

// Output layout
const (
	CheckpointsDir     = "checkpoints"
	LogsDir            = "logs"
	FinalModelDir      = "final_model"
	ConfigFileName     = "training_config.json"
	CompletionFileName = "training_completed.json"
	TrainLogFileName   = "train.log"
	StatusCompleted    = "completed"
)

// Command template placeholders
const (
	PlaceholderConfig     = "{config}"
	PlaceholderData       = "{data}"
	PlaceholderOutput     = "{output}"
	PlaceholderCheckpoint = "{checkpoint}"
	PlaceholderEpochs     = "{epochs}"
)

var (
	// ErrEmptyCorpus is returned when the training data has no usable record.
	ErrEmptyCorpus = errors.New("training data contains no valid records")

	// ErrInvalidOptions is returned for non-positive epochs, batch size or rate.
	ErrInvalidOptions = errors.New("invalid training options")

	// ErrEmptyCommand is returned for a trainer command without a program.
	ErrEmptyCommand = errors.New("trainer command is empty")
)

// Runner executes the external trainer.
type Runner interface {
	Run(ctx context.Context, name string, args []string, output io.Writer) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, output io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = output
	cmd.Stderr = output
	return cmd.Run()
}

// Trainer is the handle of one checkpoint and output directory.
type Trainer struct {
	checkpoint string
	outputDir  string
	command    []string
	runner     Runner
	log        *log.Logger
	now        func() time.Time
}

// New initializes a trainer for checkpoint, creating outputDir and its
// checkpoints and logs subdirectories.
func New(checkpoint, outputDir string) (*Trainer, error) {
	l, err := common.GetLogger(logdomain.Trainer)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{
		outputDir,
		filepath.Join(outputDir, CheckpointsDir),
		filepath.Join(outputDir, LogsDir),
	} {
		if err = platform.CreateDirectoryIfNotExists(dir); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}

	l.Printf("[INFO] Initialized trainer for %s in %s\n", checkpoint, outputDir)

	return &Trainer{
		checkpoint: checkpoint,
		outputDir:  outputDir,
		runner:     execRunner{},
		log:        l,
		now:        time.Now,
	}, nil
}

// OutputDir returns the directory the trainer writes to.
func (t *Trainer) OutputDir() string {
	return t.outputDir
}

// SetCommand sets the external trainer command. The template is split with
// shell quoting rules; {config}, {data}, {output}, {checkpoint} and
// {epochs} arguments are replaced when the command runs. An empty template
// disables the external trainer.
func (t *Trainer) SetCommand(template string) error {
	if template == "" {
		t.command = nil
		return nil
	}

	args, err := shlex.Split(template, true)
	if err != nil {
		return fmt.Errorf("cannot parse trainer command %q: %w", template, err)
	} else if len(args) == 0 {
		return ErrEmptyCommand
	}

	t.command = args
	return nil
}

// Configure returns the model configuration used for fine-tuning.
func (t *Trainer) Configure() ModelConfig {
	return ModelConfig{
		BlockSize: DefaultBlockSize,
		VocabSize: DefaultVocabSize,
		NLayer:    DefaultNLayer,
		NHead:     DefaultNHead,
		NEmbd:     DefaultNEmbd,
		PhinSpecific: DomainConfig{
			Domain:        "thai_music",
			Instrument:    "phin",
			Styles:        append([]string(nil), dataset.Styles[:4]...),
			Regions:       append([]string(nil), dataset.Regions...),
			TuningSystems: []string{"7_tone_equal", "traditional_thai"},
			Applications:  []string{"transcription", "analysis", "education", "preservation"},
		},
	}
}

// Train records a training run and returns the path of the final model.
// Without training data a synthetic seed corpus is written first.
func (t *Trainer) Train(ctx context.Context, opts Options) (string, error) {
	if opts.Epochs <= 0 || opts.BatchSize <= 0 || opts.LearningRate <= 0 {
		return "", fmt.Errorf("%w: epochs=%d batch_size=%d learning_rate=%g",
			ErrInvalidOptions, opts.Epochs, opts.BatchSize, opts.LearningRate)
	}

	t.log.Printf("[INFO] Starting training of %s\n", t.checkpoint)

	dataPath, err := t.prepareData(opts.DataPath)
	if err != nil {
		return "", err
	}

	args := t.buildArgs(dataPath, opts)

	configPath := filepath.Join(t.outputDir, ConfigFileName)
	if err = writeJSON(configPath, args); err != nil {
		return "", err
	}
	t.log.Printf("[INFO] Training configuration saved: %s\n", configPath)

	if len(t.command) > 0 {
		if err = t.runCommand(ctx, configPath, dataPath, opts); err != nil {
			return "", err
		}
	} else {
		t.log.Printf("[INFO] No trainer command configured, recording configuration only\n")
	}

	finalModel := filepath.Join(t.outputDir, FinalModelDir)
	if err = platform.CreateDirectoryIfNotExists(finalModel); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", finalModel, err)
	}

	completion := Completion{
		Status:       StatusCompleted,
		ModelPath:    finalModel,
		TrainingArgs: args,
		Timestamp:    t.now().Format(time.RFC3339),
	}
	if err = writeJSON(filepath.Join(t.outputDir, CompletionFileName), completion); err != nil {
		return "", err
	}

	t.log.Printf("[INFO] Training completed, model saved to %s\n", finalModel)
	return finalModel, nil
} // func (t *Trainer) Train(ctx context.Context, opts Options) (string, error)

// prepareData checks the corpus at path, or writes the synthetic corpus
// when path is empty or missing.
func (t *Trainer) prepareData(path string) (string, error) {
	exists := false
	if path != "" {
		var err error
		if exists, err = platform.FileExists(path); err != nil {
			return "", err
		}
	}

	if !exists {
		synthetic := filepath.Join(t.outputDir, dataset.SyntheticFileName)
		if path != "" {
			t.log.Printf("[WARN] Training data %s not found, using synthetic corpus\n", path)
		}
		err := dataset.WriteFile(synthetic, func(w io.Writer) error {
			return dataset.WriteJSONL(w, dataset.Synthetic())
		})
		if err != nil {
			return "", err
		}
		t.log.Printf("[INFO] Created synthetic training corpus: %s\n", synthetic)
		path = synthetic
	}

	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open training data: %w", err)
	}
	defer fh.Close() // nolint: errcheck

	v, err := dataset.ValidateJSONL(fh)
	if err != nil {
		return "", err
	}
	for _, line := range v.Invalid {
		t.log.Printf("[WARN] Invalid record at %s:%d\n", path, line)
	}
	if v.Valid == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyCorpus, path)
	}

	t.log.Printf("[INFO] Validated %d training examples\n", v.Valid)
	return path, nil
}

func (t *Trainer) buildArgs(dataPath string, opts Options) Args {
	args := Args{
		ModelName:    t.checkpoint,
		DataPath:     dataPath,
		OutputDir:    t.outputDir,
		Epochs:       opts.Epochs,
		BatchSize:    opts.BatchSize,
		LearningRate: opts.LearningRate,
		WarmupSteps:  opts.WarmupSteps,
		SaveSteps:    opts.SaveSteps,
		EvalSteps:    opts.EvalSteps,
		Device:       opts.Device,
		Model:        t.Configure(),
	}

	if args.Device == "" {
		args.Device = DefaultDevice
	}

	if opts.UseLoRA {
		args.UseLoRA = true
		args.LoRARank = opts.LoRARank
		args.LoRAAlpha = opts.LoRAAlpha
		if args.LoRARank <= 0 {
			args.LoRARank = DefaultLoRARank
		}
		if args.LoRAAlpha <= 0 {
			args.LoRAAlpha = DefaultLoRAAlpha
		}
		args.LoRADropout = DefaultLoRADropout
		args.LoRATargetModules = append([]string(nil), LoRATargetModules...)
	}

	return args
}

func (t *Trainer) runCommand(ctx context.Context, configPath, dataPath string, opts Options) error {
	values := map[string]string{
		PlaceholderConfig:     configPath,
		PlaceholderData:       dataPath,
		PlaceholderOutput:     t.outputDir,
		PlaceholderCheckpoint: t.checkpoint,
		PlaceholderEpochs:     strconv.Itoa(opts.Epochs),
	}

	argv := make([]string, len(t.command))
	for i, arg := range t.command {
		if val, ok := values[arg]; ok {
			argv[i] = val
		} else {
			argv[i] = arg
		}
	}

	logPath := filepath.Join(t.outputDir, LogsDir, TrainLogFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", logPath, err)
	}
	defer logFile.Close() // nolint: errcheck

	t.log.Printf("[INFO] Running trainer %s, output in %s\n", argv[0], logPath)

	if err = t.runner.Run(ctx, argv[0], argv[1:], logFile); err != nil {
		t.log.Printf("[ERROR] Trainer failed: %s\n", err.Error())
		return fmt.Errorf("trainer command failed (see %s): %w", logPath, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	return dataset.WriteFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}
