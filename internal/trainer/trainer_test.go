package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytget/phin/internal/dataset"
)

type fakeRunner struct {
	name string
	args []string
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, output io.Writer) error {
	f.name, f.args = name, args
	io.WriteString(output, "epoch 1/3 loss=2.31\n") // nolint: errcheck
	return f.err
}

func newTestTrainer(t *testing.T) *Trainer {
	t.Helper()
	tr, err := New("microsoft/DialoGPT-medium", filepath.Join(t.TempDir(), "model"))
	require.NoError(t, err)
	tr.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return tr
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestNewCreatesLayout(t *testing.T) {
	tr := newTestTrainer(t)
	for _, dir := range []string{CheckpointsDir, LogsDir} {
		assert.DirExists(t, filepath.Join(tr.OutputDir(), dir))
	}
}

func TestConfigure(t *testing.T) {
	cfg := newTestTrainer(t).Configure()
	assert.Equal(t, 2048, cfg.BlockSize)
	assert.Equal(t, 50257, cfg.VocabSize)
	assert.Equal(t, 12, cfg.NLayer)
	assert.Equal(t, 12, cfg.NHead)
	assert.Equal(t, 768, cfg.NEmbd)
	assert.Equal(t, "phin", cfg.PhinSpecific.Instrument)
	assert.Equal(t, []string{"lam_plearn", "lam_klon", "mor_lam", "phuen_ban"}, cfg.PhinSpecific.Styles)
}

func TestTrainWithSyntheticData(t *testing.T) {
	tr := newTestTrainer(t)

	path, err := tr.Train(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tr.OutputDir(), FinalModelDir), path)
	assert.DirExists(t, path)
	assert.FileExists(t, filepath.Join(tr.OutputDir(), dataset.SyntheticFileName))

	var args Args
	readJSON(t, filepath.Join(tr.OutputDir(), ConfigFileName), &args)
	assert.Equal(t, "microsoft/DialoGPT-medium", args.ModelName)
	assert.Equal(t, 3, args.Epochs)
	assert.Equal(t, 4, args.BatchSize)
	assert.InDelta(t, 5e-5, args.LearningRate, 1e-12)
	assert.True(t, args.UseLoRA)
	assert.Equal(t, 16, args.LoRARank)
	assert.Equal(t, 32, args.LoRAAlpha)
	assert.InDelta(t, 0.1, args.LoRADropout, 1e-9)
	assert.ElementsMatch(t, []string{"q_proj", "k_proj", "v_proj", "o_proj"}, args.LoRATargetModules)

	var done Completion
	readJSON(t, filepath.Join(tr.OutputDir(), CompletionFileName), &done)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, path, done.ModelPath)
	assert.Equal(t, "2024-05-01T12:00:00Z", done.Timestamp)
}

func TestTrainWithoutLoRA(t *testing.T) {
	tr := newTestTrainer(t)

	opts := DefaultOptions()
	opts.UseLoRA = false
	_, err := tr.Train(context.Background(), opts)
	require.NoError(t, err)

	var raw map[string]any
	readJSON(t, filepath.Join(tr.OutputDir(), ConfigFileName), &raw)
	assert.NotContains(t, raw, "lora_r")
	assert.NotContains(t, raw, "use_lora")
}

func TestTrainRunsCommand(t *testing.T) {
	tr := newTestTrainer(t)
	runner := &fakeRunner{}
	tr.runner = runner
	require.NoError(t, tr.SetCommand(`litgpt finetune_lora {checkpoint} --config "{config}" --epochs {epochs}`))

	_, err := tr.Train(context.Background(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "litgpt", runner.name)
	assert.Equal(t, []string{
		"finetune_lora", "microsoft/DialoGPT-medium",
		"--config", filepath.Join(tr.OutputDir(), ConfigFileName),
		"--epochs", "3",
	}, runner.args)

	logData, err := os.ReadFile(filepath.Join(tr.OutputDir(), LogsDir, TrainLogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "loss=2.31")
}

func TestTrainCommandFailure(t *testing.T) {
	tr := newTestTrainer(t)
	tr.runner = &fakeRunner{err: errors.New("exit status 1")}
	require.NoError(t, tr.SetCommand("false"))

	_, err := tr.Train(context.Background(), DefaultOptions())
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(tr.OutputDir(), CompletionFileName))
}

func TestTrainUsesGivenData(t *testing.T) {
	tr := newTestTrainer(t)
	data := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(data, []byte("{\"text\":\"a\"}\nbroken\n"), 0o644))

	opts := DefaultOptions()
	opts.DataPath = data
	_, err := tr.Train(context.Background(), opts)
	require.NoError(t, err)

	var args Args
	readJSON(t, filepath.Join(tr.OutputDir(), ConfigFileName), &args)
	assert.Equal(t, data, args.DataPath)
	assert.NoFileExists(t, filepath.Join(tr.OutputDir(), dataset.SyntheticFileName))
}

func TestTrainRejectsEmptyCorpus(t *testing.T) {
	tr := newTestTrainer(t)
	data := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(data, []byte("broken\n"), 0o644))

	opts := DefaultOptions()
	opts.DataPath = data
	_, err := tr.Train(context.Background(), opts)
	assert.True(t, errors.Is(err, ErrEmptyCorpus))
}

func TestTrainRejectsBadOptions(t *testing.T) {
	tr := newTestTrainer(t)
	opts := DefaultOptions()
	opts.Epochs = 0

	_, err := tr.Train(context.Background(), opts)
	assert.True(t, errors.Is(err, ErrInvalidOptions))
}

func TestSetCommand(t *testing.T) {
	tr := newTestTrainer(t)
	assert.NoError(t, tr.SetCommand(""))
	assert.Error(t, tr.SetCommand(`python "unterminated`))
	assert.True(t, errors.Is(tr.SetCommand("   "), ErrEmptyCommand))
}
