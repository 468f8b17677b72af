package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytget/phin/internal/catalog"
	"github.com/ytget/phin/internal/download"
	"github.com/ytget/phin/internal/inference"
	"github.com/ytget/phin/internal/ledger"
	"github.com/ytget/phin/internal/platform"
	"github.com/ytget/phin/internal/transcode"
)

type fakeDownloader struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeDownloader) Download(_ context.Context, req download.Request) error {
	f.mu.Lock()
	f.calls = append(f.calls, req.Entry.ID)
	f.mu.Unlock()

	if f.fail[req.Entry.ID] {
		return errors.New("ERROR: [youtube] Video unavailable")
	}
	return os.WriteFile(req.OutputStem+"."+req.AudioFormat, []byte("RIFF"), 0o644)
}

type fakeGenerator struct {
	prompts []inference.Request
	text    string
}

func (g *fakeGenerator) Generate(_ context.Context, req inference.Request) (string, error) {
	g.prompts = append(g.prompts, req)
	return g.text, nil
}

// fakeFFmpeg writes the output file of every ffmpeg call and reports a
// fixed duration for ffprobe.
type fakeFFmpeg struct {
	mu      sync.Mutex
	outputs []string
}

func (f *fakeFFmpeg) Run(_ context.Context, _ string, args []string, _ func(string)) error {
	out := args[len(args)-1]
	f.mu.Lock()
	f.outputs = append(f.outputs, out)
	f.mu.Unlock()
	return os.WriteFile(out, []byte("RIFF"), 0o644)
}

func (f *fakeFFmpeg) Output(_ context.Context, _ string, _ []string) ([]byte, error) {
	return []byte("12.5\n"), nil
}

func withFFmpeg(a *app, r transcode.Runner) *app {
	a.newTranscoder = func(ffmpeg, ffprobe string) (*transcode.Service, error) {
		s, err := transcode.NewService(ffmpeg, ffprobe)
		if err == nil {
			s.SetRunner(r)
		}
		return s, err
	}
	return a
}

// testEnv is a configuration file pointing all outputs into a temp dir.
type testEnv struct {
	dir    string
	config string
	root   string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	dir := t.TempDir()
	env := testEnv{
		dir:    dir,
		config: filepath.Join(dir, "phin.yaml"),
		root:   filepath.Join(dir, "dataset", "raw_audio"),
	}

	cfg := fmt.Sprintf("output_root: %s\ndelay: 0s\nledger_path: %s\nlog_level: ERROR\n",
		env.root, filepath.Join(dir, "phin.db"))
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))
	return env
}

func (env testEnv) writeCatalog(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(env.dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func newTestApp(dl download.Downloader, gen inference.Generator) *app {
	a := newApp()
	if dl != nil {
		a.newDownloader = func(string) download.Downloader { return dl }
	}
	if gen != nil {
		a.newGenerator = func(string) (inference.Generator, error) { return gen, nil }
	}
	return a
}

func execute(t *testing.T, a *app, env testEnv, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCommand(a)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", env.config}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

const testCatalog = `entries:
  - id: aaa
    category: basics
    title: First Lesson
  - id: bbb
    category: hae
    title: Lai Hae
  - id: ccc
    category: covers
    title: A Cover
`

func TestCatalogListTable(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, newTestApp(nil, nil), env, "catalog", "list", "--category", "hae")
	require.NoError(t, err)

	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "Lai Hae Bang Fai")
	assert.NotContains(t, out, "Phin Lesson 1")
	assert.Contains(t, out, filepath.Join(env.root, "hae", "Lai_Hae_Bang_Fai.wav"))
}

func TestCatalogListYAML(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, newTestApp(nil, nil), env, "catalog", "list", "--format", "yaml")
	require.NoError(t, err)

	cat, err := catalog.ReadYAML(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, catalog.Builtin().Entries(), cat.Entries())
}

func TestCatalogValidateRejectsCollisions(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeCatalog(t, `entries:
  - id: aaa
    category: basics
    title: Same Title
  - id: bbb
    category: basics
    title: Same  Title
`)

	_, err := execute(t, newTestApp(nil, nil), env, "catalog", "validate", path)
	assert.ErrorIs(t, err, catalog.ErrPathCollision)
}

func TestFetchReportsFailuresWithoutError(t *testing.T) {
	env := newTestEnv(t)
	catPath := env.writeCatalog(t, testCatalog)
	dl := &fakeDownloader{fail: map[string]bool{"bbb": true}}

	out, err := execute(t, newTestApp(dl, nil), env, "fetch", "--catalog", catPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, dl.calls)
	assert.Contains(t, out, "Fetched 2 of 3 entries")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "https://www.youtube.com/watch?v=bbb")
	assert.FileExists(t, filepath.Join(env.root, "basics", "First_Lesson.wav"))
	assert.FileExists(t, filepath.Join(env.root, "covers", "A_Cover.wav"))

	out, err = execute(t, newTestApp(nil, nil), env, "report", "latest")
	require.NoError(t, err)
	assert.Contains(t, out, "3 planned, 2 fetched, 0 skipped, 1 failed")
	assert.Contains(t, out, "bbb")
	assert.NotContains(t, out, "First Lesson")

	out, err = execute(t, newTestApp(nil, nil), env, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "PLANNED")
}

func TestFetchSkipExisting(t *testing.T) {
	env := newTestEnv(t)
	catPath := env.writeCatalog(t, testCatalog)

	existing := filepath.Join(env.root, "hae", "Lai_Hae.wav")
	require.NoError(t, platform.CreateDirectoryIfNotExists(filepath.Dir(existing)))
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o644))

	dl := &fakeDownloader{}
	out, err := execute(t, newTestApp(dl, nil), env, "fetch", "--catalog", catPath, "--skip-existing", "--no-ledger")
	require.NoError(t, err)

	assert.Equal(t, []string{"aaa", "ccc"}, dl.calls)
	assert.Contains(t, out, "(1 skipped, 0 failed)")
	assert.NoFileExists(t, filepath.Join(env.dir, "phin.db"))
}

func TestFetchRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	dl := &fakeDownloader{}

	_, err := execute(t, newTestApp(dl, nil), env, "fetch", "--category", "rock")
	require.Error(t, err)
	assert.Empty(t, dl.calls)
}

func TestReportWithoutLedger(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, newTestApp(nil, nil), env, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run fetch first")
}

func TestTranscodeListRecipes(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, newTestApp(nil, nil), env, "transcode", "--list")
	require.NoError(t, err)
	for _, name := range []string{"resample", "normalize", "trim", "mp3", "segment"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "*-22k.wav")
}

func TestTranscodeAfterFetch(t *testing.T) {
	env := newTestEnv(t)
	catPath := env.writeCatalog(t, testCatalog)

	_, err := execute(t, newTestApp(&fakeDownloader{}, nil), env, "fetch", "--catalog", catPath)
	require.NoError(t, err)

	ff := &fakeFFmpeg{}
	out, err := execute(t, withFFmpeg(newTestApp(nil, nil), ff), env, "transcode", "resample")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied resample to 3 of 3 files")
	assert.Len(t, ff.outputs, 3)
	for _, p := range []string{
		filepath.Join(env.root, "basics", "First_Lesson-22k.wav"),
		filepath.Join(env.root, "hae", "Lai_Hae-22k.wav"),
		filepath.Join(env.root, "covers", "A_Cover-22k.wav"),
	} {
		assert.FileExists(t, p)
	}

	// a second run leaves the outputs of the first alone
	out, err = execute(t, withFFmpeg(newTestApp(nil, nil), ff), env, "transcode", "normalize")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied normalize to 3 of 3 files")

	dsPath := filepath.Join(env.dir, "dataset.json")
	out, err = execute(t, withFFmpeg(newTestApp(nil, nil), ff), env, "dataset", "build", "--out", dsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 entries")

	out, err = execute(t, withFFmpeg(newTestApp(nil, nil), ff), env, "dataset", "build", "--recipe", "resample", "--out", dsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 entries")
	data, err := os.ReadFile(dsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "First_Lesson-22k.wav")
	assert.NotContains(t, string(data), "First_Lesson-norm.wav")
}

func TestTranscodeUnknownRecipe(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, newTestApp(nil, nil), env, "transcode", "reverb", env.dir)
	require.Error(t, err)
}

func TestDatasetSynthetic(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "corpus.jsonl")

	out, err := execute(t, newTestApp(nil, nil), env, "dataset", "synthetic", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 13 records to "+path)

	out, err = execute(t, newTestApp(nil, nil), env, "dataset", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "13 valid records, 0 invalid")
}

func TestDatasetValidateReportsInvalidLines(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "broken.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"text\":\"ok\"}\nnot json\n"), 0o644))

	_, err := execute(t, newTestApp(nil, nil), env, "dataset", "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestTrainPrintConfig(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, newTestApp(nil, nil), env, "train", "--print-config", "-o", filepath.Join(env.dir, "model"))
	require.NoError(t, err)
	assert.Contains(t, out, `"block_size": 2048`)
	assert.Contains(t, out, `"instrument": "phin"`)
}

func TestTrainWithoutCommand(t *testing.T) {
	env := newTestEnv(t)
	output := filepath.Join(env.dir, "model")

	out, err := execute(t, newTestApp(nil, nil), env, "train", "-o", output, "--epochs", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Model saved to "+filepath.Join(output, "final_model"))
	assert.FileExists(t, filepath.Join(output, "training_config.json"))
	assert.FileExists(t, filepath.Join(output, "training_completed.json"))
}

func TestAnalyzePrintsYAML(t *testing.T) {
	env := newTestEnv(t)
	audio := filepath.Join(env.dir, "song.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))
	gen := &fakeGenerator{text: "A slow lam phloen."}

	out, err := execute(t, newTestApp(nil, gen), env, "analyze", audio)
	require.NoError(t, err)

	assert.Contains(t, out, "analysis: A slow lam phloen.")
	assert.Contains(t, out, "style: phin_analysis")
	assert.Contains(t, out, "confidence: 0.85")
	require.Len(t, gen.prompts, 1)
	assert.Equal(t, 512, gen.prompts[0].MaxTokens)
}

func TestTranscribeMissingAudio(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{text: "do re mi"}

	_, err := execute(t, newTestApp(nil, gen), env, "transcribe", filepath.Join(env.dir, "missing.wav"))
	assert.ErrorIs(t, err, inference.ErrNoAudio)
	assert.Empty(t, gen.prompts)
}

func TestDescribe(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{text: "Lam plearn is a narrative style."}

	out, err := execute(t, newTestApp(nil, gen), env, "describe", "--style", "lam_plearn", "--region", "isan", "--tempo", "100")
	require.NoError(t, err)

	assert.Equal(t, "Lam plearn is a narrative style.\n", out)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0].Prompt, "tempo 100 BPM")
}

func TestDescribeRejectsTempo(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, newTestApp(nil, &fakeGenerator{text: "x"}), env, "describe", "--tempo", "0")
	assert.ErrorIs(t, err, inference.ErrInvalidTempo)
}

func TestDoctorReportsMissingTools(t *testing.T) {
	env := newTestEnv(t)
	a := newTestApp(nil, &fakeGenerator{})
	a.checkTool = func(_ context.Context, name, _ string) platform.ToolStatus {
		if name == platform.FFprobeCommand {
			return platform.ToolStatus{Name: name, Err: fmt.Errorf("%s not found", name)}
		}
		return platform.ToolStatus{Name: name, Path: "/usr/bin/" + name, Version: name + " version 1"}
	}

	out, err := execute(t, a, env, "doctor")
	assert.ErrorIs(t, err, ErrMissingTools)
	assert.Contains(t, out, "[ok]  yt-dlp version 1 (/usr/bin/yt-dlp)")
	assert.Contains(t, out, "[x]   ffprobe not found")
	assert.Contains(t, out, "[!]   No ledger yet at "+filepath.Join(env.dir, "phin.db"))
	assert.NoFileExists(t, filepath.Join(env.dir, "phin.db"))

	l, err := ledger.Open(filepath.Join(env.dir, "phin.db"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	out, err = execute(t, a, env, "doctor")
	assert.ErrorIs(t, err, ErrMissingTools)
	assert.Contains(t, out, "[ok]  Ledger: "+filepath.Join(env.dir, "phin.db"))
}

func TestToolPath(t *testing.T) {
	assert.Equal(t, "", toolPath("yt-dlp", "yt-dlp"))
	assert.Equal(t, "/opt/bin/yt-dlp", toolPath("/opt/bin/yt-dlp", "yt-dlp"))
}
