package dataset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber map[string]float64

func (f fakeProber) ProbeDuration(_ context.Context, path string) (float64, error) {
	if d, ok := f[filepath.Base(path)]; ok {
		return d, nil
	}
	return 0, errors.New("ffprobe failed")
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "basics", "Lesson_One.wav"))
	touch(t, filepath.Join(root, "hae", "Lai_Hae.mp3"))
	touch(t, filepath.Join(root, "hae", "notes.txt"))

	b, err := NewBuilder(fakeProber{"Lesson_One.wav": 61.5}, 22050)
	require.NoError(t, err)

	entries, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "Lesson_One.wav", first.Filename)
	assert.Equal(t, 61.5, first.Duration)
	assert.Equal(t, 22050, first.SampleRate)
	assert.Contains(t, first.Text, "Title: Lesson One")
	assert.Contains(t, first.Text, "Category: basics")
	assert.Contains(t, first.Text, "Duration: 61.5 seconds")

	// Unprobeable files stay in the dataset.
	assert.Equal(t, 0.0, entries[1].Duration)
	assert.NotContains(t, entries[1].Text, "Duration:")
}

func TestBuildEmptyDir(t *testing.T) {
	b, err := NewBuilder(fakeProber{}, 22050)
	require.NoError(t, err)

	_, err = b.Build(context.Background(), t.TempDir())
	assert.True(t, errors.Is(err, ErrNoAudio))
}

func TestBuildSkipsRecipeOutputs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"Lai_Hae.wav",
		"Lai_Hae-22k.wav",
		"Lai_Hae-norm.wav",
		"Lai_Hae-mp3.mp3",
		"Lai_Hae-seg_000.wav",
		"Lai_Hae-seg_001.wav",
	} {
		touch(t, filepath.Join(root, "hae", name))
	}

	b, err := NewBuilder(fakeProber{}, 22050)
	require.NoError(t, err)

	entries, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Lai_Hae.wav", entries[0].Filename)

	b.SetFilter(func(path string) bool {
		return strings.Contains(filepath.Base(path), "-seg_")
	})
	entries, err = b.Build(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Lai_Hae-seg_000.wav", entries[0].Filename)
	assert.Equal(t, "Lai_Hae-seg_001.wav", entries[1].Filename)

	b.SetFilter(func(string) bool { return false })
	_, err = b.Build(context.Background(), root)
	assert.True(t, errors.Is(err, ErrNoAudio))
}

func TestJSONRoundTrip(t *testing.T) {
	entries := []Entry{
		{AudioPath: "/a/b.wav", Text: "ลายลำเพลิน <phin>", Filename: "b.wav", Duration: 1.5, SampleRate: 22050},
	}

	path := filepath.Join(t.TempDir(), "out", DatasetFileName)
	require.NoError(t, WriteFile(path, func(w io.Writer) error { return WriteJSON(w, entries) }))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"audio_path": "/a/b.wav"`)
	assert.Contains(t, string(data), "ลายลำเพลิน <phin>")

	back, err := ReadJSONFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, back)
}

func TestToLitGPT(t *testing.T) {
	records := ToLitGPT([]Entry{{AudioPath: "/a/b.wav", Text: "text", Filename: "b.wav", Duration: 2}})
	require.Len(t, records, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, records))
	line := strings.TrimSpace(buf.String())
	assert.Equal(t, `{"text":"text","metadata":{"audio_path":"/a/b.wav","duration":2,"filename":"b.wav"}}`, line)
}

func TestValidateJSONL(t *testing.T) {
	input := "{\"text\":\"a\"}\n\nnot json\n{\"metadata\":{}}\n{\"text\":\"b\"}\n"

	v, err := ValidateJSONL(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, v.Valid)
	assert.Equal(t, []int{3, 4}, v.Invalid)
}

func TestSynthetic(t *testing.T) {
	records := Synthetic()
	require.Len(t, records, 3+5*2)

	seen := map[string]bool{}
	for _, r := range records[3:] {
		style := r.Metadata["style"].(string)
		region := r.Metadata["region"].(string)
		seen[style+"/"+region] = true
		assert.Contains(t, r.Text, "Performance context: "+PerformanceContext(style))
	}
	assert.Len(t, seen, 10)
	assert.True(t, seen["sib_song/central"])
	assert.False(t, seen["kratai/isan"])

	assert.True(t, strings.HasPrefix(records[3].Text, "Thai Phin Music - Lam_Plearn Style (Isan Region):"))

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, records))
	v, err := ValidateJSONL(&buf)
	require.NoError(t, err)
	assert.Equal(t, len(records), v.Valid)
}

func TestPerformanceContext(t *testing.T) {
	assert.Equal(t, "Religious and spiritual ceremonies", PerformanceContext("kham_khuen"))
	assert.Equal(t, DefaultPerformanceContext, PerformanceContext("unknown"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Lam_Plearn", titleCase("lam_plearn"))
	assert.Equal(t, "Isan", titleCase("isan"))
	assert.Equal(t, "Mor_Lam", titleCase("MOR_LAM"))
}
