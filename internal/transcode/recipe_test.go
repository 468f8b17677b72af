package transcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"resample", "normalize", "trim", "mp3", "segment"} {
		r, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, r.Name)
		assert.NoError(t, r.Validate())
	}

	_, err := Lookup("reverb")
	assert.True(t, errors.Is(err, ErrUnknownRecipe))
}

func TestRecipesSorted(t *testing.T) {
	list := Recipes()
	require.Len(t, list, len(builtinRecipes))
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		recipe   string
		input    string
		expected string
	}{
		{"resample", "/data/basics/Lesson_1.wav", "/data/basics/Lesson_1-22k.wav"},
		{"normalize", "/data/hae/Lai_Hae.wav", "/data/hae/Lai_Hae-norm.wav"},
		{"mp3", "/data/covers/Song.wav", "/data/covers/Song-mp3.mp3"},
		{"trim", "relative.v1.wav", "relative.v1-trim.wav"},
	}

	for _, tt := range tests {
		r, err := Lookup(tt.recipe)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, r.OutputPath(tt.input))
		assert.True(t, r.IsDerived(r.OutputPath(tt.input)))
		assert.False(t, r.IsDerived(tt.input))
	}
}

func TestCommand(t *testing.T) {
	r, err := Lookup("resample")
	require.NoError(t, err)

	args, err := r.Command("/in dir/a b.wav", "/in dir/a b-22k.wav", Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-hide_banner", "-y", "-i", "/in dir/a b.wav",
		"-ar", "22050", "-ac", "1",
		"-progress", "pipe:2", "-nostats",
		"/in dir/a b-22k.wav",
	}, args)
}

func TestCommandTrimParams(t *testing.T) {
	r, err := Lookup("trim")
	require.NoError(t, err)

	_, err = r.Command("a.wav", "a-trim.wav", Params{Start: "5"})
	assert.True(t, errors.Is(err, ErrMissingParam))

	args, err := r.Command("a.wav", "a-trim.wav", Params{Start: "5", Duration: "30"})
	require.NoError(t, err)
	assert.Contains(t, args, "5")
	assert.Contains(t, args, "30")
	assert.Equal(t, "a-trim.wav", args[len(args)-1])
}

func TestSegmentNaming(t *testing.T) {
	r, err := Lookup("segment")
	require.NoError(t, err)
	require.True(t, r.Segmented())

	assert.Equal(t, "/data/hae/Lai_Hae-seg_%03d.wav", r.OutputPath("/data/hae/Lai_Hae.wav"))
	assert.Equal(t, "/data/hae/Lai_Hae-seg_002.wav", r.SegmentPath("/data/hae/Lai_Hae.wav", 2))
	assert.Equal(t, "/data/100%_Hae-seg_%03d.wav", r.OutputPath("/data/100%_Hae.wav"))

	assert.True(t, r.IsDerived("/data/hae/Lai_Hae-seg_002.wav"))
	assert.True(t, IsDerived("/data/hae/Lai_Hae-seg_002.wav"))
	assert.False(t, r.IsDerived("/data/hae/Lai_Hae.wav"))
	assert.False(t, r.IsDerived("/data/hae/Lai_Hae-seg_x.wav"))
	assert.False(t, r.IsDerived("/data/hae/Lai_Hae-seg_.wav"))
}

func TestIsDerived(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"basics/Lesson_One.wav", false},
		{"basics/Lesson_One-22k.wav", true},
		{"basics/Lesson_One-norm.wav", true},
		{"basics/Lesson_One-trim.wav", true},
		{"basics/Lesson_One-mp3.mp3", true},
		{"basics/Lesson_One-seg_017.wav", true},
		{"basics/Seg_Lesson.wav", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsDerived(tt.path), tt.path)
	}
}

func TestCommandSegment(t *testing.T) {
	r, err := Lookup("segment")
	require.NoError(t, err)

	out := r.OutputPath("a.wav")
	args, err := r.Command("a.wav", out, Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-hide_banner", "-y", "-i", "a.wav",
		"-f", "segment", "-segment_time", DefaultSegmentLength,
		"-segment_format", "wav", "-reset_timestamps", "1",
		"-progress", "pipe:2", "-nostats",
		"a-seg_%03d.wav",
	}, args)

	args, err = r.Command("a.wav", out, Params{SegmentLength: "12"})
	require.NoError(t, err)
	assert.Equal(t, "12", args[indexOf(args, "-segment_time")+1])
}

func TestValidateRejectsBadRecipes(t *testing.T) {
	bad := []Recipe{
		{Suffix: "x", Ext: "wav"},
		{Name: "a", Ext: "wav"},
		{Name: "a", Suffix: "x/y", Ext: "wav"},
		{Name: "a", Suffix: "x", Ext: ".wav"},
		{Name: "a", Suffix: "x", Ext: "wav", Args: `-af "unterminated`},
	}

	for _, r := range bad {
		assert.True(t, errors.Is(r.Validate(), ErrInvalidRecipe), "%+v", r)
	}
}
