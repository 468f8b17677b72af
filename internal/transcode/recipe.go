package transcode

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anmitsu/go-shlex"
)

// Template placeholders
const (
	PlaceholderIn       = "{in}"
	PlaceholderOut      = "{out}"
	PlaceholderStart    = "{start}"
	PlaceholderDuration = "{duration}"
	PlaceholderLength   = "{length}"
)

// Segmentation defaults
const (
	DefaultSegmentLength = "30"
	MinSegmentRatio      = 0.8
)

// FFmpeg flags shared by every recipe
const (
	commandPrefix      = "-hide_banner -y -i " + PlaceholderIn
	commandSuffix      = "-progress " + ProgressPipeTarget + " -nostats " + PlaceholderOut
	ProgressPipeTarget = "pipe:2"
)

var (
	// ErrUnknownRecipe is returned by Lookup for names that are not registered.
	ErrUnknownRecipe = errors.New("unknown recipe")

	// ErrMissingParam is returned when a template needs a parameter that was not given.
	ErrMissingParam = errors.New("missing recipe parameter")

	// ErrInvalidRecipe is returned for recipes without name, suffix or extension.
	ErrInvalidRecipe = errors.New("invalid recipe")
)

// Recipe is a named ffmpeg invocation producing one derived file per input.
// A suffix containing a printf verb (seg_%03d) makes a segmenting recipe:
// one input produces numbered outputs.
type Recipe struct {
	Name        string
	Suffix      string
	Ext         string
	Args        string
	Description string
}

// Params fills the optional placeholders of a recipe.
type Params struct {
	Start         string
	Duration      string
	SegmentLength string // seconds, DefaultSegmentLength if empty
}

var builtinRecipes = []Recipe{
	{
		Name:        "resample",
		Suffix:      "22k",
		Ext:         "wav",
		Args:        "-ar 22050 -ac 1",
		Description: "mono, 22.05 kHz",
	},
	{
		Name:        "normalize",
		Suffix:      "norm",
		Ext:         "wav",
		Args:        "-af loudnorm=I=-16:TP=-1.5:LRA=11",
		Description: "EBU R128 loudness normalization",
	},
	{
		Name:        "trim",
		Suffix:      "trim",
		Ext:         "wav",
		Args:        "-ss " + PlaceholderStart + " -t " + PlaceholderDuration,
		Description: "cut --duration seconds starting at --start",
	},
	{
		Name:        "mp3",
		Suffix:      "mp3",
		Ext:         "mp3",
		Args:        "-codec:a libmp3lame -qscale:a 2",
		Description: "VBR mp3 for listening copies",
	},
	{
		Name:        "segment",
		Suffix:      "seg_%03d",
		Ext:         "wav",
		Args:        "-f segment -segment_time " + PlaceholderLength + " -segment_format wav -reset_timestamps 1",
		Description: "cut into --segment-length second pieces, dropping a short tail",
	},
}

// Recipes returns the built-in recipes sorted by name.
func Recipes() []Recipe {
	list := make([]Recipe, len(builtinRecipes))
	copy(list, builtinRecipes)
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Lookup returns the built-in recipe with the given name.
func Lookup(name string) (Recipe, error) {
	for _, r := range builtinRecipes {
		if r.Name == name {
			return r, nil
		}
	}
	return Recipe{}, fmt.Errorf("%w: %q", ErrUnknownRecipe, name)
}

// Validate checks that the recipe can name its outputs and parse its arguments.
func (r Recipe) Validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRecipe)
	case r.Suffix == "" || strings.ContainsAny(r.Suffix, `/\`):
		return fmt.Errorf("%w: bad suffix %q in %s", ErrInvalidRecipe, r.Suffix, r.Name)
	case r.Ext == "" || strings.ContainsAny(r.Ext, `/\.`):
		return fmt.Errorf("%w: bad extension %q in %s", ErrInvalidRecipe, r.Ext, r.Name)
	}

	if _, err := shlex.Split(r.Args, true); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecipe, r.Name, err)
	}
	return nil
}

// OutputPath returns the derived file name for input: <base>-<suffix>.<ext>
// in the same directory. For segmenting recipes it is the ffmpeg pattern of
// the segment names.
func (r Recipe) OutputPath(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if r.Segmented() {
		base = strings.ReplaceAll(base, "%", "%%")
	}
	return base + "-" + r.Suffix + "." + r.Ext
}

// Segmented reports whether the recipe writes numbered segments. Its
// OutputPath is then an ffmpeg file pattern.
func (r Recipe) Segmented() bool {
	return strings.Contains(r.Suffix, "%")
}

// SegmentPath returns the name of the segment with the given index.
func (r Recipe) SegmentPath(input string, index int) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "-" + fmt.Sprintf(r.Suffix, index) + "." + r.Ext
}

// IsDerived reports whether path looks like an output of this recipe.
func (r Recipe) IsDerived(path string) bool {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if !r.Segmented() {
		return strings.HasSuffix(stem, "-"+r.Suffix)
	}

	marker := "-" + r.Suffix[:strings.IndexByte(r.Suffix, '%')]
	idx := strings.LastIndex(stem, marker)
	if idx < 0 {
		return false
	}
	digits := stem[idx+len(marker):]
	return digits != "" && strings.Trim(digits, "0123456789") == ""
}

// IsDerived reports whether path was produced by any built-in recipe.
func IsDerived(path string) bool {
	for _, r := range builtinRecipes {
		if r.IsDerived(path) {
			return true
		}
	}
	return false
}

// Command expands the recipe into the ffmpeg argument list for one file.
// The template is split with shell quoting rules before substitution, so
// paths containing spaces stay single arguments. Placeholders must be
// whole arguments.
func (r Recipe) Command(in, out string, p Params) ([]string, error) {
	template := commandPrefix + " " + r.Args + " " + commandSuffix

	tokens, err := shlex.Split(template, true)
	if err != nil {
		return nil, fmt.Errorf("cannot parse recipe %s: %w", r.Name, err)
	}

	length := p.SegmentLength
	if length == "" {
		length = DefaultSegmentLength
	}

	values := map[string]string{
		PlaceholderIn:       in,
		PlaceholderOut:      out,
		PlaceholderStart:    p.Start,
		PlaceholderDuration: p.Duration,
		PlaceholderLength:   length,
	}

	args := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		val, isPlaceholder := values[tok]
		if !isPlaceholder {
			args = append(args, tok)
			continue
		}
		if val == "" {
			return nil, fmt.Errorf("%w: recipe %s needs %s", ErrMissingParam, r.Name, tok)
		}
		args = append(args, val)
	}

	return args, nil
}
