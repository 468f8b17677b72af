package catalog

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytget/phin/internal/model"
)

func TestBuiltinIsValid(t *testing.T) {
	c := Builtin()
	require.NotZero(t, c.Len())
	require.NoError(t, c.Validate())

	// Every category is represented.
	assert.Equal(t, model.AllCategories(), c.Categories())
}

func TestEntriesIsACopy(t *testing.T) {
	c := Builtin()
	entries := c.Entries()
	entries[0].Title = "changed"

	assert.NotEqual(t, "changed", c.Entries()[0].Title)
}

func TestFilterPreservesOrder(t *testing.T) {
	c := New([]model.VideoEntry{
		{ID: "1", Category: model.CategoryHae, Title: "a"},
		{ID: "2", Category: model.CategoryBasics, Title: "b"},
		{ID: "3", Category: model.CategoryHae, Title: "c"},
		{ID: "4", Category: model.CategoryCovers, Title: "d"},
	})

	hae := c.Filter(model.CategoryHae)
	require.Equal(t, 2, hae.Len())
	assert.Equal(t, "1", hae.Entries()[0].ID)
	assert.Equal(t, "3", hae.Entries()[1].ID)

	assert.Equal(t, 4, c.Filter().Len())
	assert.Equal(t, 0, c.Filter(model.CategoryMahoree).Len())

	counts := c.CountByCategory()
	assert.Equal(t, 2, counts[model.CategoryHae])
	assert.Equal(t, 1, counts[model.CategoryCovers])
}

func TestValidateDetectsCollisions(t *testing.T) {
	c := New([]model.VideoEntry{
		{ID: "1", Category: model.CategoryHae, Title: "Lai Hae"},
		{ID: "2", Category: model.CategoryHae, Title: "Lai  Hae?"},
		// Same title in another category is a different path.
		{ID: "3", Category: model.CategoryCovers, Title: "Lai Hae"},
	})

	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPathCollision))
	assert.Contains(t, err.Error(), "entries 1 and 2")
}

func TestValidateReportsAllProblems(t *testing.T) {
	c := New([]model.VideoEntry{
		{ID: "", Category: model.CategoryHae, Title: "x"},
		{ID: "2", Category: "pop", Title: "y"},
	})

	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEmptyID))
	assert.True(t, errors.Is(err, model.ErrInvalidCategory))
}

func TestOutputPath(t *testing.T) {
	e := model.VideoEntry{ID: "x", Category: model.CategoryMahoree, Title: "Lai Mahoree Isan"}

	got := OutputPath("/data", e, "wav")
	assert.Equal(t, filepath.Join("/data", "mahoree", "Lai_Mahoree_Isan.wav"), got)

	// Deterministic
	assert.Equal(t, got, OutputPath("/data", e, "wav"))
}

func TestOutputPathsAreDistinctForBuiltin(t *testing.T) {
	seen := make(map[string]string)
	for _, e := range Builtin().Entries() {
		p := OutputPath("/root", e, "wav")
		if other, ok := seen[p]; ok {
			t.Fatalf("entries %s and %s share output path %s", other, e.ID, p)
		}
		seen[p] = e.ID
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Builtin().WriteYAML(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "entries:"))

	c, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, Builtin().Entries(), c.Entries())
}

func TestReadYAMLRejectsBadCatalogs(t *testing.T) {
	_, err := ReadYAML(strings.NewReader("entries: []\n"))
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = ReadYAML(strings.NewReader("entries:\n  - id: a\n    category: jazz\n    title: t\n"))
	assert.ErrorIs(t, err, model.ErrInvalidCategory)

	_, err = ReadYAML(strings.NewReader("entries: [\n"))
	assert.Error(t, err)
}
