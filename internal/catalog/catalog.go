package catalog

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ytget/phin/internal/model"
	"github.com/ytget/phin/internal/platform"
	"gopkg.in/yaml.v3"
)

// ErrPathCollision is returned when two entries would be written to the same file.
var ErrPathCollision = errors.New("output path collision")

// ErrEmptyCatalog is returned when a catalog has no entries to work on.
var ErrEmptyCatalog = errors.New("catalog is empty")

// Catalog is an ordered, immutable list of video entries.
type Catalog struct {
	entries []model.VideoEntry
}

// document is the YAML layout of a catalog file.
type document struct {
	Entries []model.VideoEntry `yaml:"entries"`
}

// New creates a catalog from entries, keeping their order.
func New(entries []model.VideoEntry) *Catalog {
	c := &Catalog{entries: make([]model.VideoEntry, len(entries))}
	copy(c.entries, entries)
	return c
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []model.VideoEntry {
	out := make([]model.VideoEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Filter returns a catalog restricted to the given categories, preserving
// order. No categories means no filtering.
func (c *Catalog) Filter(categories ...model.Category) *Catalog {
	if len(categories) == 0 {
		return New(c.entries)
	}

	wanted := make(map[model.Category]bool, len(categories))
	for _, cat := range categories {
		wanted[cat] = true
	}

	var kept []model.VideoEntry
	for _, e := range c.entries {
		if wanted[e.Category] {
			kept = append(kept, e)
		}
	}
	return New(kept)
}

// Categories returns the categories present in the catalog, in the canonical
// category order.
func (c *Catalog) Categories() []model.Category {
	present := make(map[model.Category]bool)
	for _, e := range c.entries {
		present[e.Category] = true
	}

	var cats []model.Category
	for _, cat := range model.AllCategories() {
		if present[cat] {
			cats = append(cats, cat)
		}
	}
	return cats
}

// CountByCategory returns the number of entries per category.
func (c *Catalog) CountByCategory() map[model.Category]int {
	counts := make(map[model.Category]int)
	for _, e := range c.entries {
		counts[e.Category]++
	}
	return counts
}

// Validate checks every entry and makes sure no two entries share an output
// path. All problems are reported at once.
func (c *Catalog) Validate() error {
	var (
		errs  []error
		paths = make(map[string]string, len(c.entries))
	)

	for i, e := range c.entries {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}

		key := OutputStem("", e)
		if other, ok := paths[key]; ok {
			errs = append(errs, fmt.Errorf("%w: entries %s and %s both map to %s",
				ErrPathCollision, other, e.ID, key))
			continue
		}
		paths[key] = e.ID
	}

	return errors.Join(errs...)
}

// OutputStem returns the output path of an entry without extension:
// <root>/<category>/<sanitized title>.
func OutputStem(root string, e model.VideoEntry) string {
	return filepath.Join(root, string(e.Category), platform.SanitizeTitle(e.Title))
}

// OutputPath returns <root>/<category>/<sanitized title>.<ext>.
func OutputPath(root string, e model.VideoEntry, ext string) string {
	return OutputStem(root, e) + "." + ext
}

// WriteYAML encodes the catalog as YAML.
func (c *Catalog) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Entries: c.entries}); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}

// ReadYAML decodes a catalog written by WriteYAML and validates it.
func ReadYAML(r io.Reader) (*Catalog, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := New(doc.Entries)
	if c.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
