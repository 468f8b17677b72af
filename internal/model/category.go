package model

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups catalog entries and names the output sub-directory.
type Category string

const (
	CategoryBasics     Category = "basics"
	CategoryLamPerlin  Category = "lam_perlin"
	CategoryHae        Category = "hae"
	CategoryMahoree    Category = "mahoree"
	CategoryTechniques Category = "techniques"
	CategoryCovers     Category = "covers"
)

// ErrInvalidCategory is returned for category names outside the known set.
var ErrInvalidCategory = errors.New("invalid category")

// AllCategories returns the known categories in catalog order.
func AllCategories() []Category {
	return []Category{
		CategoryBasics,
		CategoryLamPerlin,
		CategoryHae,
		CategoryMahoree,
		CategoryTechniques,
		CategoryCovers,
	}
}

// String returns the string representation of Category
func (c Category) String() string {
	return string(c)
}

// Valid returns true if c is one of the six known categories.
func (c Category) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a user supplied name into a Category.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, name)
	}
	return c, nil
}
