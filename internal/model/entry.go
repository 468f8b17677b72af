package model

import (
	"errors"
	"fmt"
	"strings"
)

// YouTubeVideoURLTemplate turns a video identifier into a watch URL.
const YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"

// Validation errors for catalog entries
var (
	ErrEmptyID    = errors.New("video identifier is empty")
	ErrEmptyTitle = errors.New("video title is empty")
)

// VideoEntry is a single hand-curated catalog item.
type VideoEntry struct {
	ID       string   `yaml:"id" json:"id"`
	Category Category `yaml:"category" json:"category"`
	Title    string   `yaml:"title" json:"title"`
}

// URL returns the watch URL of the entry.
func (e VideoEntry) URL() string {
	return fmt.Sprintf(YouTubeVideoURLTemplate, e.ID)
}

// Validate checks the entry invariants: non-empty identifier and title, known
// category.
func (e VideoEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q (entry %s)", ErrInvalidCategory, e.Category, e.ID)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w (entry %s)", ErrEmptyTitle, e.ID)
	}
	return nil
}
