package model

import "time"

// PlaylistItem is a single video listed by a remote playlist
type PlaylistItem struct {
	VideoID string
	Title   string
	Index   int
}

// Playlist represents a YouTube playlist imported into a catalog category
type Playlist struct {
	ID         string
	URL        string
	Category   Category
	Items      []PlaylistItem
	ImportedAt time.Time
}

// NewPlaylist creates a new playlist instance
func NewPlaylist(id, url string, category Category) *Playlist {
	return &Playlist{
		ID:         id,
		URL:        url,
		Category:   category,
		Items:      make([]PlaylistItem, 0),
		ImportedAt: time.Now(),
	}
}

// AddItem appends an item, ignoring entries without a video id or repeated ids
func (p *Playlist) AddItem(item PlaylistItem) {
	if item.VideoID == "" {
		return
	}
	for _, existing := range p.Items {
		if existing.VideoID == item.VideoID {
			return
		}
	}
	p.Items = append(p.Items, item)
}

// Entries converts the playlist into catalog entries of its category.
// Items without a title get the video id as title.
func (p *Playlist) Entries() []VideoEntry {
	entries := make([]VideoEntry, 0, len(p.Items))
	for _, item := range p.Items {
		title := item.Title
		if title == "" {
			title = item.VideoID
		}
		entries = append(entries, VideoEntry{
			ID:       item.VideoID,
			Category: p.Category,
			Title:    title,
		})
	}
	return entries
}
