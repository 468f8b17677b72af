package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/phin/internal/model"
	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultImportTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// itemFetcher lists the videos of a playlist.
type itemFetcher func(ctx context.Context, playlistID string) ([]model.PlaylistItem, error)

// Importer turns YouTube playlists into catalog entries using the ytdlp library
type Importer struct {
	timeout time.Duration
	fetch   itemFetcher
}

// NewImporter creates a new playlist importer
func NewImporter() *Importer {
	return &Importer{
		timeout: DefaultImportTimeout,
		fetch:   fetchPlaylistItems,
	}
}

// SetTimeout sets the timeout for import operations
func (im *Importer) SetTimeout(timeout time.Duration) {
	im.timeout = timeout
}

// Import lists the playlist behind url and assigns its videos to category.
func (im *Importer) Import(ctx context.Context, url string, category model.Category) (*model.Playlist, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidCategory, category)
	}

	if !isValidPlaylistURL(url) {
		return nil, fmt.Errorf("invalid playlist URL: %s", url)
	}

	playlistID := extractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("could not extract playlist ID from URL: %s", url)
	}

	ctx, cancel := context.WithTimeout(ctx, im.timeout)
	defer cancel()

	items, err := im.fetch(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	playlist := model.NewPlaylist(playlistID, url, category)
	for _, it := range items {
		playlist.AddItem(it)
	}

	return playlist, nil
}

// fetchPlaylistItems queries YouTube through the ytdlp library.
func fetchPlaylistItems(ctx context.Context, playlistID string) ([]model.PlaylistItem, error) {
	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	out := make([]model.PlaylistItem, 0, len(items))
	for i, it := range items {
		out = append(out, model.PlaylistItem{
			VideoID: it.VideoID,
			Title:   it.Title,
			Index:   i + 1,
		})
	}
	return out, nil
}

// isValidPlaylistURL checks if the URL is a YouTube playlist URL
func isValidPlaylistURL(url string) bool {
	return strings.Contains(url, PlaylistParam)
}

// extractPlaylistID extracts the playlist ID from various URL formats
func extractPlaylistID(url string) string {
	parts := strings.SplitN(url, PlaylistParam, 2)
	if len(parts) < 2 {
		return ""
	}

	playlistPart := parts[1]
	if idx := strings.Index(playlistPart, ParamSeparator); idx >= 0 {
		playlistPart = playlistPart[:idx]
	}
	return playlistPart
}
