package catalog

// Package catalog holds the curated list of phin recordings, grouped by
// category, and the rules that turn an entry into an output path. Entries can
// be extended from YouTube playlists via the ytdlp library.
