package download

// Package download implements the fetch pipeline built on top of yt-dlp (via
// github.com/lrstanley/go-ytdlp). It walks a catalog strictly in order, runs
// one downloader invocation per entry, pauses between invocations, and keeps
// going when a single entry fails.
