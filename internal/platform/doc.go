package platform

// Package platform contains OS integration and external tooling glue:
// filesystem helpers, output naming, audio file discovery and lookup of the
// external downloader and transcoder binaries.
