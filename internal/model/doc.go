package model

// Package model defines domain data structures used across the app: catalog
// entries and categories, fetch and transcode tasks, run reports and status
// enums. Structures carry explicit state transitions and are safe to copy.
