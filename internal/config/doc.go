package config

// Package config manages application settings. Values come from built-in
// defaults, an optional YAML file, an optional .env file and PHIN_*
// environment variables, in increasing order of precedence.
