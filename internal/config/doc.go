// Package config loads, normalizes, and validates LexSync's TOML
// configuration file.
package config
