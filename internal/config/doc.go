// Package config loads, normalizes, and validates mixdown's TOML
// configuration.
//
// Defaults come from Default(), user values are decoded over them, paths are
// expanded to absolute form, and Validate rejects unusable values before any
// subsystem sees the config.
package config
