// Package config loads, normalizes, and validates the TOML configuration
// for wbgrab. Site-specific discovery selectors and the preview-to-manifest
// URL transform live here as data so they can change without code edits.
package config
