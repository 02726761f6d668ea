// Package config loads, normalizes, and validates igmirror configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// INSTAGRAM_CLIENT_SECRET. The Config type centralizes the OAuth client,
// cache and state directories, token store backend, and logging knobs so the
// CLI discovers everything in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
