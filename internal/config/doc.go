// Package config loads, normalizes, and validates shrink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files and optional .env files, and honours environment
// fallbacks such as SHRINK_DEPS_DIR. The Config type centralizes the encoder
// mapping bounds, binary locations and daemon settings so every component is
// constructed from one explicit value.
package config
