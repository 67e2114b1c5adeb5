// Package config loads, defaults, normalizes, and validates the encore
// configuration. Configuration lives in a TOML file; an optional .env file
// beside the config supplies secret overrides (signing keys, ntfy topics)
// so they stay out of checked-in config.
package config
