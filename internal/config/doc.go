// Package config loads, normalizes, and validates stemsep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and the separation workflow need: input/output/temp directories, the
// external separator invocation, the model list with its stem coverage,
// progress persistence, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
