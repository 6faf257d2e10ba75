// Package config loads, normalizes, and validates sfgproc configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the pipeline and CLI need, from acquisition-file parsing through despiking,
// background subtraction, padding, smoothing, and truncation, so a whole run
// is reproducible from one file.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policy names, and clear validation errors.
package config
