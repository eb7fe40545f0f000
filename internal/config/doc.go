// Package config loads, normalizes, and validates lofi configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LOFI_API_TOKEN and LOFI_ACCELERATION. The Config type also builds the
// process-wide acceleration Profile handed to every job.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
