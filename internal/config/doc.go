// Package config loads, normalizes and validates vidpipe configuration.
//
// Configuration lives in a TOML file (default ~/.config/vidpipe/config.toml,
// falling back to ./vidpipe.toml). An optional .env file in the working
// directory is loaded first so VIDPIPE_* environment overrides can be kept
// next to a deployment. Load returns the config together with the resolved
// path and whether that file existed, so callers can explain where values came
// from.
//
// Paths accept "~" and are made absolute during normalization. Zero values
// fall back to the defaults in defaults.go, so a partial file is valid.
package config
