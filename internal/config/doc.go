// Package config provides the configuration of an htmlcs run: sniff
// options, engine selection, reporting preferences, the XDG directories
// used for the database and the runner script, and the optional .htmlcs
// YAML file with per-path overrides.
package config
