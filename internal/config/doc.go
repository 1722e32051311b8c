// Package config defines the settings used by the noise-monitor binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Values are layered: built-in defaults, then the YAML file, then
// NOISE_MONITOR_* variables from a .env file and the process environment.
package config
