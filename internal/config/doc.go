// Package config loads and validates the service configuration from a toml
// file, applying defaults for anything unset. A sample config documenting
// every key is embedded and written out on first run.
package config
