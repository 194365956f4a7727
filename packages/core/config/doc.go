// Package config handles configuration loading and management for partest.
//
// It provides functionality for:
//   - Loading configuration from .partest.yaml, .partest.toml or .partest.json
//   - Default configuration values
//   - PARTEST_* environment variable overrides
//   - Validation of the merged result
package config
