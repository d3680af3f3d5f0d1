// Package config defines the warden configuration model and its loading
// pipeline. Configuration is read from a YAML file, filled in with defaults,
// overridden by WARDEN_* environment variables, and validated before use.
//
// The loading sequence is:
//  1. Parse YAML from file (a missing file yields pure defaults)
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
package config
