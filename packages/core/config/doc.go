// Package config handles configuration loading and management for hitcurl.
//
// It provides functionality for:
//   - Loading configuration from .hitcurl.json, hitcurl.json, .hitcurl.yaml or .hitcurl.yml
//   - Validating every file against an embedded JSON schema
//   - Default configuration values and merging of overrides
package config
