// Package cmd implements the hitcurl CLI commands using Cobra.
//
// Available commands:
//   - fetch: Issue one request and print the response
//   - replay: Run a curl command line through hitcurl
//   - init: Write a default .hitcurl.yaml
//   - validate: Check config files against the schema
//   - completion: Generate shell completion scripts
//   - version: Show hitcurl version information
//
// Flags fall back to HITCURL_* environment variables, and a config file
// supplies defaults for anything not given on the command line.
package cmd
