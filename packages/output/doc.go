// Package output provides formatters for displaying fetch results.
//
// Supported output formats:
//   - Console: the response body, optionally preceded by colored headers
//   - JSON: one machine-readable document per fetch
//
// Each formatter implements the Formatter interface of the CLI. The JSON
// formatter accumulates the outcome and writes it on Flush.
package output
