package cmd

import "fmt"

// Exit codes for hitcurl CLI
const (
	// ExitSuccess indicates the transfer completed
	ExitSuccess = 0

	// ExitHTTPError indicates a status of 400 or above with --fail
	ExitHTTPError = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a failed transfer
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the process exit code for a failed command. The error
// has already been reported by the time it reaches Execute.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitWith(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}
