package cmd

import (
	"errors"
	"fmt"
)

// Exit codes for the partest CLI
const (
	// ExitSuccess indicates all eligible tests passed or were skipped
	ExitSuccess = 0

	// ExitTestFailure indicates one or more tests failed or panicked
	ExitTestFailure = 1

	// ExitPatternError indicates the name pattern did not compile
	ExitPatternError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitReportError indicates a report, metrics file or history entry could not be written
	ExitReportError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// errTestsFailed is reported when the run completed but not every test passed.
var errTestsFailed = errors.New("one or more tests failed")

// ExitError carries the process exit code for an error returned by a command.
type ExitError struct {
	Code int
	Err  error

	// Quiet suppresses the "Error:" line, for failures the report already shows.
	Quiet bool
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitErr(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitTestFailure
}
