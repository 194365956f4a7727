package runner

import (
	"errors"

	"github.com/abdul-hamid-achik/partest/packages/core/filter"
)

var (
	// ErrInvalidArgument is returned for unknown flags or a missing registry.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPattern is returned when the name pattern does not compile.
	ErrPattern = filter.ErrPattern

	// ErrPrimitive is returned when waiting for workers cannot complete.
	ErrPrimitive = errors.New("synchronization failure")

	// ErrDryRunExit is returned when the configured exit function returns
	// instead of terminating the process after a dry run.
	ErrDryRunExit = errors.New("dry run exit returned")
)
