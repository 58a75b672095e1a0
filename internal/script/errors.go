package script

import "errors"

// Errors for script execution.
var (
	// ErrClosed is returned when running on a closed runner.
	ErrClosed = errors.New("script runner is closed")

	// ErrTimeout is returned when a script runs past its deadline.
	ErrTimeout = errors.New("script execution timeout")

	// ErrCallLimit is returned when a script makes too many host calls.
	ErrCallLimit = errors.New("script host call limit exceeded")
)
