package session

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrNoSource indicates an operation needs an attached source.
	ErrNoSource = errors.New("no source attached")

	// ErrModified indicates unsaved changes block the operation.
	ErrModified = errors.New("document has unsaved changes")

	// ErrReleaseCanceled indicates the release of a modified document was canceled.
	ErrReleaseCanceled = errors.New("release canceled")

	// ErrReadOnly indicates an edit on a read-only document.
	ErrReadOnly = errors.New("document is read-only")

	// ErrClosed indicates the session was disposed.
	ErrClosed = errors.New("session disposed")
)

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // Operation name (e.g., "open", "save", "switch mode")
	Target string // Target of the operation (e.g., source name)
	Err    error  // Underlying error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
