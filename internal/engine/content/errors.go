package content

import "errors"

// Errors returned by content stores.
var (
	// ErrOutOfRange indicates a position or range outside the content.
	ErrOutOfRange = errors.New("position out of range")

	// ErrInvalidLength indicates a negative length.
	ErrInvalidLength = errors.New("invalid length")

	// ErrDisposed indicates the store was already released.
	ErrDisposed = errors.New("content disposed")

	// ErrReadOnly indicates a write against read-only backing storage.
	ErrReadOnly = errors.New("content is read-only")
)
