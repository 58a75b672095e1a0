package search

import "errors"

var (
	// ErrInvalidMode indicates an unknown search mode or direction.
	ErrInvalidMode = errors.New("invalid search mode")

	// ErrEmptyPattern indicates a scan was requested without a pattern.
	ErrEmptyPattern = errors.New("empty search pattern")

	// ErrNoMatch indicates match navigation on an empty match set.
	ErrNoMatch = errors.New("no current match")
)
