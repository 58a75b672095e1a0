package delta

import "errors"

// Errors returned by the segment repository and its documents.
var (
	// ErrSourceAttached indicates the file source already has an attached document.
	ErrSourceAttached = errors.New("file source already attached to a document")

	// ErrSourceInUse indicates documents still reference the file source.
	ErrSourceInUse = errors.New("file source still referenced")

	// ErrSourceClosed indicates the file source was already closed.
	ErrSourceClosed = errors.New("file source closed")

	// ErrNotAttached indicates the document has no file source.
	ErrNotAttached = errors.New("document has no file source")

	// ErrForeignDocument indicates the document belongs to another repository.
	ErrForeignDocument = errors.New("document belongs to another repository")

	// ErrVerifyFailed indicates the saved file does not match the document.
	ErrVerifyFailed = errors.New("saved file does not match document")

	// ErrRepositoryClosed indicates the repository was closed.
	ErrRepositoryClosed = errors.New("repository closed")
)
