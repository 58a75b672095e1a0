// Package source abstracts the external byte sources a session opens and
// saves: files on disk and in-memory buffers.
//
// A Source is both where content comes from and, through Create, where it
// goes back. File sources also expose their path so file-backed storage
// can attach to them directly.
package source

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrReadOnly is returned by Create on a source that cannot be written.
	ErrReadOnly = errors.New("source is read-only")

	// ErrClosed is returned when writing to a committed writer.
	ErrClosed = errors.New("writer already closed")
)

// Info is metadata about a source.
type Info struct {
	Size    int64
	ModTime time.Time
}

// Source is an external byte source and sink.
type Source interface {
	// Name returns a display name.
	Name() string

	// Path returns the file system path, or "" for sources without one.
	Path() string

	// Writable reports whether Create may succeed.
	Writable() bool

	// Stat returns current metadata.
	Stat() (Info, error)

	// Open opens the content for reading.
	Open() (io.ReadCloser, error)

	// Create opens the source for replacing its content. The new content
	// becomes visible when the writer is closed.
	Create() (io.WriteCloser, error)
}

// IsFile reports whether src is backed by a file path.
func IsFile(src Source) bool {
	return src != nil && src.Path() != ""
}
