package content

import (
	"fmt"
	"io"
)

// Kind identifies the storage strategy of a store.
type Kind uint8

const (
	// KindFlat is the in-memory paged buffer.
	KindFlat Kind = iota
	// KindDelta is the file-backed copy-on-write document.
	KindDelta
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindDelta:
		return "delta"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Data is a random-access, editable byte sequence.
type Data interface {
	// Kind reports the storage strategy.
	Kind() Kind

	// Len returns the content length in bytes.
	Len() int64

	// ByteAt returns the byte at pos.
	ByteAt(pos int64) (byte, error)

	// CopyTo fills dst with the bytes starting at pos.
	// The whole range [pos, pos+len(dst)) must lie inside the content.
	CopyTo(pos int64, dst []byte) error

	// Insert inserts p at pos. pos may equal Len().
	Insert(pos int64, p []byte) error

	// InsertData inserts the whole content of src at pos.
	// src is left untouched and may be the receiver itself.
	InsertData(pos int64, src Data) error

	// Remove deletes the range [pos, pos+length).
	Remove(pos, length int64) error

	// WriteTo streams the content front to back.
	WriteTo(w io.Writer) (int64, error)

	// Save persists the content to sink.
	Save(sink Sink) error

	// Dispose releases all resources held by the store.
	Dispose() error

	// Disposed reports whether Dispose was called.
	Disposed() bool
}

// Sink is a destination the content can be saved to.
type Sink interface {
	// Create opens the destination for writing, truncating it.
	Create() (io.WriteCloser, error)
}

// PathSink is a Sink backed by a file path.
// Delta documents use it to detect saves onto their own backing file.
type PathSink interface {
	Sink
	Path() string
}

// CheckRange validates [pos, pos+length) against size.
func CheckRange(pos, length, size int64) error {
	if length < 0 {
		return ErrInvalidLength
	}
	if pos < 0 || pos > size || length > size-pos {
		return fmt.Errorf("%w: [%d, %d) in %d bytes", ErrOutOfRange, pos, pos+length, size)
	}
	return nil
}

// CheckInsert validates an insertion position against size.
func CheckInsert(pos, size int64) error {
	if pos < 0 || pos > size {
		return fmt.Errorf("%w: insert at %d in %d bytes", ErrOutOfRange, pos, size)
	}
	return nil
}
