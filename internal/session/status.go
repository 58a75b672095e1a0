package session

import (
	"fmt"

	"github.com/dshills/deltabin/internal/engine/content"
)

// MemoryMode describes how the document is held.
type MemoryMode string

const (
	// MemoryRAM is a flat in-memory buffer.
	MemoryRAM MemoryMode = "RAM"
	// MemoryDelta is a file-backed delta document.
	MemoryDelta MemoryMode = "DELTA"
	// MemoryReadOnly is a document whose source refuses writes.
	MemoryReadOnly MemoryMode = "READ_ONLY"
)

// MemoryMode reports the storage mode shown to the user.
func (s *Session) MemoryMode() MemoryMode {
	switch {
	case s.src != nil && !s.writable:
		return MemoryReadOnly
	case s.data.Kind() == content.KindDelta:
		return MemoryDelta
	default:
		return MemoryRAM
	}
}

// BaseSize returns the size recorded when the document was opened or last saved.
func (s *Session) BaseSize() int64 {
	return s.baseSize
}

// SizeStatus formats the current size and its difference to BaseSize.
func (s *Session) SizeStatus() string {
	return FormatSize(s.data.Len(), s.baseSize)
}

// FormatSize renders size with the signed difference to base, as in
// "1024 (+16)".
func FormatSize(size, base int64) string {
	diff := size - base
	if diff > 0 {
		return fmt.Sprintf("%d (+%d)", size, diff)
	}
	return fmt.Sprintf("%d (%d)", size, diff)
}

// SourceChanged reports whether the attached source was modified outside
// the session since it was opened or last saved.
func (s *Session) SourceChanged() (bool, error) {
	if s.src == nil {
		return false, nil
	}
	if fb, ok := s.data.(fileBacked); ok && fb.FileSource() != nil {
		return fb.FileSource().HasChanged()
	}
	info, err := s.src.Stat()
	if err != nil {
		return false, err
	}
	return info.Size != s.srcInfo.Size || !info.ModTime.Equal(s.srcInfo.ModTime), nil
}
