package session

import (
	"github.com/dshills/deltabin/internal/charset"
	"github.com/dshills/deltabin/internal/engine/delta"
	"github.com/dshills/deltabin/internal/engine/paged"
	"github.com/dshills/deltabin/internal/engine/search"
	"github.com/dshills/deltabin/internal/logging"
)

// Option configures a Session during creation.
type Option func(*Session)

// WithRepository shares a segment repository between sessions. Without it
// the session creates and owns a private one.
func WithRepository(r *delta.Repository) Option {
	return func(s *Session) {
		s.repo = r
	}
}

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDeltaMode selects file-backed delta storage for the next open.
func WithDeltaMode(enabled bool) Option {
	return func(s *Session) {
		s.deltaMode = enabled
	}
}

// WithCharset sets the charset for text search and replace.
func WithCharset(cs *charset.Charset) Option {
	return func(s *Session) {
		if cs != nil {
			s.charset = cs
		}
	}
}

// WithMaxUndo bounds the undo history. Zero means unlimited.
func WithMaxUndo(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxUndo = n
		}
	}
}

// WithMatchLimit caps the matches collected per search.
func WithMatchLimit(n int) Option {
	return func(s *Session) {
		if n > 0 && n <= search.MaxMatches {
			s.matchLimit = n
		}
	}
}

// WithPageSize sets the page size of in-memory buffers.
func WithPageSize(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// defaultPageSize is used when no page size is configured.
const defaultPageSize = paged.DefaultPageSize
