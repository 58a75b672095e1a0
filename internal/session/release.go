package session

import "fmt"

// Resolution is the caller's answer when a modified document must be released.
type Resolution int

const (
	// Cancel keeps the document and aborts the operation.
	Cancel Resolution = iota
	// Save writes the document to its source before continuing.
	Save
	// Discard drops the unsaved changes.
	Discard
)

// String returns the resolution name.
func (r Resolution) String() string {
	switch r {
	case Cancel:
		return "cancel"
	case Save:
		return "save"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
}

// Resolver decides what happens to unsaved changes. lastErr holds the
// failure of the previous save attempt, or nil on the first call.
type Resolver func(s *Session, lastErr error) Resolution

// Always returns a Resolver that gives r every time. After a failed save
// it cancels rather than retry.
func Always(r Resolution) Resolver {
	return func(_ *Session, lastErr error) Resolution {
		if lastErr != nil {
			return Cancel
		}
		return r
	}
}

// Release asks resolve how to deal with unsaved changes until the document
// is no longer modified. A failed save asks again. Cancel, or a nil
// resolve, returns ErrReleaseCanceled and leaves the session untouched.
func (s *Session) Release(resolve Resolver) error {
	if s.disposed {
		return ErrClosed
	}
	if s.src == nil {
		return nil
	}

	var lastErr error
	for s.IsModified() {
		answer := Cancel
		if resolve != nil {
			answer = resolve(s, lastErr)
		}
		switch answer {
		case Save:
			lastErr = s.Save(nil)
			if lastErr != nil {
				s.logger.Warn("release %s: save failed: %v", s.src.Name(), lastErr)
			}
		case Discard:
			s.stack.SetSyncPoint()
			s.logger.Info("release %s: changes discarded", s.src.Name())
		default:
			s.logger.Info("release %s: canceled", s.src.Name())
			return NewOperationError("release", s.src.Name(), ErrReleaseCanceled)
		}
	}
	return nil
}
