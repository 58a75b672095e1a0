package session

import (
	"github.com/dshills/deltabin/internal/charset"
	"github.com/dshills/deltabin/internal/engine/search"
)

// Search returns the search engine holding the current match set.
func (s *Session) Search() *search.Engine {
	return s.search
}

// Charset returns the charset used for text search.
func (s *Session) Charset() *charset.Charset {
	return s.search.Charset()
}

// SetCharset changes the text search charset and clears the matches.
func (s *Session) SetCharset(cs *charset.Charset) {
	s.charset = cs
	s.search.SetCharset(cs)
}

// Find searches the document and selects the current match. With
// FromCursor set the scan starts at the caret, skipping a match that is
// already selected there.
func (s *Session) Find(cond search.Condition, params search.Parameters) (search.Result, error) {
	if s.disposed {
		return search.Result{}, ErrClosed
	}
	res, err := s.search.Find(s.data, cond, params, s.scanOrigin(cond.Mode, params.Direction))
	if err != nil {
		return res, err
	}
	if m, ok := s.search.Current(); ok {
		s.selectMatch(m, params.Direction)
	}
	return res, nil
}

// scanOrigin returns the caret offset handed to the engine.
func (s *Session) scanOrigin(mode search.Mode, dir search.Direction) int64 {
	sel := s.caret.Selection()
	if sel.IsEmpty() {
		return sel.Head
	}
	if mode == search.ModeBinary {
		return sel.Start()
	}
	if dir == search.Backward {
		return max(sel.Start()-1, 0)
	}
	return sel.End()
}

func (s *Session) selectMatch(m search.Match, dir search.Direction) {
	if dir == search.Backward {
		s.caret.Select(m.End(), m.Position)
		return
	}
	s.caret.Select(m.Position, m.End())
}

// NextMatch selects the following match, wrapping around.
func (s *Session) NextMatch() (search.Match, error) {
	m, err := s.search.Next()
	if err != nil {
		return m, err
	}
	s.selectMatch(m, search.Forward)
	return m, nil
}

// PreviousMatch selects the preceding match, wrapping around.
func (s *Session) PreviousMatch() (search.Match, error) {
	m, err := s.search.Previous()
	if err != nil {
		return m, err
	}
	s.selectMatch(m, search.Backward)
	return m, nil
}

// Replace swaps the current match for repl as one undo step and leaves the
// caret after the inserted bytes. It returns false when there is no
// current match.
func (s *Session) Replace(repl search.Condition) (bool, error) {
	if err := s.checkEditable(); err != nil {
		return false, err
	}
	m, ok, err := s.search.Replace(s.stack, s.data, repl)
	if err != nil || !ok {
		return false, err
	}
	payload, err := s.search.Payload(repl)
	if err != nil {
		return true, err
	}
	s.caret.SetPosition(m.Position + int64(len(payload)))
	s.caret.Clamp(s.data.Len())
	return true, nil
}

// ReplaceAll replaces every remaining match as one undo step and returns
// the number of replacements.
func (s *Session) ReplaceAll(repl search.Condition) (int, error) {
	if err := s.checkEditable(); err != nil {
		return 0, err
	}
	n := 0
	err := s.stack.Transaction("Replace all", s.data, func() error {
		for !s.search.Matches().IsEmpty() {
			ok, err := s.Replace(repl)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			n++
		}
		return nil
	})
	if err != nil {
		s.reverted()
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("replaced %d matches", n)
	}
	return n, nil
}
