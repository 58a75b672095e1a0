package search

// MaxMatches caps the number of matches one search collects.
const MaxMatches = 100

// Match is one occurrence of a pattern in content byte space.
type Match struct {
	Position int64
	Length   int64
}

// End returns the offset just past the match.
func (m Match) End() int64 {
	return m.Position + m.Length
}

// MatchSet is an ordered list of matches with a current index.
// The index is -1 when the set is empty.
type MatchSet struct {
	matches []Match
	current int
}

// NewMatchSet creates a set from matches, selecting the first one.
func NewMatchSet(matches []Match) *MatchSet {
	ms := &MatchSet{matches: append([]Match(nil), matches...), current: -1}
	if len(ms.matches) > 0 {
		ms.current = 0
	}
	return ms
}

// Len returns the number of matches.
func (ms *MatchSet) Len() int {
	if ms == nil {
		return 0
	}
	return len(ms.matches)
}

// IsEmpty returns true if the set holds no matches.
func (ms *MatchSet) IsEmpty() bool {
	return ms.Len() == 0
}

// Matches returns a copy of the matches in order.
func (ms *MatchSet) Matches() []Match {
	if ms == nil {
		return nil
	}
	return append([]Match(nil), ms.matches...)
}

// At returns the match at index i.
func (ms *MatchSet) At(i int) (Match, bool) {
	if ms == nil || i < 0 || i >= len(ms.matches) {
		return Match{}, false
	}
	return ms.matches[i], true
}

// Index returns the current match index, or -1.
func (ms *MatchSet) Index() int {
	if ms == nil {
		return -1
	}
	return ms.current
}

// SetIndex selects the match at index i.
func (ms *MatchSet) SetIndex(i int) error {
	if ms == nil || i < 0 || i >= len(ms.matches) {
		return ErrNoMatch
	}
	ms.current = i
	return nil
}

// Current returns the current match.
func (ms *MatchSet) Current() (Match, bool) {
	return ms.At(ms.Index())
}

// Next advances to the following match, wrapping at the end.
func (ms *MatchSet) Next() (Match, bool) {
	if ms.IsEmpty() {
		return Match{}, false
	}
	ms.current = (ms.current + 1) % len(ms.matches)
	return ms.matches[ms.current], true
}

// Previous moves to the preceding match, wrapping at the start.
func (ms *MatchSet) Previous() (Match, bool) {
	if ms.IsEmpty() {
		return Match{}, false
	}
	ms.current = (ms.current - 1 + len(ms.matches)) % len(ms.matches)
	return ms.matches[ms.current], true
}

// Remove deletes m from the set. The current index keeps pointing at the
// match that followed m, wrapping to the first one.
func (ms *MatchSet) Remove(m Match) bool {
	if ms == nil {
		return false
	}
	for i, x := range ms.matches {
		if x == m {
			ms.removeAt(i)
			return true
		}
	}
	return false
}

func (ms *MatchSet) removeAt(i int) {
	ms.matches = append(ms.matches[:i], ms.matches[i+1:]...)
	switch {
	case len(ms.matches) == 0:
		ms.current = -1
	case i < ms.current:
		ms.current--
	case ms.current >= len(ms.matches):
		ms.current = 0
	}
}

// Shift adjusts the set for an edit that replaced removed bytes at pos
// with inserted bytes. Matches overlapping the removed range are dropped,
// matches after it move by inserted-removed.
func (ms *MatchSet) Shift(pos, removed, inserted int64) {
	if ms == nil {
		return
	}
	delta := inserted - removed
	end := pos + removed
	for i := 0; i < len(ms.matches); {
		m := ms.matches[i]
		switch {
		case m.End() <= pos:
			i++
		case m.Position >= end:
			ms.matches[i].Position += delta
			i++
		default:
			ms.removeAt(i)
		}
	}
}

// Clear removes all matches.
func (ms *MatchSet) Clear() {
	if ms == nil {
		return
	}
	ms.matches = nil
	ms.current = -1
}
