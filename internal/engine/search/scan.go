package search

import (
	"bytes"
	"fmt"
	"unicode"

	"github.com/dshills/deltabin/internal/charset"
	"github.com/dshills/deltabin/internal/engine/content"
)

// clampLimit keeps a configured match limit inside 1..MaxMatches.
func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxMatches {
		return MaxMatches
	}
	return limit
}

// FindText scans data for cond.Text decoded with cs, starting at start and
// stepping one byte per position in the given direction. A match records
// the encoded byte length of the characters it consumed.
func FindText(data content.Data, cond Condition, dir Direction, start int64, multiple bool, cs *charset.Charset, limit int) ([]Match, error) {
	if cond.Text == "" {
		return nil, ErrEmptyPattern
	}
	if dir != Forward && dir != Backward {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, dir)
	}
	if cs == nil {
		cs = charset.UTF8()
	}
	limit = clampLimit(limit)

	pattern := []rune(cond.Text)
	if !cond.MatchCase {
		for i, r := range pattern {
			pattern[i] = unicode.ToLower(r)
		}
	}

	size := data.Len()
	last := size - int64(len(pattern)*cs.MinBytesPerChar())
	if last < 0 {
		return nil, nil
	}
	if start < 0 {
		start = 0
	}
	if dir == Backward && start > last {
		start = last
	}

	w := newWindow(data, dir == Backward)
	maxBytes := cs.MaxBytesPerChar()
	var found []Match

	for pos := start; pos >= 0 && pos <= last; {
		length, ok, err := matchTextAt(w, pos, pattern, cond.MatchCase, cs, maxBytes)
		if err != nil {
			return found, err
		}
		if ok {
			found = append(found, Match{Position: pos, Length: length})
			if len(found) >= limit || !multiple {
				break
			}
		}
		if dir == Forward {
			pos++
		} else {
			pos--
		}
	}
	return found, nil
}

func matchTextAt(w *window, pos int64, pattern []rune, matchCase bool, cs *charset.Charset, maxBytes int) (int64, bool, error) {
	var length int64
	for _, want := range pattern {
		p, err := w.bytes(pos+length, maxBytes)
		if err != nil {
			return 0, false, err
		}
		if len(p) == 0 {
			return 0, false, nil
		}
		r, size := cs.DecodeRune(p)
		if !matchCase {
			r = unicode.ToLower(r)
		}
		if r != want {
			return 0, false, nil
		}
		length += int64(size)
	}
	return length, true, nil
}

// FindBinary scans data forward from start for an exact byte pattern,
// including a match that ends at the last byte.
func FindBinary(data content.Data, pattern []byte, start int64, multiple bool, limit int) ([]Match, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	limit = clampLimit(limit)

	size := data.Len()
	plen := int64(len(pattern))
	if start < 0 {
		start = 0
	}

	w := newWindow(data, false)
	var found []Match
	for pos := start; pos <= size-plen; pos++ {
		p, err := w.bytes(pos, len(pattern))
		if err != nil {
			return found, err
		}
		if !bytes.Equal(p, pattern) {
			continue
		}
		found = append(found, Match{Position: pos, Length: plen})
		if len(found) >= limit || !multiple {
			break
		}
	}
	return found, nil
}
