package caret

import "fmt"

// Selection is a byte range with a direction.
type Selection struct {
	Anchor int64 // Where the selection started
	Head   int64 // Caret position
}

// Point returns an empty selection at offset.
func Point(offset int64) Selection {
	return Selection{Anchor: offset, Head: offset}
}

// IsEmpty returns true if the selection covers no bytes.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Head
}

// Start returns the lower bound of the selection.
func (s Selection) Start() int64 {
	if s.Anchor <= s.Head {
		return s.Anchor
	}
	return s.Head
}

// End returns the upper bound of the selection.
func (s Selection) End() int64 {
	if s.Anchor >= s.Head {
		return s.Anchor
	}
	return s.Head
}

// Len returns the number of selected bytes.
func (s Selection) Len() int64 {
	return s.End() - s.Start()
}

// IsForward returns true if the head is at or after the anchor.
func (s Selection) IsForward() bool {
	return s.Head >= s.Anchor
}

// Contains returns true if offset lies inside [Start, End).
func (s Selection) Contains(offset int64) bool {
	return offset >= s.Start() && offset < s.End()
}

// Clamp limits both ends of the selection to [0, size].
func (s Selection) Clamp(size int64) Selection {
	return Selection{Anchor: clamp(s.Anchor, size), Head: clamp(s.Head, size)}
}

// String returns a debug representation.
func (s Selection) String() string {
	if s.IsEmpty() {
		return fmt.Sprintf("Caret(%d)", s.Head)
	}
	return fmt.Sprintf("Selection(%d->%d)", s.Anchor, s.Head)
}

func clamp(offset, size int64) int64 {
	if offset < 0 {
		return 0
	}
	if size >= 0 && offset > size {
		return size
	}
	return offset
}
