package caret

// Caret is the single editing position of a document.
type Caret struct {
	sel Selection
}

// New creates a caret at offset 0.
func New() *Caret {
	return &Caret{}
}

// Position returns the head offset.
func (c *Caret) Position() int64 {
	return c.sel.Head
}

// SetPosition moves the caret and clears any selection.
func (c *Caret) SetPosition(offset int64) {
	if offset < 0 {
		offset = 0
	}
	c.sel = Point(offset)
}

// Selection returns the current selection.
func (c *Caret) Selection() Selection {
	return c.sel
}

// Select selects the bytes between anchor and head, leaving the caret at head.
func (c *Caret) Select(anchor, head int64) {
	c.sel = Selection{Anchor: clamp(anchor, -1), Head: clamp(head, -1)}
}

// SelectRange selects length bytes starting at start.
func (c *Caret) SelectRange(start, length int64) {
	c.Select(start, start+length)
}

// HasSelection returns true if at least one byte is selected.
func (c *Caret) HasSelection() bool {
	return !c.sel.IsEmpty()
}

// ClearSelection collapses the selection onto the caret.
func (c *Caret) ClearSelection() {
	c.sel = Point(c.sel.Head)
}

// Clamp keeps the caret inside a document of the given size.
func (c *Caret) Clamp(size int64) {
	c.sel = c.sel.Clamp(size)
}

// Reset moves the caret back to offset 0.
func (c *Caret) Reset() {
	c.sel = Selection{}
}

// Transform adjusts the caret for an edit that removed removed bytes and
// inserted inserted bytes at pos.
func (c *Caret) Transform(pos, removed, inserted int64) {
	c.sel = Selection{
		Anchor: transformOffset(c.sel.Anchor, pos, removed, inserted),
		Head:   transformOffset(c.sel.Head, pos, removed, inserted),
	}
}

func transformOffset(offset, pos, removed, inserted int64) int64 {
	switch {
	case offset < pos:
		return offset
	case offset < pos+removed:
		// Inside the removed range: snap to the end of the new bytes.
		return pos + inserted
	default:
		return offset - removed + inserted
	}
}
