// Package caret tracks the editing position within a byte document.
//
// A Caret holds a single Selection using the anchor/head model:
//   - Anchor: the offset where the selection started
//   - Head: the current caret offset (where the next edit applies)
//
// When Anchor == Head the selection is empty and the caret is a plain
// insertion point. Offsets are byte offsets in the range [0, size].
//
// Edits made elsewhere in the document move the caret through Transform,
// so the caret keeps pointing at the same byte after an insert or remove
// before it.
//
// Caret is not thread-safe; the owning session serializes access.
package caret
