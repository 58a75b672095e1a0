// Package session manages one editable binary document.
//
// A Session owns the active content store, its undo history, the caret and
// the search state. It opens a source either as a delta document reading
// through a shared segment repository or as a flat in-memory buffer, and
// can switch between the two. Saves advance the undo sync point; closing
// or switching a modified document goes through Release, which lets the
// caller save, discard or cancel.
//
// Basic usage:
//
//	s := session.New(session.WithDeltaMode(true))
//	defer s.Dispose()
//
//	src, _ := source.NewFile("image.bin")
//	if err := s.Open(src, true); err != nil {
//	    return err
//	}
//	_ = s.Insert(0, []byte{0xCA, 0xFE})
//	_ = s.Save(nil)
package session
