package session

import (
	"github.com/dshills/deltabin/internal/engine/history"
)

// Execute runs cmd against the document as one undo step.
func (s *Session) Execute(cmd history.Command) error {
	if err := s.checkEditable(); err != nil {
		return err
	}
	return s.stack.Execute(cmd, s.data)
}

// Insert inserts p at pos.
func (s *Session) Insert(pos int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := s.Execute(history.NewInsertCommand(pos, p)); err != nil {
		return err
	}
	s.edited(pos, 0, int64(len(p)))
	return nil
}

// Remove deletes length bytes at pos.
func (s *Session) Remove(pos, length int64) error {
	if length == 0 {
		return nil
	}
	if err := s.Execute(history.NewRemoveCommand(pos, length)); err != nil {
		return err
	}
	s.edited(pos, length, 0)
	return nil
}

// Overwrite replaces bytes at pos in place, extending the document when p
// runs past the end.
func (s *Session) Overwrite(pos int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	size := s.data.Len()
	if err := s.Execute(history.NewModifyCommand(pos, p)); err != nil {
		return err
	}
	s.edited(pos, min(int64(len(p)), size-pos), int64(len(p)))
	return nil
}

// Fill writes count generated bytes at pos, inserting them or overwriting
// the existing bytes.
func (s *Session) Fill(pos, count int64, pattern history.FillPattern, sample []byte, overwrite bool) error {
	if count == 0 {
		return nil
	}
	size := s.data.Len()
	if err := s.Execute(history.NewFillCommand(pos, count, pattern, sample, overwrite)); err != nil {
		return err
	}
	var removed int64
	if overwrite {
		removed = min(count, size-pos)
	}
	s.edited(pos, removed, count)
	return nil
}

// Undo reverts the last edit. Matches are dropped since their positions
// no longer describe the content.
func (s *Session) Undo() error {
	if err := s.stack.Undo(s.data); err != nil {
		return err
	}
	s.reverted()
	return nil
}

// Redo re-applies the last undone edit.
func (s *Session) Redo() error {
	if err := s.stack.Redo(s.data); err != nil {
		return err
	}
	s.reverted()
	return nil
}

// Transaction runs fn as a single undo step. Edits made by fn are rolled
// back when it fails.
func (s *Session) Transaction(name string, fn func() error) error {
	if err := s.checkEditable(); err != nil {
		return err
	}
	err := s.stack.Transaction(name, s.data, fn)
	if err != nil {
		s.reverted()
	}
	return err
}

func (s *Session) checkEditable() error {
	if s.disposed {
		return ErrClosed
	}
	if !s.writable {
		target := ""
		if s.src != nil {
			target = s.src.Name()
		}
		return NewOperationError("edit", target, ErrReadOnly)
	}
	return nil
}

func (s *Session) edited(pos, removed, inserted int64) {
	s.caret.Transform(pos, removed, inserted)
	s.caret.Clamp(s.data.Len())
	s.search.Matches().Shift(pos, removed, inserted)
}

func (s *Session) reverted() {
	s.search.Clear()
	s.caret.Clamp(s.data.Len())
}
