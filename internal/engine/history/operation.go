package history

import (
	"fmt"
	"time"

	"github.com/dshills/deltabin/internal/engine/content"
)

// Operation represents a single undoable byte edit.
// It captures everything needed to undo or redo the edit.
type Operation struct {
	// Edit data
	Position int64  // Where the edit happened
	Removed  []byte // Bytes taken out at Position (for undo)
	Inserted []byte // Bytes put in at Position (for redo)

	// Metadata
	Timestamp time.Time // When the operation occurred
}

// NewOperation creates a new operation.
func NewOperation(pos int64, removed, inserted []byte) *Operation {
	return &Operation{
		Position:  pos,
		Removed:   removed,
		Inserted:  inserted,
		Timestamp: time.Now(),
	}
}

// IsInsert returns true if this operation is a pure insertion.
func (op *Operation) IsInsert() bool {
	return len(op.Removed) == 0 && len(op.Inserted) > 0
}

// IsRemove returns true if this operation is a pure removal.
func (op *Operation) IsRemove() bool {
	return len(op.Removed) > 0 && len(op.Inserted) == 0
}

// IsReplace returns true if this operation swaps bytes.
func (op *Operation) IsReplace() bool {
	return len(op.Removed) > 0 && len(op.Inserted) > 0
}

// IsNoop returns true if this operation makes no changes.
func (op *Operation) IsNoop() bool {
	return len(op.Removed) == 0 && len(op.Inserted) == 0
}

// BytesDelta returns the change in content length.
func (op *Operation) BytesDelta() int64 {
	return int64(len(op.Inserted)) - int64(len(op.Removed))
}

// Invert returns the operation that undoes this one.
func (op *Operation) Invert() *Operation {
	return &Operation{
		Position:  op.Position,
		Removed:   op.Inserted,
		Inserted:  op.Removed,
		Timestamp: op.Timestamp,
	}
}

// Clone creates a deep copy of the operation.
func (op *Operation) Clone() *Operation {
	return &Operation{
		Position:  op.Position,
		Removed:   append([]byte(nil), op.Removed...),
		Inserted:  append([]byte(nil), op.Inserted...),
		Timestamp: op.Timestamp,
	}
}

// Apply removes len(Removed) bytes at Position and inserts Inserted.
// If the insertion fails the removed bytes are put back.
func (op *Operation) Apply(data content.Data) error {
	if len(op.Removed) > 0 {
		if err := data.Remove(op.Position, int64(len(op.Removed))); err != nil {
			return fmt.Errorf("remove %d bytes at %d: %w", len(op.Removed), op.Position, err)
		}
	}
	if len(op.Inserted) > 0 {
		if err := data.Insert(op.Position, op.Inserted); err != nil {
			if len(op.Removed) > 0 {
				_ = data.Insert(op.Position, op.Removed)
			}
			return fmt.Errorf("insert %d bytes at %d: %w", len(op.Inserted), op.Position, err)
		}
	}
	return nil
}

// OperationInfo describes an undo or redo entry.
type OperationInfo struct {
	Description string
	Timestamp   time.Time
}
