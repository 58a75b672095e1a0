// Package history provides undo/redo for binary content stores.
//
// The history system uses the Command pattern to encapsulate edits so they
// can be executed, undone, and redone. Key concepts:
//
// # Operations
//
// An Operation is a single atomic byte edit: a position, the bytes removed
// there and the bytes inserted there. Inverting an operation swaps the two.
//
// # Commands
//
// Commands implement the Command interface with Execute and Undo methods.
// Built-in commands include:
//   - InsertCommand: insert bytes at a position
//   - RemoveCommand: remove a byte range
//   - ModifyCommand: overwrite bytes in place
//   - ReplaceCommand: swap a range for bytes of any length
//   - FillCommand: insert or overwrite generated bytes
//   - InsertDataCommand: insert the content of another store
//   - CompoundCommand: group multiple commands as one undo unit
//
// # Stack
//
// The Stack keeps executed commands and a position. Commands before the
// position are applied, the rest form the redo tail, which the next Execute
// discards:
//
//	stack := NewStack()
//	stack.Execute(NewInsertCommand(0, []byte{0xFF}), data)
//	stack.Undo(data)
//	stack.Redo(data)
//
// # Sync Point
//
// SetSyncPoint records the position at save time. The content is modified
// whenever the position differs from the sync point, so undoing back to the
// saved state clears the modified flag again. If the saved state falls off
// the stack (undo limit, or a new edit after undoing past it), the content
// stays modified until the next save.
//
// # Command Grouping
//
// Multiple commands can be grouped as a single undo unit:
//
//	stack.BeginGroup("Replace all")
//	// ... multiple edits ...
//	stack.EndGroup()
package history
