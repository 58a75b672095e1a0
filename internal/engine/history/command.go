package history

import (
	"bytes"
	"fmt"

	"github.com/dshills/deltabin/internal/engine/content"
)

// Command represents a reversible edit against a content store.
type Command interface {
	// Execute performs the command and returns an error if it fails.
	Execute(data content.Data) error

	// Undo reverses the command and returns an error if it fails.
	Undo(data content.Data) error

	// Description returns a human-readable description of the command.
	Description() string
}

// Releaser is implemented by commands holding resources that must be freed
// when the command leaves the stack for good.
type Releaser interface {
	Release()
}

// opCommand executes a single recorded Operation.
type opCommand struct {
	op *Operation
}

func (c *opCommand) undo(data content.Data) error {
	if c.op == nil {
		return nil
	}
	return c.op.Invert().Apply(data)
}

// Operation returns the recorded edit, or nil before the first Execute.
func (c *opCommand) Operation() *Operation {
	return c.op
}

// InsertCommand inserts bytes at a position.
type InsertCommand struct {
	opCommand
	Position int64
	Data     []byte
}

// NewInsertCommand creates a new insert command.
func NewInsertCommand(pos int64, p []byte) *InsertCommand {
	return &InsertCommand{Position: pos, Data: append([]byte(nil), p...)}
}

// Execute inserts the bytes.
func (c *InsertCommand) Execute(data content.Data) error {
	op := NewOperation(c.Position, nil, c.Data)
	if err := op.Apply(data); err != nil {
		return err
	}
	c.op = op
	return nil
}

// Undo removes the inserted bytes.
func (c *InsertCommand) Undo(data content.Data) error {
	return c.undo(data)
}

// Description returns a human-readable description.
func (c *InsertCommand) Description() string {
	return fmt.Sprintf("Insert %s at %d", byteCount(int64(len(c.Data))), c.Position)
}

// RemoveCommand removes a byte range.
type RemoveCommand struct {
	opCommand
	Position int64
	Length   int64
}

// NewRemoveCommand creates a new remove command.
func NewRemoveCommand(pos, length int64) *RemoveCommand {
	return &RemoveCommand{Position: pos, Length: length}
}

// Execute captures and removes the range.
func (c *RemoveCommand) Execute(data content.Data) error {
	removed, err := content.ReadRange(data, c.Position, c.Length)
	if err != nil {
		return fmt.Errorf("remove at %d: %w", c.Position, err)
	}
	op := NewOperation(c.Position, removed, nil)
	if err := op.Apply(data); err != nil {
		return err
	}
	c.op = op
	return nil
}

// Undo puts the removed bytes back.
func (c *RemoveCommand) Undo(data content.Data) error {
	return c.undo(data)
}

// Description returns a human-readable description.
func (c *RemoveCommand) Description() string {
	return fmt.Sprintf("Remove %s at %d", byteCount(c.Length), c.Position)
}

// ModifyCommand overwrites bytes in place. Writing past the end extends
// the content.
type ModifyCommand struct {
	opCommand
	Position int64
	Data     []byte
}

// NewModifyCommand creates a new overwrite command.
func NewModifyCommand(pos int64, p []byte) *ModifyCommand {
	return &ModifyCommand{Position: pos, Data: append([]byte(nil), p...)}
}

// Execute overwrites the bytes.
func (c *ModifyCommand) Execute(data content.Data) error {
	if err := content.CheckInsert(c.Position, data.Len()); err != nil {
		return fmt.Errorf("overwrite at %d: %w", c.Position, err)
	}
	n := int64(len(c.Data))
	if rest := data.Len() - c.Position; n > rest {
		n = rest
	}
	old, err := content.ReadRange(data, c.Position, n)
	if err != nil {
		return err
	}
	op := NewOperation(c.Position, old, c.Data)
	if err := op.Apply(data); err != nil {
		return err
	}
	c.op = op
	return nil
}

// Undo restores the overwritten bytes.
func (c *ModifyCommand) Undo(data content.Data) error {
	return c.undo(data)
}

// Description returns a human-readable description.
func (c *ModifyCommand) Description() string {
	return fmt.Sprintf("Overwrite %s at %d", byteCount(int64(len(c.Data))), c.Position)
}

// ReplaceCommand replaces a byte range with new bytes of any length.
type ReplaceCommand struct {
	opCommand
	Position int64
	Length   int64
	Data     []byte
}

// NewReplaceCommand creates a new replace command.
func NewReplaceCommand(pos, length int64, p []byte) *ReplaceCommand {
	return &ReplaceCommand{Position: pos, Length: length, Data: append([]byte(nil), p...)}
}

// Execute swaps the range for the new bytes.
func (c *ReplaceCommand) Execute(data content.Data) error {
	old, err := content.ReadRange(data, c.Position, c.Length)
	if err != nil {
		return fmt.Errorf("replace at %d: %w", c.Position, err)
	}
	op := NewOperation(c.Position, old, c.Data)
	if err := op.Apply(data); err != nil {
		return err
	}
	c.op = op
	return nil
}

// Undo restores the original range.
func (c *ReplaceCommand) Undo(data content.Data) error {
	return c.undo(data)
}

// Description returns a human-readable description.
func (c *ReplaceCommand) Description() string {
	if c.Length == 0 {
		return fmt.Sprintf("Insert %s at %d", byteCount(int64(len(c.Data))), c.Position)
	}
	if len(c.Data) == 0 {
		return fmt.Sprintf("Remove %s at %d", byteCount(c.Length), c.Position)
	}
	return fmt.Sprintf("Replace %s with %s at %d", byteCount(c.Length), byteCount(int64(len(c.Data))), c.Position)
}

// InsertDataCommand inserts the content of another store.
// When Owned is set the payload is disposed once the command is released.
type InsertDataCommand struct {
	Position int64
	Payload  content.Data
	Owned    bool

	inserted int64
}

// NewInsertDataCommand creates a command inserting payload at pos.
func NewInsertDataCommand(pos int64, payload content.Data, owned bool) *InsertDataCommand {
	return &InsertDataCommand{Position: pos, Payload: payload, Owned: owned}
}

// Execute inserts the payload.
func (c *InsertDataCommand) Execute(data content.Data) error {
	n := c.Payload.Len()
	if err := data.InsertData(c.Position, c.Payload); err != nil {
		return fmt.Errorf("insert data at %d: %w", c.Position, err)
	}
	c.inserted = n
	return nil
}

// Undo removes the inserted payload.
func (c *InsertDataCommand) Undo(data content.Data) error {
	if c.inserted == 0 {
		return nil
	}
	if err := data.Remove(c.Position, c.inserted); err != nil {
		return fmt.Errorf("undo insert data: %w", err)
	}
	return nil
}

// Description returns a human-readable description.
func (c *InsertDataCommand) Description() string {
	return fmt.Sprintf("Insert %s at %d", byteCount(c.Payload.Len()), c.Position)
}

// Release disposes an owned payload.
func (c *InsertDataCommand) Release() {
	if c.Owned && c.Payload != nil && !c.Payload.Disposed() {
		_ = c.Payload.Dispose()
	}
}

// FillPattern selects the bytes produced by FillCommand.
type FillPattern int

const (
	// FillEmpty fills with 0x00.
	FillEmpty FillPattern = iota
	// FillSpace fills with 0x20.
	FillSpace
	// FillSample repeats a caller supplied sample.
	FillSample
)

// String returns the pattern name.
func (p FillPattern) String() string {
	switch p {
	case FillEmpty:
		return "zeros"
	case FillSpace:
		return "spaces"
	case FillSample:
		return "sample"
	default:
		return fmt.Sprintf("FillPattern(%d)", int(p))
	}
}

// ParseFillPattern maps a pattern name such as "zero", "space" or
// "sample" to a FillPattern.
func ParseFillPattern(name string) (FillPattern, error) {
	switch name {
	case "zero", "zeros", "empty":
		return FillEmpty, nil
	case "space", "spaces":
		return FillSpace, nil
	case "sample":
		return FillSample, nil
	}
	return 0, fmt.Errorf("unknown fill pattern %q", name)
}

// FillCommand inserts or overwrites Count generated bytes.
type FillCommand struct {
	opCommand
	Position  int64
	Count     int64
	Pattern   FillPattern
	Sample    []byte
	Overwrite bool
}

// NewFillCommand creates a fill command.
func NewFillCommand(pos, count int64, pattern FillPattern, sample []byte, overwrite bool) *FillCommand {
	return &FillCommand{
		Position:  pos,
		Count:     count,
		Pattern:   pattern,
		Sample:    append([]byte(nil), sample...),
		Overwrite: overwrite,
	}
}

// Bytes returns the generated fill bytes.
func (c *FillCommand) Bytes() ([]byte, error) {
	if c.Count < 0 {
		return nil, content.ErrInvalidLength
	}
	switch c.Pattern {
	case FillEmpty:
		return make([]byte, c.Count), nil
	case FillSpace:
		return bytes.Repeat([]byte{' '}, int(c.Count)), nil
	case FillSample:
		if len(c.Sample) == 0 {
			return nil, fmt.Errorf("fill: empty sample")
		}
		out := make([]byte, c.Count)
		for i := 0; i < len(out); i += len(c.Sample) {
			copy(out[i:], c.Sample)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("fill: unknown pattern %d", int(c.Pattern))
	}
}

// Execute generates and writes the fill bytes.
func (c *FillCommand) Execute(data content.Data) error {
	fill, err := c.Bytes()
	if err != nil {
		return err
	}
	if err := content.CheckInsert(c.Position, data.Len()); err != nil {
		return fmt.Errorf("fill at %d: %w", c.Position, err)
	}
	var old []byte
	if c.Overwrite {
		n := c.Count
		if rest := data.Len() - c.Position; n > rest {
			n = rest
		}
		if old, err = content.ReadRange(data, c.Position, n); err != nil {
			return err
		}
	}
	op := NewOperation(c.Position, old, fill)
	if err := op.Apply(data); err != nil {
		return err
	}
	c.op = op
	return nil
}

// Undo reverses the fill.
func (c *FillCommand) Undo(data content.Data) error {
	return c.undo(data)
}

// Description returns a human-readable description.
func (c *FillCommand) Description() string {
	return fmt.Sprintf("Fill %s with %s at %d", byteCount(c.Count), c.Pattern, c.Position)
}

// CompoundCommand groups multiple commands as one undo unit.
type CompoundCommand struct {
	Name     string
	Commands []Command
}

// NewCompoundCommand creates a new compound command.
func NewCompoundCommand(name string, commands ...Command) *CompoundCommand {
	return &CompoundCommand{
		Name:     name,
		Commands: commands,
	}
}

// Execute runs all commands in order.
func (c *CompoundCommand) Execute(data content.Data) error {
	for i, cmd := range c.Commands {
		if err := cmd.Execute(data); err != nil {
			// On error, try to undo what we've done
			for j := i - 1; j >= 0; j-- {
				_ = c.Commands[j].Undo(data)
			}
			return fmt.Errorf("compound command '%s' step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Undo reverses all commands in reverse order.
func (c *CompoundCommand) Undo(data content.Data) error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(data); err != nil {
			return fmt.Errorf("undo compound command '%s' step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Description returns the compound command's name.
func (c *CompoundCommand) Description() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Commands) == 1 {
		return c.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(c.Commands))
}

// Release releases every member command.
func (c *CompoundCommand) Release() {
	for _, cmd := range c.Commands {
		if r, ok := cmd.(Releaser); ok {
			r.Release()
		}
	}
}

// Add adds a command to the compound command.
func (c *CompoundCommand) Add(cmd Command) {
	c.Commands = append(c.Commands, cmd)
}

// IsEmpty returns true if the compound command has no commands.
func (c *CompoundCommand) IsEmpty() bool {
	return len(c.Commands) == 0
}

func byteCount(n int64) string {
	if n == 1 {
		return "1 byte"
	}
	return fmt.Sprintf("%d bytes", n)
}
