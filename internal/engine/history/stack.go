package history

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/deltabin/internal/engine/content"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrGroupActive   = errors.New("command group in progress")
)

// undoEntry wraps a command with metadata.
type undoEntry struct {
	command   Command
	timestamp time.Time
}

// Stack is the undo/redo history of one content store.
//
// Commands [0, position) are applied; [position, len) form the redo tail.
// The sync point is the position recorded at the last save.
type Stack struct {
	mu sync.Mutex

	entries   []*undoEntry
	position  int
	syncPoint int
	// syncLost is set when the saved state was trimmed or discarded and
	// can no longer be reached.
	syncLost bool

	// Grouping state
	grouping  bool
	groupName string
	groupCmds []Command

	// Configuration
	maxEntries int

	// Observers
	onPosition []func(position int)
	onAdded    []func(cmd Command)
}

// Option configures a Stack.
type Option func(*Stack)

// WithMaxEntries bounds the number of undo entries. Zero means unlimited.
func WithMaxEntries(n int) Option {
	return func(s *Stack) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// NewStack creates an empty undo stack.
func NewStack(opts ...Option) *Stack {
	s := &Stack{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnPositionChanged registers fn to run after undo, redo and clear.
func (s *Stack) OnPositionChanged(fn func(position int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPosition = append(s.onPosition, fn)
}

// OnCommandAdded registers fn to run after a command enters the stack.
func (s *Stack) OnCommandAdded(fn func(cmd Command)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdded = append(s.onAdded, fn)
}

// Execute applies cmd to data and records it, discarding the redo tail.
func (s *Stack) Execute(cmd Command, data content.Data) error {
	if err := cmd.Execute(data); err != nil {
		return err
	}
	s.Push(cmd)
	return nil
}

// Push records an already applied command.
func (s *Stack) Push(cmd Command) {
	s.mu.Lock()
	if s.grouping {
		s.groupCmds = append(s.groupCmds, cmd)
		s.mu.Unlock()
		return
	}
	released := s.pushLocked(cmd)
	observers := s.onAdded
	s.mu.Unlock()

	releaseAll(released)
	for _, fn := range observers {
		fn(cmd)
	}
}

// pushLocked appends cmd and returns the commands that fell off the stack.
func (s *Stack) pushLocked(cmd Command) []Command {
	var dropped []Command
	for _, e := range s.entries[s.position:] {
		dropped = append(dropped, e.command)
	}
	if s.syncPoint > s.position {
		s.syncLost = true
	}
	for i := s.position; i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = append(s.entries[:s.position], &undoEntry{command: cmd, timestamp: time.Now()})
	s.position++
	if s.syncPoint > len(s.entries) {
		s.syncPoint = len(s.entries)
	}

	// Enforce max entries
	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		excess := len(s.entries) - s.maxEntries
		for _, e := range s.entries[:excess] {
			dropped = append(dropped, e.command)
		}
		s.entries = append([]*undoEntry(nil), s.entries[excess:]...)
		s.position -= excess
		s.syncPoint -= excess
		if s.syncPoint < 0 {
			s.syncPoint = 0
			s.syncLost = true
		}
	}
	return dropped
}

// Undo reverts the command before the current position.
func (s *Stack) Undo(data content.Data) error {
	s.mu.Lock()
	if s.grouping {
		s.mu.Unlock()
		return ErrGroupActive
	}
	if s.position == 0 {
		s.mu.Unlock()
		return ErrNothingToUndo
	}
	entry := s.entries[s.position-1]
	s.mu.Unlock()

	if err := entry.command.Undo(data); err != nil {
		return err
	}

	s.mu.Lock()
	s.position--
	pos, observers := s.position, s.onPosition
	s.mu.Unlock()
	for _, fn := range observers {
		fn(pos)
	}
	return nil
}

// Redo re-applies the command at the current position.
func (s *Stack) Redo(data content.Data) error {
	s.mu.Lock()
	if s.grouping {
		s.mu.Unlock()
		return ErrGroupActive
	}
	if s.position == len(s.entries) {
		s.mu.Unlock()
		return ErrNothingToRedo
	}
	entry := s.entries[s.position]
	s.mu.Unlock()

	if err := entry.command.Execute(data); err != nil {
		return err
	}

	s.mu.Lock()
	s.position++
	pos, observers := s.position, s.onPosition
	s.mu.Unlock()
	for _, fn := range observers {
		fn(pos)
	}
	return nil
}

// SetSyncPoint marks the current position as the saved state.
func (s *Stack) SetSyncPoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncPoint = s.position
	s.syncLost = false
}

// IsModified reports whether the content differs from the saved state.
func (s *Stack) IsModified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncLost || s.position != s.syncPoint
}

// Clear removes all history and resets position and sync point.
func (s *Stack) Clear() {
	s.mu.Lock()
	var dropped []Command
	for _, e := range s.entries {
		dropped = append(dropped, e.command)
	}
	dropped = append(dropped, s.groupCmds...)
	s.entries = nil
	s.position = 0
	s.syncPoint = 0
	s.syncLost = false
	s.grouping = false
	s.groupCmds = nil
	observers := s.onPosition
	s.mu.Unlock()

	releaseAll(dropped)
	for _, fn := range observers {
		fn(0)
	}
}

// Position returns the number of applied commands.
func (s *Stack) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// SyncPoint returns the position recorded at the last save.
func (s *Stack) SyncPoint() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncPoint
}

// Len returns the number of recorded commands including the redo tail.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CanUndo returns true if undo is available.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position > 0 && !s.grouping
}

// CanRedo returns true if redo is available.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position < len(s.entries) && !s.grouping
}

// UndoInfo returns info about available undo operations, oldest first.
func (s *Stack) UndoInfo() []OperationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return infoOf(s.entries[:s.position])
}

// RedoInfo returns info about available redo operations, next first.
func (s *Stack) RedoInfo() []OperationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return infoOf(s.entries[s.position:])
}

// SetMaxEntries changes the maximum number of undo entries.
// If the stack is larger, the oldest entries are removed.
func (s *Stack) SetMaxEntries(max int) {
	s.mu.Lock()
	if max < 0 {
		max = 0
	}
	s.maxEntries = max
	var dropped []Command
	if max > 0 && len(s.entries) > max {
		excess := len(s.entries) - max
		if excess > s.position {
			excess = s.position
		}
		for _, e := range s.entries[:excess] {
			dropped = append(dropped, e.command)
		}
		s.entries = append([]*undoEntry(nil), s.entries[excess:]...)
		s.position -= excess
		s.syncPoint -= excess
		if s.syncPoint < 0 {
			s.syncPoint = 0
			s.syncLost = true
		}
	}
	s.mu.Unlock()
	releaseAll(dropped)
}

// MaxEntries returns the maximum number of undo entries.
func (s *Stack) MaxEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxEntries
}

func infoOf(entries []*undoEntry) []OperationInfo {
	result := make([]OperationInfo, len(entries))
	for i, entry := range entries {
		result[i] = OperationInfo{
			Description: entry.command.Description(),
			Timestamp:   entry.timestamp,
		}
	}
	return result
}

func releaseAll(cmds []Command) {
	for _, cmd := range cmds {
		if r, ok := cmd.(Releaser); ok {
			r.Release()
		}
	}
}
