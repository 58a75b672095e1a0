package history

import (
	"github.com/dshills/deltabin/internal/engine/content"
)

// BeginGroup starts a command group.
// Commands pushed while grouping are combined into a single undo unit.
// Nested calls are ignored.
func (s *Stack) BeginGroup(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grouping {
		return
	}
	s.grouping = true
	s.groupName = name
	s.groupCmds = nil
}

// EndGroup finishes a command group.
// All commands since BeginGroup are combined into a CompoundCommand.
func (s *Stack) EndGroup() {
	s.mu.Lock()
	if !s.grouping {
		s.mu.Unlock()
		return
	}
	s.grouping = false
	if len(s.groupCmds) == 0 {
		s.groupCmds = nil
		s.mu.Unlock()
		return
	}

	compound := &CompoundCommand{
		Name:     s.groupName,
		Commands: s.groupCmds,
	}
	s.groupCmds = nil
	released := s.pushLocked(compound)
	observers := s.onAdded
	s.mu.Unlock()

	releaseAll(released)
	for _, fn := range observers {
		fn(compound)
	}
}

// CancelGroup ends a group without recording it.
// Commands already executed still affect the content.
func (s *Stack) CancelGroup() {
	s.mu.Lock()
	s.grouping = false
	dropped := s.groupCmds
	s.groupCmds = nil
	s.mu.Unlock()
	releaseAll(dropped)
}

// IsGrouping returns true if currently in a command group.
func (s *Stack) IsGrouping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grouping
}

// GroupScope provides a convenient way to group commands using defer.
// Usage:
//
//	func replaceAll(s *Stack, data content.Data) {
//	    defer s.GroupScope("Replace all").End()
//	    // ... multiple edits ...
//	}
type GroupScope struct {
	stack  *Stack
	active bool
}

// GroupScope starts a new group scope.
func (s *Stack) GroupScope(name string) *GroupScope {
	s.BeginGroup(name)
	return &GroupScope{stack: s, active: true}
}

// End ends the group scope. Only the first call has effect.
func (g *GroupScope) End() {
	if g.active {
		g.stack.EndGroup()
		g.active = false
	}
}

// Cancel cancels the group scope without creating a compound command.
func (g *GroupScope) Cancel() {
	if g.active {
		g.stack.CancelGroup()
		g.active = false
	}
}

// Transaction executes fn within a group. If fn fails, the commands it
// executed are undone and dropped. Inside an open group the commands join
// that group instead.
func (s *Stack) Transaction(name string, data content.Data, fn func() error) error {
	nested := s.IsGrouping()
	s.BeginGroup(name)
	s.mu.Lock()
	start := len(s.groupCmds)
	s.mu.Unlock()

	if err := fn(); err != nil {
		s.mu.Lock()
		executed := append([]Command(nil), s.groupCmds[start:]...)
		s.groupCmds = s.groupCmds[:start]
		s.mu.Unlock()
		for i := len(executed) - 1; i >= 0; i-- {
			_ = executed[i].Undo(data)
		}
		releaseAll(executed)
		if !nested {
			s.CancelGroup()
		}
		return err
	}

	if !nested {
		s.EndGroup()
	}
	return nil
}

// ExecuteGrouped executes multiple commands as a single undo unit.
func (s *Stack) ExecuteGrouped(name string, data content.Data, cmds ...Command) error {
	if len(cmds) == 0 {
		return nil
	}
	if len(cmds) == 1 {
		return s.Execute(cmds[0], data)
	}
	return s.Transaction(name, data, func() error {
		for _, cmd := range cmds {
			if err := s.Execute(cmd, data); err != nil {
				return err
			}
		}
		return nil
	})
}
