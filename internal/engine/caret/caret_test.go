package caret

import "testing"

func TestSelectionBounds(t *testing.T) {
	tests := []struct {
		name      string
		sel       Selection
		start     int64
		end       int64
		forward   bool
		wantEmpty bool
	}{
		{"point", Point(5), 5, 5, true, true},
		{"forward", Selection{Anchor: 2, Head: 8}, 2, 8, true, false},
		{"backward", Selection{Anchor: 8, Head: 2}, 2, 8, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.Start(); got != tt.start {
				t.Errorf("Start() = %d, want %d", got, tt.start)
			}
			if got := tt.sel.End(); got != tt.end {
				t.Errorf("End() = %d, want %d", got, tt.end)
			}
			if got := tt.sel.IsForward(); got != tt.forward {
				t.Errorf("IsForward() = %v, want %v", got, tt.forward)
			}
			if got := tt.sel.IsEmpty(); got != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.wantEmpty)
			}
			if got := tt.sel.Len(); got != tt.end-tt.start {
				t.Errorf("Len() = %d, want %d", got, tt.end-tt.start)
			}
		})
	}
}

func TestSelectionContains(t *testing.T) {
	sel := Selection{Anchor: 4, Head: 2}
	for offset, want := range map[int64]bool{1: false, 2: true, 3: true, 4: false} {
		if got := sel.Contains(offset); got != want {
			t.Errorf("Contains(%d) = %v, want %v", offset, got, want)
		}
	}
}

func TestCaretSetPosition(t *testing.T) {
	c := New()
	c.Select(1, 4)
	if !c.HasSelection() {
		t.Fatal("expected selection")
	}

	c.SetPosition(7)
	if c.Position() != 7 {
		t.Errorf("Position() = %d, want 7", c.Position())
	}
	if c.HasSelection() {
		t.Error("SetPosition should clear the selection")
	}

	c.SetPosition(-3)
	if c.Position() != 0 {
		t.Errorf("Position() = %d, want 0", c.Position())
	}
}

func TestCaretSelectRange(t *testing.T) {
	c := New()
	c.SelectRange(10, 4)

	sel := c.Selection()
	if sel.Start() != 10 || sel.End() != 14 {
		t.Errorf("Selection() = %v, want 10..14", sel)
	}
	if c.Position() != 14 {
		t.Errorf("Position() = %d, want 14", c.Position())
	}

	c.ClearSelection()
	if c.HasSelection() || c.Position() != 14 {
		t.Errorf("after ClearSelection: %v", c.Selection())
	}
}

func TestCaretClamp(t *testing.T) {
	c := New()
	c.Select(3, 20)
	c.Clamp(10)

	sel := c.Selection()
	if sel.Anchor != 3 || sel.Head != 10 {
		t.Errorf("Clamp(10) = %v, want 3->10", sel)
	}

	c.Clamp(0)
	if c.Position() != 0 || c.HasSelection() {
		t.Errorf("Clamp(0) = %v, want Caret(0)", c.Selection())
	}
}

func TestCaretTransform(t *testing.T) {
	tests := []struct {
		name     string
		caret    int64
		pos      int64
		removed  int64
		inserted int64
		want     int64
	}{
		{"edit after caret", 5, 8, 2, 3, 5},
		{"insert before caret", 5, 2, 0, 3, 8},
		{"insert at caret", 5, 5, 0, 2, 7},
		{"remove before caret", 5, 0, 2, 0, 3},
		{"remove around caret", 5, 4, 4, 0, 4},
		{"replace around caret", 5, 4, 4, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.SetPosition(tt.caret)
			c.Transform(tt.pos, tt.removed, tt.inserted)
			if got := c.Position(); got != tt.want {
				t.Errorf("Position() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCaretReset(t *testing.T) {
	c := New()
	c.Select(2, 9)
	c.Reset()
	if c.Position() != 0 || c.HasSelection() {
		t.Errorf("Reset() left %v", c.Selection())
	}
}
