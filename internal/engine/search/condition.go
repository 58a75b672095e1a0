package search

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Mode selects how a pattern is compared against content.
type Mode uint8

const (
	// ModeText matches decoded characters.
	ModeText Mode = iota
	// ModeBinary matches raw bytes.
	ModeBinary
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeText:
		return "TEXT"
	case ModeBinary:
		return "BINARY"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// ParseMode parses "text" or "binary" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "text":
		return ModeText, nil
	case "binary", "hex":
		return ModeBinary, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Direction is the scan direction.
type Direction uint8

const (
	// Forward scans toward the end of the content.
	Forward Direction = iota
	// Backward scans toward the start of the content.
	Backward
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "FORWARD"
	case Backward:
		return "BACKWARD"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// Condition is what to look for.
type Condition struct {
	Mode Mode

	// Text is the pattern for ModeText.
	Text string

	// Binary is the pattern for ModeBinary.
	Binary []byte

	// MatchCase disables lower-case comparison in ModeText.
	MatchCase bool
}

// TextCondition returns a ModeText condition.
func TextCondition(text string, matchCase bool) Condition {
	return Condition{Mode: ModeText, Text: text, MatchCase: matchCase}
}

// BinaryCondition returns a ModeBinary condition.
func BinaryCondition(p []byte) Condition {
	return Condition{Mode: ModeBinary, Binary: p}
}

// HexCondition parses a hex string such as "DE AD" or "dead" into a
// ModeBinary condition. Spaces are ignored.
func HexCondition(s string) (Condition, error) {
	p, err := ParseHex(s)
	if err != nil {
		return Condition{}, err
	}
	return BinaryCondition(p), nil
}

// ParseHex decodes a hex string, ignoring whitespace.
func ParseHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	p, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse hex %q: %w", s, err)
	}
	return p, nil
}

// IsEmpty returns true if the condition has no pattern for its mode.
func (c Condition) IsEmpty() bool {
	switch c.Mode {
	case ModeText:
		return c.Text == ""
	case ModeBinary:
		return len(c.Binary) == 0
	}
	return true
}

// Validate checks the mode.
func (c Condition) Validate() error {
	if c.Mode != ModeText && c.Mode != ModeBinary {
		return fmt.Errorf("%w: %v", ErrInvalidMode, c.Mode)
	}
	return nil
}

// Parameters control where and how a scan runs.
type Parameters struct {
	Direction Direction

	// FromCursor starts the scan at the caret instead of an end of the content.
	FromCursor bool

	// MultipleMatches collects up to the match limit instead of stopping
	// at the first match.
	MultipleMatches bool

	// StartPosition is the resolved start, filled in by ResolveStart.
	StartPosition int64
}

// ResolveStart computes the scan start: the caret when FromCursor is set,
// otherwise 0 going forward or size-1 going backward.
func ResolveStart(p Parameters, caret, size int64) (int64, error) {
	if p.FromCursor {
		if caret < 0 {
			return 0, nil
		}
		if caret > size {
			return size, nil
		}
		return caret, nil
	}
	switch p.Direction {
	case Forward:
		return 0, nil
	case Backward:
		return size - 1, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidMode, p.Direction)
}
