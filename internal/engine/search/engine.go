package search

import (
	"fmt"

	"github.com/dshills/deltabin/internal/charset"
	"github.com/dshills/deltabin/internal/engine/content"
	"github.com/dshills/deltabin/internal/engine/history"
	"github.com/dshills/deltabin/internal/logging"
)

// Result reports the outcome of a search.
type Result struct {
	Found   int
	Current int
}

// Engine runs searches against a content store and keeps the resulting
// match set for navigation and replace.
//
// Engine is not thread-safe; it is driven by the owning session.
type Engine struct {
	charset *charset.Charset
	limit   int
	logger  *logging.Logger
	matches *MatchSet

	onFound   []func(ms *MatchSet)
	onCleared []func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithCharset sets the charset for TEXT mode decode and encode.
func WithCharset(cs *charset.Charset) Option {
	return func(e *Engine) {
		if cs != nil {
			e.charset = cs
		}
	}
}

// WithMatchLimit caps the matches per search, at most MaxMatches.
func WithMatchLimit(n int) Option {
	return func(e *Engine) {
		e.limit = clampLimit(n)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine using UTF-8 and the default limit.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		charset: charset.UTF8(),
		limit:   MaxMatches,
		logger:  logging.Nop(),
		matches: NewMatchSet(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("search")
	return e
}

// OnMatchesFound registers fn to run after a search that found matches.
func (e *Engine) OnMatchesFound(fn func(ms *MatchSet)) {
	e.onFound = append(e.onFound, fn)
}

// OnMatchesCleared registers fn to run when the match set becomes empty.
func (e *Engine) OnMatchesCleared(fn func()) {
	e.onCleared = append(e.onCleared, fn)
}

// Charset returns the charset used for TEXT mode.
func (e *Engine) Charset() *charset.Charset {
	return e.charset
}

// SetCharset changes the TEXT mode charset. Existing matches are cleared
// because their byte lengths depend on the charset.
func (e *Engine) SetCharset(cs *charset.Charset) {
	if cs == nil || cs == e.charset {
		return
	}
	e.charset = cs
	e.Clear()
}

// MatchLimit returns the per-search match cap.
func (e *Engine) MatchLimit() int {
	return e.limit
}

// Matches returns the current match set.
func (e *Engine) Matches() *MatchSet {
	return e.matches
}

// Current returns the current match.
func (e *Engine) Current() (Match, bool) {
	return e.matches.Current()
}

// Result returns the match count and current index.
func (e *Engine) Result() Result {
	return Result{Found: e.matches.Len(), Current: e.matches.Index()}
}

// Clear drops all matches.
func (e *Engine) Clear() {
	wasEmpty := e.matches.IsEmpty()
	e.matches.Clear()
	if !wasEmpty {
		e.notifyCleared()
	}
}

// Find runs a search over data and replaces the match set. caret is the
// caret's data position. An empty condition clears the matches without
// scanning.
//
// BINARY mode always scans forward. It starts at the caret, moving one
// byte past it when the current match sits there, and at 0 when there is
// no current match and FromCursor is not set.
func (e *Engine) Find(data content.Data, cond Condition, params Parameters, caret int64) (Result, error) {
	if err := cond.Validate(); err != nil {
		return e.Result(), err
	}
	if cond.IsEmpty() {
		e.Clear()
		return e.Result(), nil
	}

	var (
		found []Match
		err   error
	)
	switch cond.Mode {
	case ModeText:
		start, rerr := ResolveStart(params, caret, data.Len())
		if rerr != nil {
			return e.Result(), rerr
		}
		params.StartPosition = start
		found, err = FindText(data, cond, params.Direction, start, params.MultipleMatches, e.charset, e.limit)
	case ModeBinary:
		start := caret
		if cur, ok := e.matches.Current(); ok {
			if cur.Position == start {
				start++
			}
			e.matches.Clear()
		} else if !params.FromCursor {
			start = 0
		}
		params.StartPosition = start
		found, err = FindBinary(data, cond.Binary, start, params.MultipleMatches, e.limit)
	}
	if err != nil {
		return e.Result(), fmt.Errorf("search %v: %w", cond.Mode, err)
	}

	e.matches = NewMatchSet(found)
	e.logger.Debug("%v search from %d found %d matches", cond.Mode, params.StartPosition, len(found))
	if len(found) > 0 {
		for _, fn := range e.onFound {
			fn(e.matches)
		}
	} else {
		e.notifyCleared()
	}
	return e.Result(), nil
}

// Next selects the following match.
func (e *Engine) Next() (Match, error) {
	m, ok := e.matches.Next()
	if !ok {
		return Match{}, ErrNoMatch
	}
	return m, nil
}

// Previous selects the preceding match.
func (e *Engine) Previous() (Match, error) {
	m, ok := e.matches.Previous()
	if !ok {
		return Match{}, ErrNoMatch
	}
	return m, nil
}

// Payload returns the bytes a replacement condition stands for: the raw
// bytes in BINARY mode, the text encoded with the engine charset otherwise.
func (e *Engine) Payload(repl Condition) ([]byte, error) {
	switch repl.Mode {
	case ModeBinary:
		return append([]byte(nil), repl.Binary...), nil
	case ModeText:
		return e.charset.Encode(repl.Text)
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidMode, repl.Mode)
}

// Replace swaps the current match for repl as one undoable command on
// stack. It returns the replaced match and false without error when there
// is no current match. Later matches are shifted to stay aligned.
func (e *Engine) Replace(stack *history.Stack, data content.Data, repl Condition) (Match, bool, error) {
	m, ok := e.matches.Current()
	if !ok {
		return Match{}, false, nil
	}
	payload, err := e.Payload(repl)
	if err != nil {
		return Match{}, false, err
	}

	cmd := history.NewReplaceCommand(m.Position, m.Length, payload)
	if err := stack.Execute(cmd, data); err != nil {
		return Match{}, false, fmt.Errorf("replace at %d: %w", m.Position, err)
	}

	e.matches.Remove(m)
	e.matches.Shift(m.Position, m.Length, int64(len(payload)))
	if e.matches.IsEmpty() {
		e.notifyCleared()
	}
	return m, true, nil
}

// ReplaceAll replaces every match in the set, starting at the current one,
// as a single undo step. It returns the number of replacements.
func (e *Engine) ReplaceAll(stack *history.Stack, data content.Data, repl Condition) (int, error) {
	if e.matches.IsEmpty() {
		return 0, nil
	}
	n := 0
	err := stack.Transaction("Replace all", data, func() error {
		for !e.matches.IsEmpty() {
			_, ok, err := e.Replace(stack, data, repl)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			n++
		}
		return nil
	})
	if err != nil {
		e.Clear()
		return 0, err
	}
	e.logger.Debug("replaced %d matches", n)
	return n, nil
}

func (e *Engine) notifyCleared() {
	for _, fn := range e.onCleared {
		fn()
	}
}
