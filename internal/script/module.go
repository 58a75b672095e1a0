package script

import (
	"encoding/hex"
	"errors"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/deltabin/internal/engine/history"
	"github.com/dshills/deltabin/internal/engine/search"
	"github.com/dshills/deltabin/internal/session"
	"github.com/dshills/deltabin/internal/source"
)

const moduleName = "deltabin"

// module builds the deltabin table. Offsets are 0-based byte positions;
// byte strings are Lua strings.
func (r *Runner) module() *lua.LTable {
	funcs := map[string]lua.LGFunction{
		"open":        r.open,
		"close":       r.close,
		"size":        r.size,
		"read":        r.read,
		"hex":         r.hexRead,
		"insert":      r.insert,
		"remove":      r.remove,
		"overwrite":   r.overwrite,
		"fill":        r.fill,
		"find":        r.find,
		"find_hex":    r.findHex,
		"next_match":  r.nextMatch,
		"replace":     r.replace,
		"replace_hex": r.replaceHex,
		"undo":        r.undo,
		"redo":        r.redo,
		"modified":    r.modified,
		"save":        r.save,
		"mode":        r.mode,
		"switch_mode": r.switchMode,
		"status":      r.status,
	}
	mod := r.L.NewTable()
	for name, fn := range funcs {
		r.L.SetField(mod, name, r.L.NewFunction(r.guard(fn)))
	}
	return mod
}

// guard counts host calls against the limit.
func (r *Runner) guard(fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		r.calls++
		if r.callLimit > 0 && r.calls > r.callLimit {
			r.limitHit = true
			L.RaiseError("%v", ErrCallLimit)
			return 0
		}
		return fn(L)
	}
}

// check raises err as a Lua error.
func check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%v", err)
	}
}

func checkOffset(L *lua.LState, n int) int64 {
	v := L.CheckInt64(n)
	if v < 0 {
		L.ArgError(n, "offset must not be negative")
	}
	return v
}

// deltabin.open(path [, writable])
func (r *Runner) open(L *lua.LState) int {
	path := L.CheckString(1)
	writable := L.OptBool(2, true)
	src, err := source.NewFile(path)
	check(L, err)
	check(L, r.sess.Open(src, writable))
	L.Push(lua.LNumber(r.sess.Len()))
	return 1
}

// deltabin.close()
func (r *Runner) close(L *lua.LState) int {
	check(L, r.sess.Close(true))
	return 0
}

// deltabin.size()
func (r *Runner) size(L *lua.LState) int {
	L.Push(lua.LNumber(r.sess.Len()))
	return 1
}

// deltabin.read(pos, length)
func (r *Runner) read(L *lua.LState) int {
	p, err := r.sess.Read(checkOffset(L, 1), checkOffset(L, 2))
	check(L, err)
	L.Push(lua.LString(p))
	return 1
}

// deltabin.hex(pos, length)
func (r *Runner) hexRead(L *lua.LState) int {
	p, err := r.sess.Read(checkOffset(L, 1), checkOffset(L, 2))
	check(L, err)
	L.Push(lua.LString(hex.EncodeToString(p)))
	return 1
}

// deltabin.insert(pos, bytes)
func (r *Runner) insert(L *lua.LState) int {
	check(L, r.sess.Insert(checkOffset(L, 1), []byte(L.CheckString(2))))
	return 0
}

// deltabin.remove(pos, length)
func (r *Runner) remove(L *lua.LState) int {
	check(L, r.sess.Remove(checkOffset(L, 1), checkOffset(L, 2)))
	return 0
}

// deltabin.overwrite(pos, bytes)
func (r *Runner) overwrite(L *lua.LState) int {
	check(L, r.sess.Overwrite(checkOffset(L, 1), []byte(L.CheckString(2))))
	return 0
}

// deltabin.fill(pos, count [, "zero"|"space"|"sample" [, sample [, overwrite]]])
func (r *Runner) fill(L *lua.LState) int {
	pos, count := checkOffset(L, 1), checkOffset(L, 2)
	pattern, err := history.ParseFillPattern(L.OptString(3, "zero"))
	if err != nil {
		L.ArgError(3, err.Error())
	}
	sample := []byte(L.OptString(4, ""))
	overwrite := L.OptBool(5, false)
	check(L, r.sess.Fill(pos, count, pattern, sample, overwrite))
	return 0
}

// searchParams reads an optional options table:
// {match_case=bool, backward=bool, all=bool, from_cursor=bool}.
func searchParams(L *lua.LState, n int) (search.Parameters, bool) {
	params := search.Parameters{Direction: search.Forward, MultipleMatches: true}
	opts := L.OptTable(n, nil)
	if opts == nil {
		return params, false
	}
	if lua.LVAsBool(opts.RawGetString("backward")) {
		params.Direction = search.Backward
	}
	if v := opts.RawGetString("all"); v != lua.LNil {
		params.MultipleMatches = lua.LVAsBool(v)
	}
	params.FromCursor = lua.LVAsBool(opts.RawGetString("from_cursor"))
	return params, lua.LVAsBool(opts.RawGetString("match_case"))
}

func (r *Runner) pushMatches(L *lua.LState) int {
	t := L.NewTable()
	for _, m := range r.sess.Search().Matches().Matches() {
		t.Append(lua.LNumber(m.Position))
	}
	L.Push(t)
	return 1
}

// deltabin.find(text [, opts]) returns the match positions.
func (r *Runner) find(L *lua.LState) int {
	text := L.CheckString(1)
	params, matchCase := searchParams(L, 2)
	_, err := r.sess.Find(search.TextCondition(text, matchCase), params)
	check(L, err)
	return r.pushMatches(L)
}

// deltabin.find_hex(hex [, opts]) returns the match positions.
func (r *Runner) findHex(L *lua.LState) int {
	cond, err := search.HexCondition(L.CheckString(1))
	check(L, err)
	params, _ := searchParams(L, 2)
	_, err = r.sess.Find(cond, params)
	check(L, err)
	return r.pushMatches(L)
}

// deltabin.next_match() returns the next match position or nil.
func (r *Runner) nextMatch(L *lua.LState) int {
	m, err := r.sess.NextMatch()
	if errors.Is(err, search.ErrNoMatch) {
		L.Push(lua.LNil)
		return 1
	}
	check(L, err)
	L.Push(lua.LNumber(m.Position))
	return 1
}

func (r *Runner) doReplace(L *lua.LState, repl search.Condition) int {
	if L.OptBool(2, false) {
		n, err := r.sess.ReplaceAll(repl)
		check(L, err)
		L.Push(lua.LNumber(n))
		return 1
	}
	ok, err := r.sess.Replace(repl)
	check(L, err)
	if ok {
		L.Push(lua.LNumber(1))
	} else {
		L.Push(lua.LNumber(0))
	}
	return 1
}

// deltabin.replace(text [, all]) returns the number of replacements.
func (r *Runner) replace(L *lua.LState) int {
	return r.doReplace(L, search.TextCondition(L.CheckString(1), true))
}

// deltabin.replace_hex(hex [, all]) returns the number of replacements.
func (r *Runner) replaceHex(L *lua.LState) int {
	cond, err := search.HexCondition(L.CheckString(1))
	check(L, err)
	return r.doReplace(L, cond)
}

// deltabin.undo() returns false when there is nothing to undo.
func (r *Runner) undo(L *lua.LState) int {
	err := r.sess.Undo()
	if errors.Is(err, history.ErrNothingToUndo) {
		L.Push(lua.LFalse)
		return 1
	}
	check(L, err)
	L.Push(lua.LTrue)
	return 1
}

// deltabin.redo() returns false when there is nothing to redo.
func (r *Runner) redo(L *lua.LState) int {
	err := r.sess.Redo()
	if errors.Is(err, history.ErrNothingToRedo) {
		L.Push(lua.LFalse)
		return 1
	}
	check(L, err)
	L.Push(lua.LTrue)
	return 1
}

// deltabin.modified()
func (r *Runner) modified(L *lua.LState) int {
	L.Push(lua.LBool(r.sess.IsModified()))
	return 1
}

// deltabin.save([path]) saves to the attached source, or to path.
func (r *Runner) save(L *lua.LState) int {
	path := L.OptString(1, "")
	if path == "" {
		check(L, r.sess.Save(nil))
		return 0
	}
	dst, err := source.NewFile(path)
	check(L, err)
	check(L, r.sess.SaveAs(dst))
	return 0
}

// deltabin.mode() returns RAM, DELTA or READ_ONLY.
func (r *Runner) mode(L *lua.LState) int {
	L.Push(lua.LString(r.sess.MemoryMode()))
	return 1
}

// deltabin.switch_mode("delta"|"memory" [, "save"|"discard"])
func (r *Runner) switchMode(L *lua.LState) int {
	var toDelta bool
	switch strings.ToLower(L.CheckString(1)) {
	case "delta":
		toDelta = true
	case "memory", "ram", "flat":
	default:
		L.ArgError(1, "mode must be delta or memory")
	}
	var resolve session.Resolver
	switch L.OptString(2, "") {
	case "save":
		resolve = session.Always(session.Save)
	case "discard":
		resolve = session.Always(session.Discard)
	case "":
	default:
		L.ArgError(2, "resolution must be save or discard")
	}
	check(L, r.sess.SwitchMode(toDelta, resolve))
	return 0
}

// deltabin.status() returns the size status line.
func (r *Runner) status(L *lua.LState) int {
	L.Push(lua.LString(r.sess.SizeStatus()))
	return 1
}
