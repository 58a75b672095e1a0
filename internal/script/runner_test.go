package script

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/deltabin/internal/session"
)

func newTestRunner(t *testing.T, opts ...Option) (*Runner, *session.Session, *bytes.Buffer) {
	t.Helper()
	sess := session.New(session.WithDeltaMode(false))
	var out bytes.Buffer
	r := NewRunner(sess, append([]Option{WithOutput(&out)}, opts...)...)
	t.Cleanup(func() {
		_ = r.Close()
		_ = sess.Dispose()
	})
	return r, sess, &out
}

func writeTempFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.bin")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func run(t *testing.T, r *Runner, code string, args ...string) {
	t.Helper()
	if err := r.RunString(context.Background(), code, args...); err != nil {
		t.Fatalf("RunString() error: %v", err)
	}
}

func TestEditAndSave(t *testing.T) {
	r, _, out := newTestRunner(t)
	path := writeTempFile(t, "hello world")

	run(t, r, `
		local n = deltabin.open(arg[1])
		print(n)
		deltabin.insert(0, ">> ")
		deltabin.remove(8, 6)
		print(deltabin.read(0, deltabin.size()))
		print(deltabin.modified())
		deltabin.save()
		print(deltabin.modified())
	`, path)

	want := "11\n>> hello\ntrue\nfalse\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != ">> hello" {
		t.Errorf("file = %q, want %q", data, ">> hello")
	}
}

func TestFindAndReplace(t *testing.T) {
	r, sess, out := newTestRunner(t)
	_ = sess.Insert(0, []byte("xxABxxAB"))

	run(t, r, `
		local hits = deltabin.find("ab")
		print(#hits, hits[1], hits[2])
		print(deltabin.replace("Z"))
		print(deltabin.read(0, deltabin.size()))
		print(deltabin.next_match())
	`)

	want := "2\t2\t6\n1\nxxZxxAB\n5\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestFindHexReplaceAll(t *testing.T) {
	r, sess, out := newTestRunner(t)
	_ = sess.Insert(0, []byte{0x00, 0xDE, 0xAD, 0x00, 0xDE, 0xAD})

	run(t, r, `
		local hits = deltabin.find_hex("DE AD")
		print(#hits)
		print(deltabin.replace_hex("FF", true))
		print(deltabin.hex(0, deltabin.size()))
		print(deltabin.undo(), deltabin.hex(0, deltabin.size()))
	`)

	want := "2\n2\n00ff00ff\ntrue\t00dead00dead\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestFillOverwriteUndo(t *testing.T) {
	r, sess, out := newTestRunner(t)
	_ = sess.Insert(0, []byte("abcdef"))

	run(t, r, `
		deltabin.overwrite(1, "XY")
		deltabin.fill(0, 2, "space")
		deltabin.fill(2, 3, "sample", "-+", true)
		print(deltabin.read(0, deltabin.size()))
		print(deltabin.undo(), deltabin.undo(), deltabin.undo(), deltabin.undo(), deltabin.undo())
		print(deltabin.redo())
	`)

	want := "  -+-def\ntrue\ttrue\ttrue\ttrue\tfalse\ntrue\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestModeSwitch(t *testing.T) {
	r, _, out := newTestRunner(t)
	path := writeTempFile(t, "0123")

	run(t, r, `
		deltabin.open(arg[1])
		print(deltabin.mode())
		deltabin.insert(4, "4")
		deltabin.switch_mode("delta", "save")
		print(deltabin.mode(), deltabin.status())
		deltabin.close()
		print(deltabin.size())
	`, path)

	want := "RAM\nDELTA\t5 (0)\n0\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestErrorsSurface(t *testing.T) {
	r, _, _ := newTestRunner(t)
	err := r.RunString(context.Background(), `deltabin.remove(0, 10)`)
	if err == nil {
		t.Fatal("RunString() should fail on an out of range remove")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("error = %v, want out of range", err)
	}
}

func TestSandbox(t *testing.T) {
	r, _, _ := newTestRunner(t)
	for _, code := range []string{
		`io.open("/etc/passwd")`,
		`os.execute("true")`,
		`dofile("/tmp/x.lua")`,
		`require("os")`,
	} {
		if err := r.RunString(context.Background(), code); err == nil {
			t.Errorf("RunString(%q) should fail", code)
		}
	}
}

func TestTimeout(t *testing.T) {
	r, _, _ := newTestRunner(t, WithTimeout(50*time.Millisecond))
	err := r.RunString(context.Background(), `while true do end`)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("RunString() error = %v, want ErrTimeout", err)
	}
}

func TestCallLimit(t *testing.T) {
	r, _, _ := newTestRunner(t, WithCallLimit(10))
	err := r.RunString(context.Background(), `for i = 1, 100 do deltabin.size() end`)
	if !errors.Is(err, ErrCallLimit) {
		t.Errorf("RunString() error = %v, want ErrCallLimit", err)
	}

	// The counter restarts on every run.
	run(t, r, `for i = 1, 5 do deltabin.size() end`)
}

func TestRunFile(t *testing.T) {
	r, _, out := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "s.lua")
	if err := os.WriteFile(path, []byte(`print(#arg, arg[1])`), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if err := r.RunFile(context.Background(), path, "one", "two"); err != nil {
		t.Fatalf("RunFile() error: %v", err)
	}
	if out.String() != "2\tone\n" {
		t.Errorf("output = %q, want %q", out.String(), "2\tone\n")
	}
}

func TestClosedRunner(t *testing.T) {
	r, _, _ := newTestRunner(t)
	_ = r.Close()
	if err := r.RunString(context.Background(), `print(1)`); !errors.Is(err, ErrClosed) {
		t.Errorf("RunString() error = %v, want ErrClosed", err)
	}
}
