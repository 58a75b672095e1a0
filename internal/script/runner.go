package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/deltabin/internal/logging"
	"github.com/dshills/deltabin/internal/session"
)

// Default limits for script execution.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultCallLimit = 1_000_000
)

// Runner executes Lua scripts against one session.
//
// A Runner is not goroutine-safe; gopher-lua states must be driven from a
// single goroutine, as is the session.
type Runner struct {
	L    *lua.LState
	sess *session.Session

	timeout   time.Duration
	callLimit int64
	calls     int64
	limitHit  bool
	out       io.Writer
	logger    *logging.Logger

	closed bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds the wall time of one run. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithCallLimit bounds the number of deltabin.* calls per run. Zero
// disables the limit.
func WithCallLimit(n int64) Option {
	return func(r *Runner) {
		r.callLimit = n
	}
}

// WithOutput redirects print.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a sandboxed Lua state with the deltabin module bound
// to sess.
func NewRunner(sess *session.Session, opts ...Option) *Runner {
	r := &Runner{
		sess:      sess,
		timeout:   DefaultTimeout,
		callLimit: DefaultCallLimit,
		out:       os.Stdout,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("script")

	r.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(r.L)
	installSandbox(r.L, r.out)
	r.L.SetGlobal(moduleName, r.module())
	return r
}

// RunString executes code with args exposed as the global table arg.
func (r *Runner) RunString(ctx context.Context, code string, args ...string) error {
	return r.run(ctx, "<string>", args, func() error {
		return r.L.DoString(code)
	})
}

// RunFile executes the script at path.
func (r *Runner) RunFile(ctx context.Context, path string, args ...string) error {
	return r.run(ctx, path, args, func() error {
		return r.L.DoFile(path)
	})
}

func (r *Runner) run(ctx context.Context, name string, args []string, fn func() error) (err error) {
	if r.closed {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	r.calls = 0
	r.limitHit = false
	r.setArgs(args)

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	start := time.Now()
	err = fn()
	if err != nil {
		switch {
		case r.limitHit:
			err = fmt.Errorf("%w: %s after %d calls", ErrCallLimit, name, r.callLimit)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w: %s after %v", ErrTimeout, name, r.timeout)
		case errors.Is(ctx.Err(), context.Canceled):
			err = fmt.Errorf("%s: %w", name, ctx.Err())
		}
		r.logger.Warn("script %s failed: %v", name, err)
		return err
	}
	r.logger.Debug("script %s finished in %v (%d host calls)", name, time.Since(start), r.calls)
	return nil
}

func (r *Runner) setArgs(args []string) {
	t := r.L.NewTable()
	for _, a := range args {
		t.Append(lua.LString(a))
	}
	r.L.SetGlobal("arg", t)
}

// Close releases the Lua state. The session is left open.
func (r *Runner) Close() error {
	if r.closed {
		return nil
	}
	r.L.Close()
	r.closed = true
	return nil
}
