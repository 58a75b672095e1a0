package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// File is a Source backed by a file on disk.
type File struct {
	path     string
	readOnly bool
	perm     fs.FileMode
}

// FileOption configures a File.
type FileOption func(*File)

// WithReadOnly prevents writing even when the file permits it.
func WithReadOnly() FileOption {
	return func(f *File) {
		f.readOnly = true
	}
}

// WithPerm sets the permission used when the file does not exist yet.
func WithPerm(perm fs.FileMode) FileOption {
	return func(f *File) {
		f.perm = perm
	}
}

// NewFile creates a file source. The path is made absolute.
func NewFile(path string, opts ...FileOption) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	f := &File{path: abs, perm: 0o644}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Name returns the base name of the file.
func (f *File) Name() string {
	return filepath.Base(f.path)
}

// Path returns the absolute path.
func (f *File) Path() string {
	return f.path
}

// Writable reports whether the file, or its directory for a new file,
// can be written.
func (f *File) Writable() bool {
	if f.readOnly {
		return false
	}
	h, err := os.OpenFile(f.path, os.O_WRONLY, 0)
	if err == nil {
		_ = h.Close()
		return true
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false
	}
	info, err := os.Stat(filepath.Dir(f.path))
	return err == nil && info.IsDir() && info.Mode().Perm()&0o200 != 0
}

// Stat returns the file size and modification time.
func (f *File) Stat() (Info, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return Info{}, err
	}
	if info.IsDir() {
		return Info{}, fmt.Errorf("%s: is a directory", f.path)
	}
	return Info{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Open opens the file for reading.
func (f *File) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Create returns a writer to a temporary file in the same directory,
// renamed over the target on Close. Aborted writes leave the file as it was.
func (f *File) Create() (io.WriteCloser, error) {
	if f.readOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, f.path)
	}

	perm := f.perm
	if info, err := os.Stat(f.path); err == nil {
		perm = info.Mode().Perm()
	}

	dir, base := filepath.Split(f.path)
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", f.path, err)
	}
	return &atomicWriter{file: tmp, target: f.path, perm: perm}, nil
}

// atomicWriter commits a temporary file by renaming it.
type atomicWriter struct {
	file   *os.File
	target string
	perm   fs.FileMode
	err    error
	closed bool
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	n, err := w.file.Write(p)
	if err != nil && w.err == nil {
		w.err = err
	}
	return n, err
}

// Abort discards the temporary file.
func (w *atomicWriter) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	_ = w.file.Close()
	_ = os.Remove(w.file.Name())
}

func (w *atomicWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	name := w.file.Name()

	err := w.err
	if err == nil {
		err = w.file.Sync()
	}
	if err == nil {
		err = w.file.Chmod(w.perm)
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(name, w.target)
	}
	if err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("commit %s: %w", w.target, err)
	}
	return nil
}
