package delta

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Mode is the access mode of a file source.
type Mode uint8

const (
	// ReadOnly opens the file for reading only; saves are refused.
	ReadOnly Mode = iota
	// ReadWrite opens the file for reading and writing.
	ReadWrite
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// FileSource is an open file whose bytes delta documents reference.
// Its content is treated as immutable until the owning document is saved.
type FileSource struct {
	id   uuid.UUID
	path string
	mode Mode

	// Guarded by the repository lock.
	file   *os.File
	owner  *Document
	closed bool
	locked bool

	// Stat snapshot, guarded by statMu because the watcher reads it.
	statMu  sync.Mutex
	size    int64
	modTime time.Time
	saving  bool
}

// ID returns the unique identifier assigned when the source was opened.
func (fs *FileSource) ID() uuid.UUID {
	return fs.id
}

// Path returns the file path.
func (fs *FileSource) Path() string {
	return fs.path
}

// Mode returns the access mode.
func (fs *FileSource) Mode() Mode {
	return fs.mode
}

// Writable reports whether saves are allowed.
func (fs *FileSource) Writable() bool {
	return fs.mode == ReadWrite
}

// Size returns the file size recorded at open or after the last save.
func (fs *FileSource) Size() int64 {
	fs.statMu.Lock()
	defer fs.statMu.Unlock()
	return fs.size
}

// Closed reports whether the source was closed.
func (fs *FileSource) Closed() bool {
	return fs.closed
}

// ReadAt reads from the underlying file.
func (fs *FileSource) ReadAt(p []byte, off int64) (int, error) {
	if fs.closed || fs.file == nil {
		return 0, ErrSourceClosed
	}
	return fs.file.ReadAt(p, off)
}

// readFull reads exactly len(p) bytes at off.
func (fs *FileSource) readFull(p []byte, off int64) error {
	n, err := fs.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %s at %d: %w", fs.path, off, err)
}

// BlockChecksum returns the xxhash64 digest of [off, off+length).
func (fs *FileSource) BlockChecksum(off, length int64) (uint64, error) {
	if fs.closed || fs.file == nil {
		return 0, ErrSourceClosed
	}
	d := xxhash.New()
	if _, err := io.Copy(d, io.NewSectionReader(fs.file, off, length)); err != nil {
		return 0, fmt.Errorf("checksum %s: %w", fs.path, err)
	}
	return d.Sum64(), nil
}

// HasChanged reports whether the file on disk differs in size or
// modification time from the recorded snapshot. A missing file counts as
// changed. It always reports false while a save is in progress.
func (fs *FileSource) HasChanged() (bool, error) {
	fs.statMu.Lock()
	defer fs.statMu.Unlock()
	if fs.saving {
		return false, nil
	}
	info, err := os.Stat(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return info.Size() != fs.size || !info.ModTime().Equal(fs.modTime), nil
}

// refreshStat records the current size and modification time.
func (fs *FileSource) refreshStat() error {
	info, err := fs.file.Stat()
	if err != nil {
		return err
	}
	fs.statMu.Lock()
	fs.size = info.Size()
	fs.modTime = info.ModTime()
	fs.statMu.Unlock()
	return nil
}

func (fs *FileSource) setSaving(v bool) {
	fs.statMu.Lock()
	fs.saving = v
	fs.statMu.Unlock()
}

// openFile opens path for the given mode. When lock is set a writable file
// also takes an advisory lock.
func openFile(path string, mode Mode, lock bool) (*FileSource, error) {
	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: is a directory", path)
	}

	fs := &FileSource{
		id:      uuid.New(),
		path:    path,
		mode:    mode,
		file:    f,
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	if mode == ReadWrite && lock {
		if err := lockFile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		fs.locked = true
	}
	return fs, nil
}

// reopen replaces the handle after the file was renamed over.
func (fs *FileSource) reopen(lock bool) error {
	flag := os.O_RDONLY
	if fs.mode == ReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(fs.path, flag, 0)
	if err != nil {
		return err
	}
	fs.file = f
	if fs.mode == ReadWrite && lock {
		if err := lockFile(f); err != nil {
			return err
		}
		fs.locked = true
	}
	return fs.refreshStat()
}

// closeHandle releases the lock and closes the file.
func (fs *FileSource) closeHandle() error {
	if fs.file == nil {
		return nil
	}
	if fs.locked {
		_ = unlockFile(fs.file)
		fs.locked = false
	}
	err := fs.file.Close()
	fs.file = nil
	return err
}
