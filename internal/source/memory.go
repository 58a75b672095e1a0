package source

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// Memory is a Source holding its content in memory.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	name     string
	data     []byte
	writable bool
	modTime  time.Time
}

// NewMemory creates an in-memory source with a copy of data.
func NewMemory(name string, data []byte, writable bool) *Memory {
	return &Memory{
		name:     name,
		data:     append([]byte(nil), data...),
		writable: writable,
		modTime:  time.Now(),
	}
}

// Name returns the display name.
func (m *Memory) Name() string {
	return m.name
}

// Path returns "" because memory sources have no file.
func (m *Memory) Path() string {
	return ""
}

// Writable reports whether Create is allowed.
func (m *Memory) Writable() bool {
	return m.writable
}

// Stat returns the content size.
func (m *Memory) Stat() (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Info{Size: int64(len(m.data)), ModTime: m.modTime}, nil
}

// Bytes returns a copy of the current content.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

// Open returns a reader over a snapshot of the content.
func (m *Memory) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.Bytes())), nil
}

// Create returns a writer whose content replaces the source on Close.
func (m *Memory) Create() (io.WriteCloser, error) {
	if !m.writable {
		return nil, ErrReadOnly
	}
	return &memoryWriter{dst: m}, nil
}

type memoryWriter struct {
	dst    *Memory
	buf    bytes.Buffer
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.dst.mu.Lock()
	w.dst.data = w.buf.Bytes()
	w.dst.modTime = time.Now()
	w.dst.mu.Unlock()
	return nil
}
