package delta

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/deltabin/internal/logging"
)

// ChangeKind classifies an external change to a file source.
type ChangeKind uint8

const (
	// ChangeModified means the file's size or modification time changed.
	ChangeModified ChangeKind = iota + 1
	// ChangeRemoved means the file no longer exists at its path.
	ChangeRemoved
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change reports that another process altered an open file source.
type Change struct {
	Source    *FileSource
	Kind      ChangeKind
	Timestamp time.Time
}

// ErrWatcherClosed indicates the watcher was closed.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher notifies a handler when open file sources change on disk.
// Parent directories are watched so that atomic replace-by-rename from
// other programs is seen.
type Watcher struct {
	mu sync.Mutex

	fsw     *fsnotify.Watcher
	handler func(Change)
	logger  *logging.Logger

	files map[string]*FileSource
	dirs  map[string]int

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher starts a watcher that calls handler from its own goroutine.
func NewWatcher(handler func(Change), logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	w := &Watcher{
		fsw:     fsw,
		handler: handler,
		logger:  logger.WithComponent("watcher"),
		files:   make(map[string]*FileSource),
		dirs:    make(map[string]int),
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watching reports whether path is tracked.
func (w *Watcher) Watching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[path]
	return ok
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) add(fs *FileSource) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.files[fs.path]; ok {
		// Another handle on the same path; the newest one receives events.
		w.files[fs.path] = fs
		return nil
	}
	dir := filepath.Dir(fs.path)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[fs.path] = fs
	return nil
}

func (w *Watcher) remove(fs *FileSource) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.files[fs.path] != fs {
		return
	}
	delete(w.files, fs.path)
	dir := filepath.Dir(fs.path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fsw.Remove(dir)
	}
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) &&
		!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Chmod) {
		return
	}

	w.mu.Lock()
	fs, ok := w.files[filepath.Clean(ev.Name)]
	w.mu.Unlock()
	if !ok {
		return
	}

	changed, err := fs.HasChanged()
	if err != nil {
		w.logger.Warn("stat %s: %v", fs.path, err)
		return
	}
	if !changed {
		return
	}

	kind := ChangeModified
	if _, err := os.Stat(fs.path); errors.Is(err, os.ErrNotExist) {
		kind = ChangeRemoved
	}
	w.logger.Debug("%s %s", fs.path, kind)
	if w.handler != nil {
		w.handler(Change{Source: fs, Kind: kind, Timestamp: time.Now()})
	}
}
