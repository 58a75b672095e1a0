package delta

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/deltabin/internal/logging"
)

// Repository tracks open file sources and the delta documents built on
// them. It is the only structure meant to be shared between sessions.
type Repository struct {
	mu sync.Mutex

	sources map[uuid.UUID]*FileSource
	docs    map[*Document]struct{}
	closed  bool

	logger  *logging.Logger
	metrics *Metrics
	watcher *Watcher
	verify  bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the repository logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the collectors updated by the repository.
func WithMetrics(m *Metrics) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

// WithWatcher makes the repository watch every source it opens.
func WithWatcher(w *Watcher) Option {
	return func(r *Repository) {
		r.watcher = w
	}
}

// WithVerify enables checksum verification after every rewrite save.
func WithVerify(verify bool) Option {
	return func(r *Repository) {
		r.verify = verify
	}
}

// NewRepository creates an empty repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		sources: make(map[uuid.UUID]*FileSource),
		docs:    make(map[*Document]struct{}),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("segments")
	return r
}

// OpenFileSource opens path in the given mode.
func (r *Repository) OpenFileSource(path string, mode Mode) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	// A second handle on a path this process already locked skips the lock.
	lock := true
	for _, fs := range r.sources {
		if fs.path == abs && fs.locked {
			lock = false
			break
		}
	}

	fs, err := openFile(abs, mode, lock)
	if err != nil {
		return nil, fmt.Errorf("open file source: %w", err)
	}
	r.sources[fs.id] = fs
	if r.metrics != nil {
		r.metrics.openSources.Inc()
	}
	if r.watcher != nil {
		if err := r.watcher.add(fs); err != nil {
			r.logger.Warn("watch %s: %v", abs, err)
		}
	}
	r.logger.WithField("source", fs.id).Debug("opened %s (%s, %d bytes)", abs, mode, fs.size)
	return fs, nil
}

// CreateDocument returns an empty document with no file source.
func (r *Repository) CreateDocument() *Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newDocumentLocked()
}

// CreateFileDocument returns a document covering the whole of fs and
// attaches it as the source's owner.
func (r *Repository) CreateFileDocument(fs *FileSource) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkSourceLocked(fs); err != nil {
		return nil, err
	}
	if fs.owner != nil {
		return nil, ErrSourceAttached
	}
	d := r.newDocumentLocked()
	d.source = fs
	d.resetToSource(fs.Size())
	fs.owner = d
	return d, nil
}

// TransferFileSource makes to the owner of from's file source. from keeps
// reading through the source but no longer owns it; to must be empty and
// unattached.
func (r *Repository) TransferFileSource(from, to *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if from.repo != r || to.repo != r {
		return ErrForeignDocument
	}
	fs := from.source
	if fs == nil {
		return ErrNotAttached
	}
	if err := r.checkSourceLocked(fs); err != nil {
		return err
	}
	if to.source != nil || to.length != 0 {
		return ErrSourceAttached
	}
	if fs.owner != nil && fs.owner != from {
		return ErrSourceAttached
	}
	to.source = fs
	fs.owner = to
	return nil
}

// DetachFileSource detaches every document reading from fs. Their file
// segments are copied into memory so they stay valid.
func (r *Repository) DetachFileSource(fs *FileSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkSourceLocked(fs); err != nil {
		return err
	}
	for d := range r.docs {
		if d.source != fs {
			continue
		}
		if err := d.materialize(); err != nil {
			return fmt.Errorf("detach %s: %w", fs.path, err)
		}
	}
	fs.owner = nil
	return nil
}

// CloseFileSource closes fs. It fails with ErrSourceInUse while any live
// document still reads from it.
func (r *Repository) CloseFileSource(fs *FileSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkSourceLocked(fs); err != nil {
		return err
	}
	if r.referencedLocked(fs) {
		return ErrSourceInUse
	}
	return r.closeSourceLocked(fs)
}

// Sources returns the open file sources.
func (r *Repository) Sources() []*FileSource {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*FileSource, 0, len(r.sources))
	for _, fs := range r.sources {
		out = append(out, fs)
	}
	return out
}

// DocumentCount returns the number of live documents.
func (r *Repository) DocumentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

// Close detaches all documents and closes every source.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	var firstErr error
	for d := range r.docs {
		if d.source != nil {
			if err := d.materialize(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, fs := range r.sources {
		fs.owner = nil
		if err := r.closeSourceLocked(fs); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closed = true
	return firstErr
}

func (r *Repository) newDocumentLocked() *Document {
	d := &Document{repo: r}
	r.docs[d] = struct{}{}
	if r.metrics != nil {
		r.metrics.documents.Inc()
	}
	return d
}

// release forgets a disposed document.
func (r *Repository) release(d *Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[d]; !ok {
		return
	}
	delete(r.docs, d)
	if d.source != nil && d.source.owner == d {
		d.source.owner = nil
	}
	if r.metrics != nil {
		r.metrics.documents.Dec()
	}
}

func (r *Repository) checkSourceLocked(fs *FileSource) error {
	if fs == nil || fs.closed {
		return ErrSourceClosed
	}
	if r.sources[fs.id] != fs {
		return fmt.Errorf("source %s: %w", fs.id, ErrForeignDocument)
	}
	return nil
}

func (r *Repository) referencedLocked(fs *FileSource) bool {
	for d := range r.docs {
		if d.source == fs {
			return true
		}
	}
	return false
}

// borrowersLocked returns live documents reading from fs other than owner.
func (r *Repository) borrowersLocked(fs *FileSource, owner *Document) []*Document {
	var out []*Document
	for d := range r.docs {
		if d != owner && d.source == fs {
			out = append(out, d)
		}
	}
	return out
}

// sharingPathLocked returns live documents reading the file behind fs
// through another handle.
func (r *Repository) sharingPathLocked(fs *FileSource) []*Document {
	var out []*Document
	for d := range r.docs {
		if d.source != nil && d.source != fs && d.source.path == fs.path {
			out = append(out, d)
		}
	}
	return out
}

func (r *Repository) closeSourceLocked(fs *FileSource) error {
	if r.watcher != nil {
		r.watcher.remove(fs)
	}
	wasLocked := fs.locked
	err := fs.closeHandle()
	fs.closed = true
	delete(r.sources, fs.id)
	if wasLocked {
		r.handOverLockLocked(fs.path)
	}
	if r.metrics != nil {
		r.metrics.openSources.Dec()
	}
	r.logger.WithField("source", fs.id).Debug("closed %s", fs.path)
	if err != nil {
		return fmt.Errorf("close %s: %w", fs.path, err)
	}
	return nil
}

// handOverLockLocked moves the advisory lock of a closed source to another
// writable handle on the same path, as happens when a file is reloaded.
func (r *Repository) handOverLockLocked(path string) {
	for _, other := range r.sources {
		if other.path != path || other.mode != ReadWrite || other.locked || other.file == nil {
			continue
		}
		if err := lockFile(other.file); err != nil {
			r.logger.Warn("relock %s: %v", path, err)
			return
		}
		other.locked = true
		return
	}
}
