package session

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/dshills/deltabin/internal/charset"
	"github.com/dshills/deltabin/internal/engine/caret"
	"github.com/dshills/deltabin/internal/engine/content"
	"github.com/dshills/deltabin/internal/engine/delta"
	"github.com/dshills/deltabin/internal/engine/history"
	"github.com/dshills/deltabin/internal/engine/paged"
	"github.com/dshills/deltabin/internal/engine/search"
	"github.com/dshills/deltabin/internal/logging"
	"github.com/dshills/deltabin/internal/source"
)

// fileBacked is implemented by stores reading from a repository file source.
type fileBacked interface {
	FileSource() *delta.FileSource
}

// Session owns the editable content of one document together with its
// undo history, caret and search state.
//
// A Session always holds exactly one live content store. It is driven from
// a single goroutine; only the segment repository may be shared.
type Session struct {
	id      uuid.UUID
	repo    *delta.Repository
	ownRepo bool
	logger  *logging.Logger

	data   content.Data
	stack  *history.Stack
	caret  *caret.Caret
	search *search.Engine

	// Configuration
	deltaMode  bool
	charset    *charset.Charset
	maxUndo    int
	matchLimit int
	pageSize   int

	// Attached source
	src      source.Source
	writable bool
	srcInfo  source.Info
	baseSize int64

	// Observers, re-attached whenever the stack is replaced
	onPosition []func(position int)
	onAdded    []func(cmd history.Command)

	disposed bool
}

// New creates a session holding an empty in-memory document.
func New(opts ...Option) *Session {
	s := &Session{
		id:         uuid.New(),
		logger:     logging.Nop(),
		deltaMode:  true,
		charset:    charset.UTF8(),
		matchLimit: search.MaxMatches,
		pageSize:   defaultPageSize,
		writable:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithFields(map[string]any{
		"component": "session",
		"session":   s.id.String(),
	})
	if s.repo == nil {
		s.repo = delta.NewRepository(delta.WithLogger(s.logger))
		s.ownRepo = true
	}

	s.stack = s.newStack()
	s.caret = caret.New()
	s.search = search.NewEngine(
		search.WithCharset(s.charset),
		search.WithMatchLimit(s.matchLimit),
		search.WithLogger(s.logger),
	)
	s.data = s.newStore(false)
	return s
}

func (s *Session) newStack() *history.Stack {
	st := history.NewStack(history.WithMaxEntries(s.maxUndo))
	st.OnPositionChanged(func(position int) {
		for _, fn := range s.onPosition {
			fn(position)
		}
	})
	st.OnCommandAdded(func(cmd history.Command) {
		for _, fn := range s.onAdded {
			fn(cmd)
		}
	})
	return st
}

func (s *Session) newStore(deltaKind bool) content.Data {
	if deltaKind {
		return s.repo.CreateDocument()
	}
	return paged.New(paged.WithPageSize(s.pageSize))
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Data returns the active content store.
func (s *Session) Data() content.Data {
	return s.data
}

// History returns the undo stack.
func (s *Session) History() *history.Stack {
	return s.stack
}

// Caret returns the caret.
func (s *Session) Caret() *caret.Caret {
	return s.caret
}

// Repository returns the segment repository.
func (s *Session) Repository() *delta.Repository {
	return s.repo
}

// Source returns the attached source, or nil.
func (s *Session) Source() source.Source {
	return s.src
}

// Writable reports whether the document accepts edits.
func (s *Session) Writable() bool {
	return s.writable
}

// DeltaMode reports the storage preference used by the next open.
func (s *Session) DeltaMode() bool {
	return s.deltaMode
}

// Kind returns the kind of the active store.
func (s *Session) Kind() content.Kind {
	return s.data.Kind()
}

// Len returns the document size in bytes.
func (s *Session) Len() int64 {
	return s.data.Len()
}

// Read returns length bytes starting at pos.
func (s *Session) Read(pos, length int64) ([]byte, error) {
	return content.ReadRange(s.data, pos, length)
}

// IsModified reports whether the document differs from its saved state.
func (s *Session) IsModified() bool {
	return s.stack.IsModified()
}

// OnUndoPositionChanged registers fn to run after undo, redo and history resets.
func (s *Session) OnUndoPositionChanged(fn func(position int)) {
	s.onPosition = append(s.onPosition, fn)
}

// OnCommandAdded registers fn to run after an edit enters the history.
func (s *Session) OnCommandAdded(fn func(cmd history.Command)) {
	s.onAdded = append(s.onAdded, fn)
}

// Open loads src and makes it the active document, disposing the previous
// content. In delta mode a file source is attached through the repository,
// otherwise the source is read fully into memory. On failure the session
// keeps its prior content.
func (s *Session) Open(src source.Source, writable bool) error {
	if s.disposed {
		return ErrClosed
	}
	if src == nil {
		return NewOperationError("open", "", ErrNoSource)
	}
	writable = writable && src.Writable()

	info, err := src.Stat()
	if err != nil {
		return NewOperationError("open", src.Name(), err)
	}
	data, err := s.load(src, writable)
	if err != nil {
		return NewOperationError("open", src.Name(), err)
	}

	if err := s.closeData(true); err != nil {
		s.logger.Warn("release previous content: %v", err)
	}
	s.data = data
	s.attach(src, writable, info)
	s.baseSize = data.Len()

	s.logger.Info("opened %s (%s, %d bytes, writable=%v)", src.Name(), data.Kind(), data.Len(), writable)
	return nil
}

func (s *Session) load(src source.Source, writable bool) (content.Data, error) {
	if s.deltaMode && source.IsFile(src) {
		mode := delta.ReadOnly
		if writable {
			mode = delta.ReadWrite
		}
		fs, err := s.repo.OpenFileSource(src.Path(), mode)
		if err != nil {
			return nil, err
		}
		doc, err := s.repo.CreateFileDocument(fs)
		if err != nil {
			_ = s.repo.CloseFileSource(fs)
			return nil, err
		}
		return doc, nil
	}

	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if !s.deltaMode {
		return paged.Load(r, paged.WithPageSize(s.pageSize))
	}
	doc := s.repo.CreateDocument()
	if err := readInto(doc, r); err != nil {
		_ = doc.Dispose()
		return nil, err
	}
	return doc, nil
}

// readInto appends everything r yields to d.
func readInto(d content.Data, r io.Reader) error {
	buf := make([]byte, content.ChunkSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if ierr := d.Insert(d.Len(), buf[:n]); ierr != nil {
				return ierr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) attach(src source.Source, writable bool, info source.Info) {
	s.src = src
	s.writable = writable
	s.srcInfo = info
	s.stack.Clear()
	s.search.Clear()
	s.caret.Reset()
}

// closeData disposes the active store and, when closeSource is set,
// detaches and closes the file source it reads from.
func (s *Session) closeData(closeSource bool) error {
	if s.data == nil {
		return nil
	}
	s.stack.Clear()
	s.search.Clear()

	var fs *delta.FileSource
	if fb, ok := s.data.(fileBacked); ok {
		fs = fb.FileSource()
	}

	var firstErr error
	if !s.data.Disposed() {
		firstErr = s.data.Dispose()
	}
	s.data = nil

	if fs != nil && closeSource && !fs.Closed() {
		if err := s.repo.DetachFileSource(fs); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := s.repo.CloseFileSource(fs); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Save writes the document to sink, or to the attached source when sink
// is nil. A delta document saved onto its own file goes through the
// repository. On success the undo sync point advances; on failure it is
// left unchanged.
func (s *Session) Save(sink content.Sink) error {
	if s.disposed {
		return ErrClosed
	}
	target := s.sinkName(sink)
	if sink == nil {
		if s.src == nil {
			return NewOperationError("save", "", ErrNoSource)
		}
		if !s.writable {
			return NewOperationError("save", target, ErrReadOnly)
		}
		sink = s.src
	}

	if err := s.data.Save(sink); err != nil {
		s.logger.Error("save %s failed: %v", target, err)
		return NewOperationError("save", target, err)
	}

	s.stack.SetSyncPoint()
	s.baseSize = s.data.Len()
	if sink == content.Sink(s.src) {
		if info, err := s.src.Stat(); err == nil {
			s.srcInfo = info
		}
	}
	s.logger.Info("saved %s (%d bytes)", target, s.data.Len())
	return nil
}

// SaveAs saves the document to dst and makes dst the attached source.
func (s *Session) SaveAs(dst source.Source) error {
	if dst == nil {
		return NewOperationError("save as", "", ErrNoSource)
	}
	if !dst.Writable() {
		return NewOperationError("save as", dst.Name(), ErrReadOnly)
	}
	if err := s.Save(dst); err != nil {
		return err
	}
	s.src = dst
	s.writable = true
	if info, err := dst.Stat(); err == nil {
		s.srcInfo = info
	}
	return nil
}

func (s *Session) sinkName(sink content.Sink) string {
	switch v := sink.(type) {
	case nil:
		if s.src != nil {
			return s.src.Name()
		}
		return ""
	case source.Source:
		return v.Name()
	case content.PathSink:
		return v.Path()
	}
	return fmt.Sprintf("%T", sink)
}

// SwitchMode changes the storage kind. With an attached source the
// document is reopened in the new mode; unsaved changes must first be
// resolved through resolve, or the switch is refused with ErrModified.
// Content without a source is converted in place and the history reset.
func (s *Session) SwitchMode(toDelta bool, resolve Resolver) error {
	if s.disposed {
		return ErrClosed
	}
	want := content.KindFlat
	if toDelta {
		want = content.KindDelta
	}
	if s.data.Kind() == want {
		s.deltaMode = toDelta
		return nil
	}

	if s.src != nil {
		if s.IsModified() {
			if resolve == nil {
				return NewOperationError("switch mode", s.src.Name(), ErrModified)
			}
			if err := s.Release(resolve); err != nil {
				return err
			}
		}
		prev := s.deltaMode
		s.deltaMode = toDelta
		if err := s.Open(s.src, s.writable); err != nil {
			s.deltaMode = prev
			return err
		}
		s.logger.Info("switched %s to %s", s.src.Name(), want)
		return nil
	}

	next := s.newStore(toDelta)
	if err := next.InsertData(0, s.data); err != nil {
		_ = next.Dispose()
		return NewOperationError("switch mode", "", err)
	}
	old := s.data
	s.data = next
	if err := old.Dispose(); err != nil {
		s.logger.Warn("dispose previous content: %v", err)
	}
	s.deltaMode = toDelta
	s.stack.Clear()
	s.search.Clear()
	s.caret.Clamp(s.data.Len())
	s.logger.Info("converted content to %s (%d bytes)", want, s.data.Len())
	return nil
}

// Detach hands the active store and its history to the caller, typically
// for Reopen in another session, and leaves this session with an empty
// document. The store is not disposed and its file source stays open.
func (s *Session) Detach() (content.Data, *history.Stack) {
	data, stack := s.data, s.stack
	s.data = s.newStore(false)
	s.stack = s.newStack()
	s.src = nil
	s.writable = true
	s.srcInfo = source.Info{}
	s.baseSize = 0
	s.search.Clear()
	s.caret.Reset()
	return data, stack
}

// Reopen attaches src and carries over incoming content from another
// session. The storage kind follows incoming, whose file source (if any)
// is transferred to the new document. incoming is replayed as a single
// insert at offset 0 and becomes owned by this session's history.
// incomingUndo is cleared; its history does not carry over.
func (s *Session) Reopen(src source.Source, incoming content.Data, incomingUndo *history.Stack) error {
	if s.disposed {
		return ErrClosed
	}
	if src == nil {
		return NewOperationError("reopen", "", ErrNoSource)
	}
	if incoming == nil || incoming.Disposed() {
		return NewOperationError("reopen", src.Name(), content.ErrDisposed)
	}

	info, err := src.Stat()
	if err != nil {
		return NewOperationError("reopen", src.Name(), err)
	}

	carriedModified := incomingUndo == nil || incomingUndo.IsModified()
	if incomingUndo != nil {
		incomingUndo.Clear()
	}

	if err := s.closeData(true); err != nil {
		s.logger.Warn("release previous content: %v", err)
	}

	toDelta := incoming.Kind() == content.KindDelta
	s.deltaMode = toDelta
	next := s.newStore(toDelta)
	if doc, ok := next.(*delta.Document); ok {
		s.adoptSource(doc, incoming)
	}

	s.data = next
	s.attach(src, src.Writable(), info)
	s.baseSize = info.Size

	cmd := history.NewInsertDataCommand(0, incoming, true)
	if err := s.stack.Execute(cmd, s.data); err != nil {
		cmd.Release()
		return NewOperationError("reopen", src.Name(), err)
	}
	if !carriedModified {
		s.stack.SetSyncPoint()
	}
	s.logger.Info("reopened %s (%s, %d bytes carried over)", src.Name(), s.data.Kind(), s.data.Len())
	return nil
}

// adoptSource makes doc the owner of the file source incoming reads from,
// so the carried-over segments keep referencing the file.
func (s *Session) adoptSource(doc *delta.Document, incoming content.Data) {
	from, ok := incoming.(*delta.Document)
	if !ok || from.FileSource() == nil {
		return
	}
	if err := s.repo.TransferFileSource(from, doc); err != nil {
		s.logger.Warn("transfer file source: %v", err)
	}
}

// Close disposes the active store and leaves an empty document. When
// closeSource is set the store's file source is detached and closed.
func (s *Session) Close(closeSource bool) error {
	if s.disposed {
		return ErrClosed
	}
	name := ""
	if s.src != nil {
		name = s.src.Name()
	}
	err := s.closeData(closeSource)
	s.data = s.newStore(false)
	s.src = nil
	s.writable = true
	s.srcInfo = source.Info{}
	s.baseSize = 0
	s.caret.Reset()
	if err != nil {
		return NewOperationError("close", name, err)
	}
	if name != "" {
		s.logger.Info("closed %s", name)
	}
	return nil
}

// Dispose closes the session for good, including a private repository.
func (s *Session) Dispose() error {
	if s.disposed {
		return nil
	}
	err := s.closeData(true)
	s.disposed = true
	s.src = nil
	if s.ownRepo {
		if cerr := s.repo.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
