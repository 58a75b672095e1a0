package delta

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/deltabin/internal/engine/content"
)

// writeTempFile creates a file holding data inside a test directory.
func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

// newTestDocument opens path read-write and returns a document over it.
func newTestDocument(t *testing.T, repo *Repository, path string) (*Document, *FileSource) {
	t.Helper()
	fs, err := repo.OpenFileSource(path, ReadWrite)
	if err != nil {
		t.Fatalf("OpenFileSource failed: %v", err)
	}
	doc, err := repo.CreateFileDocument(fs)
	if err != nil {
		t.Fatalf("CreateFileDocument failed: %v", err)
	}
	return doc, fs
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	return string(b)
}

func mustBytes(t *testing.T, d content.Data) []byte {
	t.Helper()
	b, err := content.Bytes(d)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	return b
}

func checkSegments(t *testing.T, d *Document) {
	t.Helper()
	var total int64
	for i, s := range d.Segments() {
		if s.Length <= 0 {
			t.Fatalf("segment %d has length %d", i, s.Length)
		}
		if s.Start != total {
			t.Fatalf("segment %d starts at %d, want %d", i, s.Start, total)
		}
		total += s.Length
	}
	if total != d.Len() {
		t.Fatalf("segments cover %d bytes, document has %d", total, d.Len())
	}
}

type fileSink string

func (s fileSink) Path() string { return string(s) }

func (s fileSink) Create() (io.WriteCloser, error) { return os.Create(string(s)) }

type bufferSink struct{ bytes.Buffer }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (s *bufferSink) Create() (io.WriteCloser, error) {
	s.Reset()
	return nopWriteCloser{&s.Buffer}, nil
}

func TestCreateDocument(t *testing.T) {
	repo := NewRepository()
	doc := repo.CreateDocument()

	if doc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", doc.Len())
	}
	if doc.Kind() != content.KindDelta {
		t.Errorf("Kind() = %v, want delta", doc.Kind())
	}
	if doc.FileSource() != nil {
		t.Error("empty document should have no file source")
	}
	if err := doc.Insert(0, []byte("abc")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if got := string(mustBytes(t, doc)); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
	if repo.DocumentCount() != 1 {
		t.Errorf("DocumentCount() = %d, want 1", repo.DocumentCount())
	}
}

func TestFileDocumentReads(t *testing.T) {
	data := []byte("0123456789abcdefghij")
	repo := NewRepository()
	doc, _ := newTestDocument(t, repo, writeTempFile(t, data))

	if doc.Len() != int64(len(data)) {
		t.Fatalf("Len() = %d, want %d", doc.Len(), len(data))
	}
	b, err := doc.ByteAt(10)
	if err != nil || b != 'a' {
		t.Errorf("ByteAt(10) = %q, %v; want 'a'", b, err)
	}
	dst := make([]byte, 5)
	if err := doc.CopyTo(3, dst); err != nil {
		t.Fatalf("CopyTo failed: %v", err)
	}
	if string(dst) != "34567" {
		t.Errorf("CopyTo = %q, want %q", dst, "34567")
	}
	if _, err := doc.ByteAt(20); !errors.Is(err, content.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestEditsDoNotTouchFile(t *testing.T) {
	data := []byte("hello world")
	path := writeTempFile(t, data)
	repo := NewRepository()
	doc, _ := newTestDocument(t, repo, path)

	if err := doc.Insert(5, []byte(",")); err != nil {
		t.Fatal(err)
	}
	if err := doc.Remove(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := doc.Insert(0, []byte("J")); err != nil {
		t.Fatal(err)
	}

	if got := string(mustBytes(t, doc)); got != "Jello, world" {
		t.Errorf("got %q, want %q", got, "Jello, world")
	}
	onDisk, _ := os.ReadFile(path)
	if !bytes.Equal(onDisk, data) {
		t.Errorf("file changed before save: %q", onDisk)
	}
	checkSegments(t, doc)
}

func TestInsertMergesOwnedRuns(t *testing.T) {
	repo := NewRepository()
	doc := repo.CreateDocument()
	for i, c := range []byte("abcdef") {
		if err := doc.Insert(int64(i), []byte{c}); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(doc.Segments()); n != 1 {
		t.Errorf("segment count = %d, want 1", n)
	}
	if got := string(mustBytes(t, doc)); got != "abcdef" {
		t.Errorf("got %q", got)
	}
}

func TestSplitOwnedSegmentIsolated(t *testing.T) {
	repo := NewRepository()
	doc := repo.CreateDocument()
	if err := doc.Insert(0, bytes.Repeat([]byte("x"), 8)); err != nil {
		t.Fatal(err)
	}
	// Split the owned run and grow its left half; the right half must not
	// observe the appended bytes.
	if err := doc.Insert(4, []byte("YY")); err != nil {
		t.Fatal(err)
	}
	if got := string(mustBytes(t, doc)); got != "xxxxYYxxxx" {
		t.Errorf("got %q, want %q", got, "xxxxYYxxxx")
	}
}

func TestRandomEditsMatchModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := make([]byte, 4096)
	rng.Read(data)
	repo := NewRepository()
	doc, _ := newTestDocument(t, repo, writeTempFile(t, data))
	model := append([]byte(nil), data...)

	for step := 0; step < 500; step++ {
		if len(model) == 0 || rng.Intn(2) == 0 {
			pos := rng.Intn(len(model) + 1)
			ins := make([]byte, rng.Intn(32)+1)
			rng.Read(ins)
			if err := doc.Insert(int64(pos), ins); err != nil {
				t.Fatalf("step %d: Insert: %v", step, err)
			}
			model = append(model[:pos], append(append([]byte(nil), ins...), model[pos:]...)...)
		} else {
			pos := rng.Intn(len(model))
			n := rng.Intn(min(64, len(model)-pos)) + 1
			if err := doc.Remove(int64(pos), int64(n)); err != nil {
				t.Fatalf("step %d: Remove: %v", step, err)
			}
			model = append(model[:pos], model[pos+n:]...)
		}
	}

	checkSegments(t, doc)
	if !bytes.Equal(mustBytes(t, doc), model) {
		t.Fatal("document differs from model")
	}
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if !bytes.Equal(out.Bytes(), model) {
		t.Fatal("WriteTo differs from model")
	}
}

func TestSaveStrategies(t *testing.T) {
	tests := []struct {
		name     string
		edit     func(d *Document) error
		strategy saveStrategy
		want     string
	}{
		{
			name:     "unchanged",
			edit:     func(d *Document) error { return nil },
			strategy: saveNone,
			want:     "0123456789",
		},
		{
			name: "overwrite",
			edit: func(d *Document) error {
				if err := d.Remove(2, 2); err != nil {
					return err
				}
				return d.Insert(2, []byte("AB"))
			},
			strategy: saveInPlace,
			want:     "01AB456789",
		},
		{
			name:     "truncate",
			edit:     func(d *Document) error { return d.Remove(6, 4) },
			strategy: saveInPlace,
			want:     "012345",
		},
		{
			name:     "append",
			edit:     func(d *Document) error { return d.Insert(10, []byte("XYZ")) },
			strategy: saveInPlace,
			want:     "0123456789XYZ",
		},
		{
			name:     "insert at front",
			edit:     func(d *Document) error { return d.Insert(0, []byte(">>")) },
			strategy: saveRewrite,
			want:     ">>0123456789",
		},
		{
			name:     "remove from front",
			edit:     func(d *Document) error { return d.Remove(0, 3) },
			strategy: saveRewrite,
			want:     "3456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, []byte("0123456789"))
			repo := NewRepository(WithVerify(true))
			doc, fs := newTestDocument(t, repo, path)

			if err := tt.edit(doc); err != nil {
				t.Fatalf("edit failed: %v", err)
			}
			if got := planSave(doc, fs.Size()); got != tt.strategy {
				t.Errorf("planSave() = %v, want %v", got, tt.strategy)
			}
			if err := repo.SaveDocument(doc); err != nil {
				t.Fatalf("SaveDocument failed: %v", err)
			}

			onDisk, _ := os.ReadFile(path)
			if string(onDisk) != tt.want {
				t.Errorf("file = %q, want %q", onDisk, tt.want)
			}
			if got := string(mustBytes(t, doc)); got != tt.want {
				t.Errorf("document = %q, want %q", got, tt.want)
			}
			segs := doc.Segments()
			if len(segs) != 1 || !segs[0].Source {
				t.Errorf("document not consolidated: %+v", segs)
			}
			if fs.Size() != int64(len(tt.want)) {
				t.Errorf("source Size() = %d, want %d", fs.Size(), len(tt.want))
			}
			if changed, _ := fs.HasChanged(); changed {
				t.Error("HasChanged() = true right after save")
			}
		})
	}
}

func TestSaveEditedAgainAfterSave(t *testing.T) {
	path := writeTempFile(t, []byte("abcdef"))
	repo := NewRepository()
	doc, _ := newTestDocument(t, repo, path)

	if err := doc.Insert(0, []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := doc.Save(nil); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := doc.Remove(3, 2); err != nil {
		t.Fatal(err)
	}
	if err := doc.Save(fileSink(path)); err != nil {
		t.Fatalf("second save: %v", err)
	}
	onDisk, _ := os.ReadFile(path)
	if string(onDisk) != "1abef" {
		t.Errorf("file = %q, want %q", onDisk, "1abef")
	}
}

func TestSaveToOtherSinkStreams(t *testing.T) {
	path := writeTempFile(t, []byte("source"))
	repo := NewRepository()
	doc, _ := newTestDocument(t, repo, path)
	if err := doc.Insert(6, []byte("!")); err != nil {
		t.Fatal(err)
	}

	var sink bufferSink
	if err := doc.Save(&sink); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if sink.String() != "source!" {
		t.Errorf("sink = %q, want %q", sink.String(), "source!")
	}
	onDisk, _ := os.ReadFile(path)
	if string(onDisk) != "source" {
		t.Errorf("original changed: %q", onDisk)
	}
}

func TestSaveReadOnly(t *testing.T) {
	path := writeTempFile(t, []byte("locked"))
	repo := NewRepository()
	fs, err := repo.OpenFileSource(path, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := repo.CreateFileDocument(fs)
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Insert(0, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveDocument(doc); !errors.Is(err, content.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestSourceExclusivity(t *testing.T) {
	repo := NewRepository()
	doc, fs := newTestDocument(t, repo, writeTempFile(t, []byte("abc")))

	if _, err := repo.CreateFileDocument(fs); !errors.Is(err, ErrSourceAttached) {
		t.Errorf("expected ErrSourceAttached, got %v", err)
	}
	if err := doc.Dispose(); err != nil {
		t.Fatal(err)
	}
	again, err := repo.CreateFileDocument(fs)
	if err != nil {
		t.Fatalf("attach after dispose failed: %v", err)
	}
	if again.Len() != 3 {
		t.Errorf("Len() = %d, want 3", again.Len())
	}
}

func TestCloseFileSource(t *testing.T) {
	repo := NewRepository()
	doc, fs := newTestDocument(t, repo, writeTempFile(t, []byte("abc")))

	if err := repo.CloseFileSource(fs); !errors.Is(err, ErrSourceInUse) {
		t.Errorf("expected ErrSourceInUse, got %v", err)
	}
	if err := doc.Dispose(); err != nil {
		t.Fatal(err)
	}
	if err := repo.CloseFileSource(fs); err != nil {
		t.Fatalf("CloseFileSource failed: %v", err)
	}
	if !fs.Closed() {
		t.Error("Closed() = false")
	}
	if err := repo.CloseFileSource(fs); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("expected ErrSourceClosed, got %v", err)
	}
	if len(repo.Sources()) != 0 {
		t.Errorf("Sources() = %d, want 0", len(repo.Sources()))
	}
}

func TestDetachFileSource(t *testing.T) {
	path := writeTempFile(t, []byte("keep these bytes"))
	repo := NewRepository()
	doc, fs := newTestDocument(t, repo, path)
	if err := doc.Insert(0, []byte("> ")); err != nil {
		t.Fatal(err)
	}

	if err := repo.DetachFileSource(fs); err != nil {
		t.Fatalf("DetachFileSource failed: %v", err)
	}
	if err := repo.CloseFileSource(fs); err != nil {
		t.Fatalf("CloseFileSource failed: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if doc.FileSource() != nil {
		t.Error("document still attached")
	}
	for _, s := range doc.Segments() {
		if s.Source {
			t.Fatal("file segment survived detach")
		}
	}
	if got := string(mustBytes(t, doc)); got != "> keep these bytes" {
		t.Errorf("got %q", got)
	}
}

func TestTransferAndInsertByReference(t *testing.T) {
	path := writeTempFile(t, []byte("0123456789"))
	repo := NewRepository()
	old, fs := newTestDocument(t, repo, path)
	if err := old.Remove(0, 5); err != nil {
		t.Fatal(err)
	}

	fresh := repo.CreateDocument()
	if err := repo.TransferFileSource(old, fresh); err != nil {
		t.Fatalf("TransferFileSource failed: %v", err)
	}
	if fresh.FileSource() != fs {
		t.Fatal("fresh document not attached")
	}
	if err := fresh.InsertData(0, old); err != nil {
		t.Fatalf("InsertData failed: %v", err)
	}
	segs := fresh.Segments()
	if len(segs) != 1 || !segs[0].Source || segs[0].SourceOffset != 5 {
		t.Errorf("expected one file segment at offset 5, got %+v", segs)
	}

	// The old document no longer owns the source.
	if err := old.Dispose(); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateFileDocument(fs); !errors.Is(err, ErrSourceAttached) {
		t.Errorf("expected fresh document to own the source, got %v", err)
	}
	if got := string(mustBytes(t, fresh)); got != "56789" {
		t.Errorf("got %q, want %q", got, "56789")
	}
}

func TestSaveMaterializesBorrowers(t *testing.T) {
	path := writeTempFile(t, []byte("abcdef"))
	repo := NewRepository()
	old, _ := newTestDocument(t, repo, path)

	fresh := repo.CreateDocument()
	if err := repo.TransferFileSource(old, fresh); err != nil {
		t.Fatal(err)
	}
	if err := fresh.InsertData(0, old); err != nil {
		t.Fatal(err)
	}
	if err := fresh.Insert(0, []byte("__")); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveDocument(fresh); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	if got := string(mustBytes(t, old)); got != "abcdef" {
		t.Errorf("borrower content = %q, want %q", got, "abcdef")
	}
	if old.FileSource() != nil {
		t.Error("borrower still reads from the saved file")
	}
}

func TestSaveKeepsOtherHandlesIntact(t *testing.T) {
	path := writeTempFile(t, []byte("0123456789"))
	repo := NewRepository()
	defer repo.Close()
	a, _ := newTestDocument(t, repo, path)
	b, bfs := newTestDocument(t, repo, path)

	if err := a.Remove(2, 2); err != nil {
		t.Fatal(err)
	}
	if err := a.Insert(2, []byte("ZZ")); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveDocument(a); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if got := readFile(t, path); got != "01ZZ456789" {
		t.Fatalf("file = %q, want %q", got, "01ZZ456789")
	}

	if got := string(mustBytes(t, b)); got != "0123456789" {
		t.Errorf("other document = %q, want %q", got, "0123456789")
	}
	if b.FileSource() != bfs {
		t.Error("other document lost its file source")
	}
	checkSegments(t, b)

	if err := repo.SaveDocument(b); err != nil {
		t.Fatalf("SaveDocument(other) failed: %v", err)
	}
	if got := readFile(t, path); got != "0123456789" {
		t.Errorf("file after second save = %q, want %q", got, "0123456789")
	}
}

func TestDisposedDocument(t *testing.T) {
	repo := NewRepository()
	doc := repo.CreateDocument()
	if err := doc.Dispose(); err != nil {
		t.Fatal(err)
	}
	if err := doc.Insert(0, []byte("x")); !errors.Is(err, content.ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	if err := doc.Dispose(); !errors.Is(err, content.ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	if repo.DocumentCount() != 0 {
		t.Errorf("DocumentCount() = %d, want 0", repo.DocumentCount())
	}
}

func TestBlockChecksum(t *testing.T) {
	path := writeTempFile(t, []byte("checksum me please"))
	repo := NewRepository()
	fs, err := repo.OpenFileSource(path, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	a, err := fs.BlockChecksum(0, 8)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := fs.BlockChecksum(0, 8)
	c, _ := fs.BlockChecksum(1, 8)
	if a != b {
		t.Error("checksum not stable")
	}
	if a == c {
		t.Error("different ranges share a checksum")
	}
}

func TestHasChanged(t *testing.T) {
	path := writeTempFile(t, []byte("v1"))
	repo := NewRepository()
	fs, err := repo.OpenFileSource(path, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	if changed, _ := fs.HasChanged(); changed {
		t.Error("HasChanged() = true for untouched file")
	}
	if err := os.WriteFile(path, []byte("version 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if changed, _ := fs.HasChanged(); !changed {
		t.Error("HasChanged() = false after external write")
	}
}

func TestRepositoryClose(t *testing.T) {
	repo := NewRepository()
	doc, fs := newTestDocument(t, repo, writeTempFile(t, []byte("abc")))

	if err := repo.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !fs.Closed() {
		t.Error("source left open")
	}
	if got := string(mustBytes(t, doc)); got != "abc" {
		t.Errorf("document lost content: %q", got)
	}
	if _, err := repo.OpenFileSource(writeTempFile(t, nil), ReadOnly); !errors.Is(err, ErrRepositoryClosed) {
		t.Errorf("expected ErrRepositoryClosed, got %v", err)
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	repo := NewRepository(WithMetrics(m))
	doc, fs := newTestDocument(t, repo, writeTempFile(t, []byte("abc")))

	if got := testutil.ToFloat64(m.openSources); got != 1 {
		t.Errorf("open sources = %v, want 1", got)
	}
	if err := doc.Insert(0, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveDocument(doc); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.saves.WithLabelValues("rewrite", "ok")); got != 1 {
		t.Errorf("rewrite saves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bytesWritten); got != 4 {
		t.Errorf("bytes written = %v, want 4", got)
	}

	_ = doc.Dispose()
	if err := repo.CloseFileSource(fs); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.openSources); got != 0 {
		t.Errorf("open sources = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.documents); got != 0 {
		t.Errorf("documents = %v, want 0", got)
	}
}

func TestWatcherReportsExternalChange(t *testing.T) {
	changes := make(chan Change, 8)
	w, err := NewWatcher(func(c Change) { changes <- c }, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	path := writeTempFile(t, []byte("before"))
	repo := NewRepository(WithWatcher(w))
	fs, err := repo.OpenFileSource(path, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	if !w.Watching(fs.Path()) {
		t.Fatal("source not watched")
	}

	if err := os.WriteFile(path, []byte("after the change"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		if c.Source != fs || c.Kind != ChangeModified {
			t.Errorf("unexpected change %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
