package content_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/dshills/deltabin/internal/engine/content"
	"github.com/dshills/deltabin/internal/engine/paged"
)

func TestCheckRange(t *testing.T) {
	tests := []struct {
		pos, length, size int64
		want              error
	}{
		{0, 0, 0, nil},
		{0, 4, 4, nil},
		{2, 2, 4, nil},
		{4, 0, 4, nil},
		{3, 2, 4, content.ErrOutOfRange},
		{-1, 1, 4, content.ErrOutOfRange},
		{5, 0, 4, content.ErrOutOfRange},
		{0, -1, 4, content.ErrInvalidLength},
	}
	for _, tt := range tests {
		err := content.CheckRange(tt.pos, tt.length, tt.size)
		if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
			t.Errorf("CheckRange(%d, %d, %d) = %v, want %v", tt.pos, tt.length, tt.size, err, tt.want)
		}
	}
}

func TestCheckInsert(t *testing.T) {
	if err := content.CheckInsert(4, 4); err != nil {
		t.Errorf("CheckInsert at end: %v", err)
	}
	if err := content.CheckInsert(5, 4); !errors.Is(err, content.ErrOutOfRange) {
		t.Errorf("CheckInsert past end = %v, want ErrOutOfRange", err)
	}
}

func TestKindString(t *testing.T) {
	if content.KindFlat.String() != "flat" || content.KindDelta.String() != "delta" {
		t.Errorf("Kind names = %s, %s", content.KindFlat, content.KindDelta)
	}
}

func TestReadRange(t *testing.T) {
	d := paged.NewFromBytes([]byte("0123456789"), paged.WithPageSize(4))
	got, err := content.ReadRange(d, 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "34567" {
		t.Errorf("ReadRange = %q, want %q", got, "34567")
	}
	if _, err := content.ReadRange(d, 8, 5); !errors.Is(err, content.ErrOutOfRange) {
		t.Errorf("ReadRange past end = %v, want ErrOutOfRange", err)
	}
}

func TestTransfer(t *testing.T) {
	big := bytes.Repeat([]byte("abcdefg"), content.ChunkSize/3)

	tests := []struct {
		name string
		dst  string
		pos  int64
		src  []byte
	}{
		{"empty source", "xy", 1, nil},
		{"small", "xy", 1, []byte("123")},
		{"at end", "xy", 2, []byte("123")},
		{"several chunks", "xy", 1, big},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := paged.NewFromBytes([]byte(tt.dst), paged.WithPageSize(64))
			src := paged.NewFromBytes(tt.src)
			if err := content.Transfer(dst, tt.pos, src); err != nil {
				t.Fatal(err)
			}
			want := tt.dst[:tt.pos] + string(tt.src) + tt.dst[tt.pos:]
			got, _ := content.Bytes(dst)
			if string(got) != want {
				t.Errorf("Transfer produced %d bytes, want %d", len(got), len(want))
			}
			if src.Len() != int64(len(tt.src)) {
				t.Errorf("source changed length to %d", src.Len())
			}
		})
	}
}

func TestTransferIntoItself(t *testing.T) {
	d := paged.NewFromBytes([]byte("ab"))
	if err := content.Transfer(d, 1, d); err != nil {
		t.Fatal(err)
	}
	if got, _ := content.Bytes(d); string(got) != "aabb" {
		t.Errorf("content = %q, want %q", got, "aabb")
	}
}

func TestStream(t *testing.T) {
	data := bytes.Repeat([]byte{1, 2, 3}, content.ChunkSize)
	d := paged.NewFromBytes(data)
	var buf bytes.Buffer
	n, err := content.Stream(&buf, d)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(data)) || !bytes.Equal(buf.Bytes(), data) {
		t.Errorf("Stream wrote %d bytes, want %d", n, len(data))
	}
}

func TestNewReader(t *testing.T) {
	d := paged.NewFromBytes([]byte("hello world"), paged.WithPageSize(3))
	got, err := io.ReadAll(content.NewReader(d))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Errorf("ReadAll = %q", got)
	}

	p := make([]byte, 4)
	n, err := content.NewReader(d).ReadAt(p, 9)
	if n != 2 || err != io.EOF {
		t.Errorf("ReadAt near end = (%d, %v), want (2, EOF)", n, err)
	}
}

// testSink records what was written and whether the write was committed.
type testSink struct {
	buf       bytes.Buffer
	failAfter int
	committed bool
	aborted   bool
}

func (s *testSink) Create() (io.WriteCloser, error) {
	s.buf.Reset()
	return &testWriter{sink: s}, nil
}

type testWriter struct {
	sink *testSink
}

var errDiskFull = errors.New("disk full")

func (w *testWriter) Write(p []byte) (int, error) {
	if w.sink.failAfter > 0 && w.sink.buf.Len()+len(p) > w.sink.failAfter {
		return 0, errDiskFull
	}
	return w.sink.buf.Write(p)
}

func (w *testWriter) Close() error {
	w.sink.committed = true
	return nil
}

func (w *testWriter) Abort() {
	w.sink.aborted = true
}

func TestSaveTo(t *testing.T) {
	d := paged.NewFromBytes([]byte("payload"))
	sink := &testSink{}
	if err := content.SaveTo(sink, d); err != nil {
		t.Fatal(err)
	}
	if sink.buf.String() != "payload" || !sink.committed {
		t.Errorf("sink = %q committed=%v", sink.buf.String(), sink.committed)
	}
}

func TestSaveToAbortsOnFailure(t *testing.T) {
	d := paged.NewFromBytes(bytes.Repeat([]byte("x"), 2*content.ChunkSize))
	sink := &testSink{failAfter: content.ChunkSize}
	err := content.SaveTo(sink, d)
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("SaveTo error = %v, want errDiskFull", err)
	}
	if !sink.aborted || sink.committed {
		t.Errorf("aborted=%v committed=%v, want aborted only", sink.aborted, sink.committed)
	}
}

func TestSaveToNilSink(t *testing.T) {
	if err := content.SaveTo(nil, paged.New()); err == nil {
		t.Error("SaveTo(nil) should fail")
	}
}
