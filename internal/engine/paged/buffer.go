package paged

import (
	"io"

	"github.com/dshills/deltabin/internal/engine/content"
)

// Buffer is a growable byte sequence stored in fixed-capacity pages.
type Buffer struct {
	pages    []page
	length   int64
	pageSize int
	disposed bool

	// Cached start of the last located page.
	hintPage  int
	hintStart int64
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithPageSize sets the page capacity. Values below 16 are ignored.
func WithPageSize(size int) Option {
	return func(b *Buffer) {
		if size >= 16 {
			b.pageSize = size
		}
	}
}

// New creates an empty buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromBytes creates a buffer holding a copy of p.
func NewFromBytes(p []byte, opts ...Option) *Buffer {
	b := New(opts...)
	b.pages = splitInto(p, b.pageSize)
	b.length = int64(len(p))
	return b
}

// Load creates a buffer holding everything read from r.
func Load(r io.Reader, opts ...Option) (*Buffer, error) {
	b := New(opts...)
	if _, err := b.ReadFrom(r); err != nil {
		return nil, err
	}
	return b, nil
}

// Kind returns content.KindFlat.
func (b *Buffer) Kind() content.Kind {
	return content.KindFlat
}

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int64 {
	return b.length
}

// PageCount returns the number of pages.
func (b *Buffer) PageCount() int {
	return len(b.pages)
}

// Disposed reports whether the buffer was released.
func (b *Buffer) Disposed() bool {
	return b.disposed
}

// Dispose drops all pages.
func (b *Buffer) Dispose() error {
	if b.disposed {
		return content.ErrDisposed
	}
	b.pages = nil
	b.length = 0
	b.disposed = true
	b.resetHint()
	return nil
}

// ByteAt returns the byte at pos.
func (b *Buffer) ByteAt(pos int64) (byte, error) {
	if b.disposed {
		return 0, content.ErrDisposed
	}
	if err := content.CheckRange(pos, 1, b.length); err != nil {
		return 0, err
	}
	i, off := b.locate(pos)
	return b.pages[i][off], nil
}

// CopyTo fills dst starting at pos.
func (b *Buffer) CopyTo(pos int64, dst []byte) error {
	if b.disposed {
		return content.ErrDisposed
	}
	if err := content.CheckRange(pos, int64(len(dst)), b.length); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	i, off := b.locate(pos)
	for n := 0; n < len(dst); i++ {
		n += copy(dst[n:], b.pages[i][off:])
		off = 0
	}
	return nil
}

// Insert inserts p at pos.
func (b *Buffer) Insert(pos int64, p []byte) error {
	if b.disposed {
		return content.ErrDisposed
	}
	if err := content.CheckInsert(pos, b.length); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	defer b.resetHint()

	if pos == b.length {
		b.appendBytes(p)
		return nil
	}

	i, off := b.locate(pos)
	pg := b.pages[i]

	// Fits: splice in place.
	if len(pg)+len(p) <= b.pageSize {
		var grown page
		if cap(pg) >= len(pg)+len(p) {
			grown = pg[:len(pg)+len(p)]
		} else {
			grown = make(page, len(pg)+len(p), b.pageSize)
			copy(grown, pg[:off])
		}
		copy(grown[off+len(p):], pg[off:])
		copy(grown[off:], p)
		b.pages[i] = grown
		b.length += int64(len(p))
		return nil
	}

	// Split the page around the insertion point.
	head := pg[:off:off]
	tail := append(page(nil), pg[off:]...)

	joined := make([]byte, 0, len(head)+len(p))
	joined = append(joined, head...)
	joined = append(joined, p...)
	replacement := splitInto(joined, b.pageSize)

	last := replacement[len(replacement)-1]
	if len(last)+len(tail) <= b.pageSize {
		replacement[len(replacement)-1] = append(last, tail...)
	} else {
		replacement = append(replacement, tail)
	}

	b.pages = spliceOne(b.pages, i, replacement)
	b.length += int64(len(p))
	return nil
}

// InsertData inserts all of src at pos.
func (b *Buffer) InsertData(pos int64, src content.Data) error {
	if b.disposed {
		return content.ErrDisposed
	}
	if other, ok := src.(*Buffer); ok && other != b {
		if err := content.CheckInsert(pos, b.length); err != nil {
			return err
		}
		for _, pg := range other.pages {
			if err := b.Insert(pos, pg); err != nil {
				return err
			}
			pos += int64(len(pg))
		}
		return nil
	}
	return content.Transfer(b, pos, src)
}

// Remove deletes [pos, pos+length).
func (b *Buffer) Remove(pos, length int64) error {
	if b.disposed {
		return content.ErrDisposed
	}
	if err := content.CheckRange(pos, length, b.length); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	defer b.resetHint()

	i, off := b.locate(pos)
	first := i
	remaining := length
	for remaining > 0 {
		pg := b.pages[i]
		n := int64(len(pg) - off)
		if n > remaining {
			n = remaining
		}
		b.pages[i] = append(pg[:off], pg[off+int(n):]...)
		remaining -= n
		off = 0
		i++
	}
	b.length -= length

	// Drop emptied pages and merge small neighbors.
	kept := b.pages[:first]
	for _, pg := range b.pages[first:] {
		if len(pg) == 0 {
			continue
		}
		if n := len(kept); n > 0 && b.mergeable(kept[n-1], pg) {
			kept[n-1] = append(kept[n-1], pg...)
			continue
		}
		kept = append(kept, pg)
	}
	for j := len(kept); j < len(b.pages); j++ {
		b.pages[j] = nil
	}
	b.pages = kept
	return nil
}

// Clear removes all bytes.
func (b *Buffer) Clear() {
	b.pages = nil
	b.length = 0
	b.resetHint()
}

// ReadFrom appends everything read from r.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	if b.disposed {
		return 0, content.ErrDisposed
	}
	defer b.resetHint()

	var total int64
	chunk := make([]byte, b.pageSize)
	for {
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			b.appendBytes(chunk[:n])
			total += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// WriteTo writes the pages to w in order.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if b.disposed {
		return 0, content.ErrDisposed
	}
	var total int64
	for _, pg := range b.pages {
		n, err := w.Write(pg)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Save streams the buffer to sink.
func (b *Buffer) Save(sink content.Sink) error {
	if b.disposed {
		return content.ErrDisposed
	}
	return content.SaveTo(sink, b)
}

// Bytes returns a copy of the whole buffer.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, 0, b.length)
	for _, pg := range b.pages {
		out = append(out, pg...)
	}
	return out
}

// appendBytes fills the last page and adds new pages for the rest.
func (b *Buffer) appendBytes(p []byte) {
	b.length += int64(len(p))
	if n := len(b.pages); n > 0 {
		last := b.pages[n-1]
		room := b.pageSize - len(last)
		if room > 0 {
			if room > len(p) {
				room = len(p)
			}
			if cap(last) < len(last)+room {
				grown := make(page, len(last), b.pageSize)
				copy(grown, last)
				last = grown
			}
			b.pages[n-1] = append(last, p[:room]...)
			p = p[room:]
		}
	}
	b.pages = append(b.pages, splitInto(p, b.pageSize)...)
}

// locate returns the page index and in-page offset of pos.
// pos must be inside [0, length).
func (b *Buffer) locate(pos int64) (int, int) {
	i, start := 0, int64(0)
	if b.hintPage < len(b.pages) && b.hintStart <= pos {
		i, start = b.hintPage, b.hintStart
	}
	for ; i < len(b.pages); i++ {
		end := start + int64(len(b.pages[i]))
		if pos < end {
			b.hintPage, b.hintStart = i, start
			return i, int(pos - start)
		}
		start = end
	}
	// Unreachable for valid positions.
	return len(b.pages) - 1, len(b.pages[len(b.pages)-1])
}

// mergeable reports whether two neighbors should be joined: they fit in one
// page and at least one of them is under a quarter full.
func (b *Buffer) mergeable(a, c page) bool {
	low := b.pageSize / 4
	return len(a)+len(c) <= b.pageSize && (len(a) < low || len(c) < low)
}

func (b *Buffer) resetHint() {
	b.hintPage, b.hintStart = 0, 0
}

// spliceOne replaces pages[i] with repl.
func spliceOne(pages []page, i int, repl []page) []page {
	out := make([]page, 0, len(pages)-1+len(repl))
	out = append(out, pages[:i]...)
	out = append(out, repl...)
	return append(out, pages[i+1:]...)
}
