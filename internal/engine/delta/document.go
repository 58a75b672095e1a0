package delta

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dshills/deltabin/internal/engine/content"
)

// Document is a copy-on-write view over an optional file source.
// Edits split and re-slice segments; the file itself only changes when the
// document is saved through its repository.
type Document struct {
	repo     *Repository
	source   *FileSource
	segments []segment
	length   int64
	disposed bool

	// starts[i] is the document offset of segments[i]; rebuilt lazily.
	starts []int64
	dirty  bool
}

// SegmentInfo describes one segment for inspection.
type SegmentInfo struct {
	// Start is the document offset of the segment.
	Start int64
	// Length is the segment size in bytes.
	Length int64
	// Source is true when the segment references the file source.
	Source bool
	// SourceOffset is the file offset for source segments.
	SourceOffset int64
}

// Kind returns content.KindDelta.
func (d *Document) Kind() content.Kind {
	return content.KindDelta
}

// Len returns the document length.
func (d *Document) Len() int64 {
	return d.length
}

// Disposed reports whether the document was released.
func (d *Document) Disposed() bool {
	return d.disposed
}

// FileSource returns the source the document reads from, or nil.
func (d *Document) FileSource() *FileSource {
	return d.source
}

// Repository returns the repository that created the document.
func (d *Document) Repository() *Repository {
	return d.repo
}

// Segments describes the current segment layout.
func (d *Document) Segments() []SegmentInfo {
	out := make([]SegmentInfo, len(d.segments))
	var start int64
	for i, s := range d.segments {
		out[i] = SegmentInfo{Start: start, Length: s.length, Source: s.isSource()}
		if s.isSource() {
			out[i].SourceOffset = s.offset
		}
		start += s.length
	}
	return out
}

// ByteAt returns the byte at pos.
func (d *Document) ByteAt(pos int64) (byte, error) {
	var b [1]byte
	if err := d.CopyTo(pos, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// CopyTo fills dst with the bytes starting at pos.
func (d *Document) CopyTo(pos int64, dst []byte) error {
	if d.disposed {
		return content.ErrDisposed
	}
	if err := content.CheckRange(pos, int64(len(dst)), d.length); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}

	i := d.locate(pos)
	off := pos - d.starts[i]
	for n := 0; n < len(dst); i++ {
		s := d.segments[i]
		want := s.length - off
		if rest := int64(len(dst) - n); want > rest {
			want = rest
		}
		if s.isSource() {
			if err := d.source.readFull(dst[n:n+int(want)], s.offset+off); err != nil {
				return err
			}
		} else {
			copy(dst[n:], s.data[off:off+want])
		}
		n += int(want)
		off = 0
	}
	return nil
}

// Insert inserts p at pos as an owned segment.
func (d *Document) Insert(pos int64, p []byte) error {
	if d.disposed {
		return content.ErrDisposed
	}
	if err := content.CheckInsert(pos, d.length); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	d.insertSegments(pos, []segment{ownedSegment(p)})
	return nil
}

// InsertData inserts all of src at pos. When src reads from the same file
// source, its segments are spliced in by reference instead of copied.
func (d *Document) InsertData(pos int64, src content.Data) error {
	if d.disposed {
		return content.ErrDisposed
	}
	other, ok := src.(*Document)
	if !ok || d.source == nil || other.source != d.source {
		return content.Transfer(d, pos, src)
	}
	if other.disposed {
		return content.ErrDisposed
	}
	if err := content.CheckInsert(pos, d.length); err != nil {
		return err
	}
	if len(other.segments) == 0 {
		return nil
	}
	segs := make([]segment, len(other.segments))
	for i, s := range other.segments {
		segs[i] = s.frozen()
	}
	d.insertSegments(pos, segs)
	return nil
}

// insertSegments splices segs in at pos, splitting the segment under pos.
func (d *Document) insertSegments(pos int64, segs []segment) {
	var added int64
	for _, s := range segs {
		added += s.length
	}

	i := len(d.segments)
	if pos < d.length {
		i = d.locate(pos)
		if off := pos - d.starts[i]; off > 0 {
			s := d.segments[i]
			d.segments = splice(d.segments, i, 1, s.slice(0, off), s.slice(off, s.length))
			i++
		}
	}

	// Grow the preceding owned run instead of adding a segment.
	if len(segs) == 1 && !segs[0].isSource() && i > 0 {
		prev := d.segments[i-1]
		if !prev.isSource() && prev.length+segs[0].length <= maxMergeSize {
			prev.data = append(prev.data, segs[0].data...)
			prev.length += segs[0].length
			d.segments[i-1] = prev
			d.length += added
			d.dirty = true
			return
		}
	}

	d.segments = splice(d.segments, i, 0, segs...)
	d.length += added
	d.dirty = true
}

// Remove deletes [pos, pos+length). Source segments are re-sliced or
// dropped; the file is not touched.
func (d *Document) Remove(pos, length int64) error {
	if d.disposed {
		return content.ErrDisposed
	}
	if err := content.CheckRange(pos, length, d.length); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}

	end := pos + length
	i := d.locate(pos)
	start := d.starts[i]

	out := make([]segment, 0, len(d.segments)+1)
	out = append(out, d.segments[:i]...)
	for ; i < len(d.segments); i++ {
		if start >= end {
			out = append(out, d.segments[i:]...)
			break
		}
		s := d.segments[i]
		segEnd := start + s.length
		if start < pos {
			out = append(out, s.slice(0, pos-start))
		}
		if segEnd > end {
			out = append(out, s.slice(end-start, s.length))
		}
		start = segEnd
	}

	d.segments = out
	d.length -= length
	d.dirty = true
	return nil
}

// WriteTo streams the document front to back.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if d.disposed {
		return 0, content.ErrDisposed
	}
	var total int64
	for _, s := range d.segments {
		if s.isSource() {
			n, err := io.Copy(w, io.NewSectionReader(d.source, s.offset, s.length))
			total += n
			if err != nil {
				return total, err
			}
			if n != s.length {
				return total, fmt.Errorf("read %s: %w", d.source.path, io.ErrUnexpectedEOF)
			}
			continue
		}
		n, err := w.Write(s.data)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Save writes the document. Saving onto the document's own file (or with a
// nil sink) goes through the repository; any other sink receives a stream.
func (d *Document) Save(sink content.Sink) error {
	if d.disposed {
		return content.ErrDisposed
	}
	if d.source != nil && (sink == nil || isSameFile(sink, d.source.path)) {
		return d.repo.SaveDocument(d)
	}
	return content.SaveTo(sink, d)
}

// Dispose releases the document and drops its attachment.
// The file source itself stays open.
func (d *Document) Dispose() error {
	if d.disposed {
		return content.ErrDisposed
	}
	if d.repo != nil {
		d.repo.release(d)
	}
	d.segments = nil
	d.starts = nil
	d.length = 0
	d.source = nil
	d.disposed = true
	return nil
}

// materialize copies every source segment into memory and drops the
// reference to the file source.
func (d *Document) materialize() error {
	if err := d.copySourceSegments(); err != nil {
		return err
	}
	d.source = nil
	return nil
}

// copySourceSegments copies every source segment into memory. The file
// source stays attached.
func (d *Document) copySourceSegments() error {
	for i, s := range d.segments {
		if !s.isSource() {
			continue
		}
		buf := make([]byte, s.length)
		if err := d.source.readFull(buf, s.offset); err != nil {
			return err
		}
		d.segments[i] = segment{length: s.length, data: buf}
	}
	return nil
}

// resetToSource replaces the layout by one segment covering the whole file.
func (d *Document) resetToSource(length int64) {
	d.segments = d.segments[:0]
	if length > 0 {
		d.segments = append(d.segments, sourceSegment(0, length))
	}
	d.length = length
	d.dirty = true
}

// locate returns the index of the segment containing pos.
// pos must lie in [0, length).
func (d *Document) locate(pos int64) int {
	if d.dirty || len(d.starts) != len(d.segments) {
		d.starts = d.starts[:0]
		var start int64
		for _, s := range d.segments {
			d.starts = append(d.starts, start)
			start += s.length
		}
		d.dirty = false
	}
	return sort.Search(len(d.starts), func(i int) bool { return d.starts[i] > pos }) - 1
}

// splice replaces n segments at i with repl.
func splice(segs []segment, i, n int, repl ...segment) []segment {
	out := make([]segment, 0, len(segs)-n+len(repl))
	out = append(out, segs[:i]...)
	out = append(out, repl...)
	return append(out, segs[i+n:]...)
}

// isSameFile reports whether sink writes to path.
func isSameFile(sink content.Sink, path string) bool {
	ps, ok := sink.(content.PathSink)
	if !ok {
		return false
	}
	a, errA := os.Stat(ps.Path())
	b, errB := os.Stat(path)
	if errA == nil && errB == nil {
		return os.SameFile(a, b)
	}
	absA, _ := filepath.Abs(ps.Path())
	absB, _ := filepath.Abs(path)
	return absA == absB
}
