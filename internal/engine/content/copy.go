package content

import (
	"errors"
	"io"
)

// ChunkSize is the transfer unit used when copying between stores.
const ChunkSize = 64 * 1024

// ReadRange returns a copy of [pos, pos+length).
func ReadRange(d Data, pos, length int64) ([]byte, error) {
	if err := CheckRange(pos, length, d.Len()); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if err := d.CopyTo(pos, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Bytes returns the whole content as one slice.
func Bytes(d Data) ([]byte, error) {
	return ReadRange(d, 0, d.Len())
}

// Transfer inserts all of src into dst at pos in ChunkSize pieces.
// It is the generic path behind InsertData when the stores share no
// cheaper representation.
func Transfer(dst Data, pos int64, src Data) error {
	if err := CheckInsert(pos, dst.Len()); err != nil {
		return err
	}
	if dst == src {
		all, err := Bytes(src)
		if err != nil {
			return err
		}
		return dst.Insert(pos, all)
	}

	size := src.Len()
	buf := make([]byte, ChunkSize)
	for off := int64(0); off < size; {
		n := int64(len(buf))
		if size-off < n {
			n = size - off
		}
		if err := src.CopyTo(off, buf[:n]); err != nil {
			return err
		}
		if err := dst.Insert(pos+off, buf[:n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}

// Stream writes all of d to w in ChunkSize pieces.
func Stream(w io.Writer, d Data) (int64, error) {
	size := d.Len()
	buf := make([]byte, ChunkSize)
	var written int64
	for written < size {
		n := int64(len(buf))
		if size-written < n {
			n = size - written
		}
		if err := d.CopyTo(written, buf[:n]); err != nil {
			return written, err
		}
		m, err := w.Write(buf[:n])
		written += int64(m)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// SaveTo opens sink and streams d into it.
func SaveTo(sink Sink, d Data) error {
	if sink == nil {
		return errors.New("no sink")
	}
	w, err := sink.Create()
	if err != nil {
		return err
	}
	if _, err = d.WriteTo(w); err != nil {
		if a, ok := w.(Aborter); ok {
			a.Abort()
			return err
		}
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Aborter is implemented by sink writers that can discard a partial write
// instead of committing it on Close.
type Aborter interface {
	Abort()
}

// readerAt adapts Data to io.ReaderAt.
type readerAt struct {
	d Data
}

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	size := r.d.Len()
	if off < 0 {
		return 0, ErrOutOfRange
	}
	if off >= size {
		return 0, io.EOF
	}
	n := len(p)
	if int64(n) > size-off {
		n = int(size - off)
	}
	if err := r.d.CopyTo(off, p[:n]); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// NewReader returns a reader over the current content of d.
// The reader's size is fixed at creation; mutate d only after reading.
func NewReader(d Data) *io.SectionReader {
	return io.NewSectionReader(readerAt{d: d}, 0, d.Len())
}
