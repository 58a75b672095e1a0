package search

import "github.com/dshills/deltabin/internal/engine/content"

// windowSize is how many bytes a window buffers per refill.
const windowSize = 64 * 1024

// window serves short byte ranges from a content store through a
// buffered chunk, so per-position reads do not hit the store each time.
type window struct {
	data     content.Data
	size     int64
	backward bool
	buf      []byte
	start    int64
	n        int
}

func newWindow(data content.Data, backward bool) *window {
	return &window{data: data, size: data.Len(), backward: backward}
}

// bytes returns up to max bytes at pos, fewer near the end of content.
func (w *window) bytes(pos int64, max int) ([]byte, error) {
	if pos < 0 || pos >= w.size || max <= 0 {
		return nil, nil
	}
	if rest := w.size - pos; int64(max) > rest {
		max = int(rest)
	}
	if pos < w.start || pos+int64(max) > w.start+int64(w.n) {
		if err := w.fill(pos, max); err != nil {
			return nil, err
		}
	}
	off := int(pos - w.start)
	return w.buf[off : off+max], nil
}

func (w *window) fill(pos int64, need int) error {
	chunk := windowSize
	if need > chunk {
		chunk = need
	}
	start := pos
	if w.backward {
		// Keep pos near the end of the chunk so the next positions hit.
		start = pos + int64(need) - int64(chunk)
		if start < 0 {
			start = 0
		}
	}
	n := int64(chunk)
	if rest := w.size - start; n > rest {
		n = rest
	}
	if cap(w.buf) < int(n) {
		w.buf = make([]byte, n)
	}
	w.buf = w.buf[:n]
	if err := w.data.CopyTo(start, w.buf); err != nil {
		w.n = 0
		return err
	}
	w.start = start
	w.n = int(n)
	return nil
}
