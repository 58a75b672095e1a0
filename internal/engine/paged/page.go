package paged

// DefaultPageSize is the page capacity used by New.
const DefaultPageSize = 4096

// page is a run of bytes owned by a Buffer.
type page []byte

// splitInto cuts p into pages of at most size bytes.
// The returned pages do not alias p.
func splitInto(p []byte, size int) []page {
	if len(p) == 0 {
		return nil
	}
	out := make([]page, 0, (len(p)+size-1)/size)
	for len(p) > 0 {
		n := size
		if len(p) < n {
			n = len(p)
		}
		pg := make(page, n, size)
		copy(pg, p[:n])
		out = append(out, pg)
		p = p[n:]
	}
	return out
}
