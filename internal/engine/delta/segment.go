package delta

// segment is a contiguous run of a document. A segment either references
// [offset, offset+length) of the document's file source (data == nil) or
// owns its bytes in data.
type segment struct {
	offset int64
	length int64
	data   []byte
}

// maxMergeSize bounds how large an owned segment grows by absorbing
// neighboring inserts.
const maxMergeSize = 64 * 1024

func sourceSegment(offset, length int64) segment {
	return segment{offset: offset, length: length}
}

// ownedSegment copies p into a new owned segment.
func ownedSegment(p []byte) segment {
	data := make([]byte, len(p))
	copy(data, p)
	return segment{length: int64(len(p)), data: data}
}

func (s segment) isSource() bool {
	return s.data == nil
}

// slice returns the part [from, to) of s, relative to the segment start.
// Owned slices are capped so that appending to one never writes into
// bytes shared with another.
func (s segment) slice(from, to int64) segment {
	if s.isSource() {
		return segment{offset: s.offset + from, length: to - from}
	}
	return segment{length: to - from, data: s.data[from:to:to]}
}

// frozen returns s with owned data capped at its length.
func (s segment) frozen() segment {
	if !s.isSource() {
		s.data = s.data[:len(s.data):len(s.data)]
	}
	return s
}
