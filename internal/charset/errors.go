package charset

import "errors"

var (
	// ErrUnknownEncoding is returned when a name matches no known encoding.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrUnsupported is returned for registered encodings x/text cannot handle.
	ErrUnsupported = errors.New("unsupported encoding")

	// ErrUnencodable is returned when text has characters the encoding lacks.
	ErrUnencodable = errors.New("text cannot be encoded")
)
