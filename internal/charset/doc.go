// Package charset resolves character encodings by name and decodes
// single characters from raw bytes.
//
// Text search over a byte document works one character at a time:
// read up to MaxBytesPerChar bytes, decode the first character, and step
// forward by that character's encoded length. Charset provides exactly
// those primitives on top of golang.org/x/text/encoding.
//
// # Lookup
//
// Names are resolved through the IANA registry first and the WHATWG
// (HTML) index second, so both "ISO-8859-1" and "latin1" work:
//
//	cs, err := charset.Lookup("UTF-16LE")
//	if err != nil {
//	    return err
//	}
//	r, size := cs.DecodeRune(window)
//
// UTF-8, UTF-16 and single-byte code pages decode without allocation.
// Other multi-byte encodings go through the x/text decoder and re-encode
// the decoded rune to learn its byte length.
//
// # Detection
//
// Detect inspects a content sample for a byte order mark, valid UTF-8,
// or binary data, and reports the encoding name it would open the
// content with.
package charset
