package charset

import (
	"bytes"
	"unicode/utf8"
)

// Byte order marks.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// binarySample limits how much content IsBinary inspects.
const binarySample = 8192

// Probe describes what Detect found in a content sample.
type Probe struct {
	// Name is the encoding name suitable for Lookup.
	Name string

	// HasBOM indicates the sample starts with a byte order mark.
	HasBOM bool

	// IsBinary indicates the sample does not look like text.
	IsBinary bool
}

// Detect guesses the encoding of a content sample.
// It checks for BOM markers first, then validates UTF-8, and falls back
// to ISO-8859-1 which accepts every byte sequence.
func Detect(sample []byte) Probe {
	switch {
	case len(sample) == 0:
		return Probe{Name: Default}
	case bytes.HasPrefix(sample, bomUTF8):
		return Probe{Name: "UTF-8", HasBOM: true}
	case bytes.HasPrefix(sample, bomUTF16LE):
		return Probe{Name: "UTF-16LE", HasBOM: true}
	case bytes.HasPrefix(sample, bomUTF16BE):
		return Probe{Name: "UTF-16BE", HasBOM: true}
	}

	p := Probe{IsBinary: IsBinary(sample)}
	switch {
	case isASCII(sample):
		p.Name = "US-ASCII"
	case validUTF8Prefix(sample):
		p.Name = "UTF-8"
	default:
		p.Name = "ISO-8859-1"
	}
	return p
}

// StripBOM removes a leading byte order mark and returns the remaining
// content with the encoding the mark names. Content without a mark is
// returned unchanged with an empty name.
func StripBOM(content []byte) ([]byte, string) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return content[len(bomUTF8):], "UTF-8"
	case bytes.HasPrefix(content, bomUTF16LE):
		return content[len(bomUTF16LE):], "UTF-16LE"
	case bytes.HasPrefix(content, bomUTF16BE):
		return content[len(bomUTF16BE):], "UTF-16BE"
	}
	return content, ""
}

// IsBinary reports whether content looks like binary data: it contains
// a NUL byte, or more than 10% of it is control characters other than
// tab, newline and carriage return.
func IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	if len(content) > binarySample {
		content = content[:binarySample]
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return true
	}

	nonText := 0
	for _, b := range content {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' {
			nonText++
		}
	}
	return float64(nonText)/float64(len(content)) > 0.1
}

func isASCII(content []byte) bool {
	for _, b := range content {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// validUTF8Prefix accepts a sample whose only defect is a character cut
// off at the end, as happens when the sample is a fixed-size window.
func validUTF8Prefix(content []byte) bool {
	if utf8.Valid(content) {
		return true
	}
	for i := 1; i < utf8.UTFMax && i < len(content); i++ {
		tail := content[len(content)-i:]
		if utf8.RuneStart(tail[0]) && !utf8.FullRune(tail) {
			return utf8.Valid(content[:len(content)-i])
		}
	}
	return false
}
