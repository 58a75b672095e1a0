package charset

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Default is the encoding used when none is configured.
const Default = "UTF-8"

type codec int

const (
	codecUTF8 codec = iota
	codecUTF16LE
	codecUTF16BE
	codecASCII
	codecSingle
	codecGeneric
)

// Charset is a resolved character encoding.
// A Charset is immutable and safe for concurrent use.
type Charset struct {
	name     string
	enc      encoding.Encoding
	codec    codec
	single   *charmap.Charmap
	minBytes int
	maxBytes int
}

// maxBytesByName covers the common multi-byte code pages.
var maxBytesByName = map[string]int{
	"SHIFT_JIS":   2,
	"WINDOWS-31J": 2,
	"EUC-KR":      2,
	"GBK":         2,
	"GB2312":      2,
	"BIG5":        2,
	"EUC-JP":      3,
	"GB18030":     4,
	"ISO-2022-JP": 8,
}

var utf8Charset = &Charset{
	name:     "UTF-8",
	enc:      unicode.UTF8,
	codec:    codecUTF8,
	minBytes: 1,
	maxBytes: utf8.UTFMax,
}

// UTF8 returns the UTF-8 charset.
func UTF8() *Charset {
	return utf8Charset
}

// Lookup resolves an encoding name. An empty name selects UTF-8.
func Lookup(name string) (*Charset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return utf8Charset, nil
	}
	if isASCIIName(name) {
		return &Charset{
			name:     "US-ASCII",
			enc:      charmap.Windows1252,
			codec:    codecASCII,
			minBytes: 1,
			maxBytes: 1,
		}, nil
	}

	enc, canonical, err := resolve(name)
	if err != nil {
		return nil, err
	}

	upper := strings.ToUpper(canonical)
	switch {
	case upper == "UTF-8":
		return utf8Charset, nil
	case upper == "UTF-16LE":
		return &Charset{
			name:     "UTF-16LE",
			enc:      unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
			codec:    codecUTF16LE,
			minBytes: 2,
			maxBytes: 4,
		}, nil
	case upper == "UTF-16BE" || upper == "UTF-16":
		return &Charset{
			name:     "UTF-16BE",
			enc:      unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
			codec:    codecUTF16BE,
			minBytes: 2,
			maxBytes: 4,
		}, nil
	}

	if cm, ok := enc.(*charmap.Charmap); ok {
		return &Charset{
			name:     canonical,
			enc:      enc,
			codec:    codecSingle,
			single:   cm,
			minBytes: 1,
			maxBytes: 1,
		}, nil
	}

	cs := &Charset{
		name:     canonical,
		enc:      enc,
		codec:    codecGeneric,
		minBytes: 1,
		maxBytes: 4,
	}
	if strings.HasPrefix(upper, "UTF-32") {
		cs.minBytes = 4
	}
	if n, ok := maxBytesByName[upper]; ok {
		cs.maxBytes = n
	}
	return cs, nil
}

// MustLookup is like Lookup but panics on error.
func MustLookup(name string) *Charset {
	cs, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return cs
}

func resolve(name string) (encoding.Encoding, string, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err == nil && enc != nil {
		return enc, preferredName(enc, name), nil
	}
	known := err == nil

	enc, herr := htmlindex.Get(name)
	if herr == nil && enc != nil {
		canonical, nerr := htmlindex.Name(enc)
		if nerr != nil || canonical == "" {
			canonical = name
		}
		return enc, canonical, nil
	}

	if known {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	return nil, "", fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
}

// preferredName returns the MIME name of enc, then its IANA name, then
// fallback.
func preferredName(enc encoding.Encoding, fallback string) string {
	for _, idx := range []*ianaindex.Index{ianaindex.MIME, ianaindex.IANA} {
		if n, err := idx.Name(enc); err == nil && n != "" {
			return n
		}
	}
	return fallback
}

func isASCIIName(name string) bool {
	switch strings.ToUpper(name) {
	case "ASCII", "US-ASCII", "ANSI_X3.4-1968", "ISO646-US":
		return true
	}
	return false
}

// Name returns the canonical encoding name.
func (c *Charset) Name() string {
	return c.name
}

// Encoding returns the underlying x/text encoding.
func (c *Charset) Encoding() encoding.Encoding {
	return c.enc
}

// MinBytesPerChar returns the fewest bytes one character occupies.
func (c *Charset) MinBytesPerChar() int {
	return c.minBytes
}

// MaxBytesPerChar returns the most bytes one character occupies.
func (c *Charset) MaxBytesPerChar() int {
	return c.maxBytes
}

// IsUnicode returns true for the UTF encodings.
func (c *Charset) IsUnicode() bool {
	switch c.codec {
	case codecUTF8, codecUTF16LE, codecUTF16BE:
		return true
	}
	return strings.HasPrefix(strings.ToUpper(c.name), "UTF-")
}

// DecodeRune decodes the first character of p and returns it with the
// number of bytes it occupies. Undecodable input yields utf8.RuneError
// with a size of at least one byte. An empty p returns (RuneError, 0).
func (c *Charset) DecodeRune(p []byte) (rune, int) {
	if len(p) == 0 {
		return utf8.RuneError, 0
	}

	switch c.codec {
	case codecUTF8:
		return utf8.DecodeRune(p)
	case codecASCII:
		if p[0] < utf8.RuneSelf {
			return rune(p[0]), 1
		}
		return utf8.RuneError, 1
	case codecSingle:
		return c.single.DecodeByte(p[0]), 1
	case codecUTF16LE, codecUTF16BE:
		return c.decodeUTF16(p)
	}
	return c.decodeGeneric(p)
}

func (c *Charset) unit(p []byte) uint16 {
	if c.codec == codecUTF16LE {
		return uint16(p[0]) | uint16(p[1])<<8
	}
	return uint16(p[0])<<8 | uint16(p[1])
}

func (c *Charset) decodeUTF16(p []byte) (rune, int) {
	if len(p) < 2 {
		return utf8.RuneError, len(p)
	}
	r1 := rune(c.unit(p))
	if !utf16.IsSurrogate(r1) {
		return r1, 2
	}
	if r1 < 0xDC00 && len(p) >= 4 {
		if r := utf16.DecodeRune(r1, rune(c.unit(p[2:]))); r != utf8.RuneError {
			return r, 4
		}
	}
	return utf8.RuneError, 2
}

func (c *Charset) decodeGeneric(p []byte) (rune, int) {
	if len(p) > c.maxBytes {
		p = p[:c.maxBytes]
	}

	var dst [64]byte
	nDst, _, _ := c.enc.NewDecoder().Transform(dst[:], p, true)
	if nDst == 0 {
		return utf8.RuneError, 1
	}

	r, _ := utf8.DecodeRune(dst[:nDst])
	if r == utf8.RuneError {
		return r, 1
	}

	encoded, err := c.enc.NewEncoder().Bytes([]byte(string(r)))
	if err != nil || len(encoded) == 0 || len(encoded) > len(p) {
		return utf8.RuneError, 1
	}
	return r, len(encoded)
}

// Encode converts s into this encoding. No byte order mark is written.
func (c *Charset) Encode(s string) ([]byte, error) {
	switch c.codec {
	case codecUTF8:
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: invalid UTF-8", ErrUnencodable)
		}
		return []byte(s), nil
	case codecASCII:
		for i, r := range s {
			if r >= utf8.RuneSelf {
				return nil, fmt.Errorf("%w: %q at %d in %s", ErrUnencodable, r, i, c.name)
			}
		}
		return []byte(s), nil
	}

	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %v", ErrUnencodable, c.name, err)
	}
	return b, nil
}

// Decode converts p from this encoding into a UTF-8 string.
// Undecodable bytes become U+FFFD.
func (c *Charset) Decode(p []byte) string {
	switch c.codec {
	case codecUTF8:
		return strings.ToValidUTF8(string(p), string(utf8.RuneError))
	case codecASCII, codecSingle, codecUTF16LE, codecUTF16BE:
		var sb strings.Builder
		for len(p) > 0 {
			r, size := c.DecodeRune(p)
			sb.WriteRune(r)
			p = p[size:]
		}
		return sb.String()
	}

	out, err := c.enc.NewDecoder().Bytes(p)
	if err != nil {
		return strings.ToValidUTF8(string(out), string(utf8.RuneError))
	}
	return string(out)
}

// String returns the canonical name.
func (c *Charset) String() string {
	return c.name
}
