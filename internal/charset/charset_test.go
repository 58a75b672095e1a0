package charset

import (
	"bytes"
	"errors"
	"testing"
	"unicode/utf8"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		minSize int
		maxSize int
	}{
		{"", "UTF-8", 1, 4},
		{"UTF-8", "UTF-8", 1, 4},
		{"utf-8", "UTF-8", 1, 4},
		{"UTF-16LE", "UTF-16LE", 2, 4},
		{"UTF-16BE", "UTF-16BE", 2, 4},
		{"UTF-16", "UTF-16BE", 2, 4},
		{"US-ASCII", "US-ASCII", 1, 1},
		{"ascii", "US-ASCII", 1, 1},
		{"ISO-8859-1", "ISO-8859-1", 1, 1},
		{"ISO_8859-15", "ISO-8859-15", 1, 1},
		{"Shift_JIS", "Shift_JIS", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup(%q) error: %v", tt.name, err)
			}
			if cs.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", cs.Name(), tt.want)
			}
			if cs.MinBytesPerChar() != tt.minSize {
				t.Errorf("MinBytesPerChar() = %d, want %d", cs.MinBytesPerChar(), tt.minSize)
			}
			if cs.MaxBytesPerChar() != tt.maxSize {
				t.Errorf("MaxBytesPerChar() = %d, want %d", cs.MaxBytesPerChar(), tt.maxSize)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("no-such-encoding")
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("Lookup() error = %v, want ErrUnknownEncoding", err)
	}
}

func TestLookupHTMLAlias(t *testing.T) {
	cs, err := Lookup("latin1")
	if err != nil {
		t.Fatalf("Lookup(latin1) error: %v", err)
	}
	r, size := cs.DecodeRune([]byte{0x41})
	if r != 'A' || size != 1 {
		t.Errorf("DecodeRune() = (%q, %d), want ('A', 1)", r, size)
	}
}

func TestDecodeRune(t *testing.T) {
	tests := []struct {
		charset  string
		input    []byte
		wantRune rune
		wantSize int
	}{
		{"UTF-8", []byte("A"), 'A', 1},
		{"UTF-8", []byte("é!"), 'é', 2},
		{"UTF-8", []byte("€"), '€', 3},
		{"UTF-8", []byte{0xFF, 0x41}, utf8.RuneError, 1},
		{"UTF-16LE", []byte{0x41, 0x00, 0x42, 0x00}, 'A', 2},
		{"UTF-16BE", []byte{0x00, 0x41}, 'A', 2},
		{"UTF-16BE", []byte{0xD8, 0x3D, 0xDE, 0x00}, '\U0001F600', 4},
		{"UTF-16BE", []byte{0xD8, 0x3D}, utf8.RuneError, 2},
		{"UTF-16LE", []byte{0x41}, utf8.RuneError, 1},
		{"US-ASCII", []byte{0x80}, utf8.RuneError, 1},
		{"ISO-8859-1", []byte{0xE9}, 'é', 1},
		{"Shift_JIS", []byte{0x82, 0xA0, 0x41}, 'あ', 2},
		{"Shift_JIS", []byte{0x41, 0x82}, 'A', 1},
	}

	for _, tt := range tests {
		t.Run(tt.charset, func(t *testing.T) {
			cs := MustLookup(tt.charset)
			r, size := cs.DecodeRune(tt.input)
			if r != tt.wantRune || size != tt.wantSize {
				t.Errorf("DecodeRune(% x) = (%q, %d), want (%q, %d)", tt.input, r, size, tt.wantRune, tt.wantSize)
			}
		})
	}
}

func TestDecodeRuneEmpty(t *testing.T) {
	for _, name := range []string{"UTF-8", "UTF-16LE", "ISO-8859-1", "Shift_JIS"} {
		if _, size := MustLookup(name).DecodeRune(nil); size != 0 {
			t.Errorf("%s DecodeRune(nil) size = %d, want 0", name, size)
		}
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		charset string
		input   string
		want    []byte
	}{
		{"UTF-8", "AB", []byte("AB")},
		{"UTF-16LE", "AB", []byte{0x41, 0x00, 0x42, 0x00}},
		{"UTF-16BE", "A", []byte{0x00, 0x41}},
		{"UTF-16", "A", []byte{0x00, 0x41}},
		{"ISO-8859-1", "é", []byte{0xE9}},
		{"US-ASCII", "hi", []byte("hi")},
	}

	for _, tt := range tests {
		t.Run(tt.charset, func(t *testing.T) {
			got, err := MustLookup(tt.charset).Encode(tt.input)
			if err != nil {
				t.Fatalf("Encode(%q) error: %v", tt.input, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%q) = % x, want % x", tt.input, got, tt.want)
			}
		})
	}
}

func TestEncodeUnencodable(t *testing.T) {
	for _, name := range []string{"US-ASCII", "ISO-8859-1"} {
		_, err := MustLookup(name).Encode("€")
		if !errors.Is(err, ErrUnencodable) {
			t.Errorf("%s Encode(€) error = %v, want ErrUnencodable", name, err)
		}
	}
}

func TestDecode(t *testing.T) {
	cs := MustLookup("UTF-16LE")
	if got := cs.Decode([]byte{0x68, 0x00, 0x69, 0x00}); got != "hi" {
		t.Errorf("Decode() = %q, want %q", got, "hi")
	}
	if got := UTF8().Decode([]byte{'a', 0xFF}); got != "a�" {
		t.Errorf("Decode() = %q, want %q", got, "a�")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		want   string
		bom    bool
		binary bool
	}{
		{"empty", nil, "UTF-8", false, false},
		{"utf8 bom", []byte{0xEF, 0xBB, 0xBF, 'a'}, "UTF-8", true, false},
		{"utf16le bom", []byte{0xFF, 0xFE, 'a', 0}, "UTF-16LE", true, false},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'a'}, "UTF-16BE", true, false},
		{"ascii", []byte("hello\n"), "US-ASCII", false, false},
		{"utf8", []byte("héllo"), "UTF-8", false, false},
		{"utf8 cut", []byte("h\xc3\xa9ll\xe2\x82"), "UTF-8", false, false},
		{"latin1", []byte{'h', 0xE9, 'l'}, "ISO-8859-1", false, false},
		{"binary", []byte{0x00, 0x01, 0x02, 0x03}, "US-ASCII", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Detect(tt.input)
			if p.Name != tt.want {
				t.Errorf("Name = %q, want %q", p.Name, tt.want)
			}
			if p.HasBOM != tt.bom {
				t.Errorf("HasBOM = %v, want %v", p.HasBOM, tt.bom)
			}
			if p.IsBinary != tt.binary {
				t.Errorf("IsBinary = %v, want %v", p.IsBinary, tt.binary)
			}
		})
	}
}

func TestStripBOM(t *testing.T) {
	rest, name := StripBOM([]byte{0xEF, 0xBB, 0xBF, 'x'})
	if string(rest) != "x" || name != "UTF-8" {
		t.Errorf("StripBOM() = (%q, %q), want (\"x\", \"UTF-8\")", rest, name)
	}

	rest, name = StripBOM([]byte("plain"))
	if string(rest) != "plain" || name != "" {
		t.Errorf("StripBOM() = (%q, %q), want (\"plain\", \"\")", rest, name)
	}
}
