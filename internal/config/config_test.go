package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/deltabin/internal/engine/search"
	"github.com/dshills/deltabin/internal/logging"
)

// memFS is an in-memory file system for testing.
type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func newTestLoader(files memFS, env map[string]string) *Loader {
	return NewLoader(WithFileSystem(files), WithEnvLookup(envOf(env)))
}

func TestDefault(t *testing.T) {
	p := Default()
	if !p.DeltaMode {
		t.Error("DeltaMode default should be true")
	}
	if p.SelectedEncoding != "UTF-8" {
		t.Errorf("SelectedEncoding = %q, want UTF-8", p.SelectedEncoding)
	}
	if p.MatchLimit() != search.MaxMatches {
		t.Errorf("MatchLimit() = %d, want %d", p.MatchLimit(), search.MaxMatches)
	}
	if !p.Search.MultipleMatches {
		t.Error("MultipleMatches default should be true")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	p, err := newTestLoader(memFS{}, nil).Load("/none.toml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if *p != *Default() {
		t.Errorf("Load() = %+v, want defaults", p)
	}
}

func TestLoadFormats(t *testing.T) {
	files := memFS{
		"/c.toml": `
deltaMode = false
selectedEncoding = "UTF-16LE"

[undo]
maxEntries = 50

[search]
matchLimit = 20
matchCase = true

[logging]
level = "debug"
format = "json"
`,
		"/c.yaml": `
deltaMode: false
selectedEncoding: UTF-16LE
undo:
  maxEntries: 50
search:
  matchLimit: 20
  matchCase: true
logging:
  level: debug
  format: json
`,
	}
	for _, path := range []string{"/c.toml", "/c.yaml"} {
		t.Run(path, func(t *testing.T) {
			p, err := newTestLoader(files, nil).Load(path)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if p.DeltaMode {
				t.Error("DeltaMode = true, want false")
			}
			if p.Charset().Name() != "UTF-16LE" {
				t.Errorf("Charset() = %s, want UTF-16LE", p.Charset().Name())
			}
			if p.Undo.MaxEntries != 50 {
				t.Errorf("MaxEntries = %d, want 50", p.Undo.MaxEntries)
			}
			if p.MatchLimit() != 20 || !p.Search.MatchCase {
				t.Errorf("Search = %+v", p.Search)
			}
			// Unset keys keep their defaults.
			if !p.Search.MultipleMatches {
				t.Error("MultipleMatches should keep its default")
			}
			if p.LogLevel() != logging.LogLevelDebug || p.LogFormat() != logging.FormatJSON {
				t.Errorf("Logging = %+v", p.Logging)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	files := memFS{"/c.toml": "deltaMode = true\nfontSize = 12\n"}
	if _, err := newTestLoader(files, nil).Load("/c.toml"); err == nil {
		t.Error("Load() should reject unknown keys")
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := newTestLoader(memFS{}, nil).Load("/c.json"); err == nil {
		t.Error("Load() should reject .json")
	}
}

func TestEnvOverrides(t *testing.T) {
	files := memFS{"/c.toml": "deltaMode = true\nselectedEncoding = \"UTF-8\"\n"}
	env := map[string]string{
		"DELTABIN_DELTA_MODE": "false",
		"DELTABIN_ENCODING":   "ISO-8859-1",
		"DELTABIN_MAX_UNDO":   "7",
		"DELTABIN_LOG_LEVEL":  "warn",
		"DELTABIN_METRICS":    "true",
	}
	p, err := newTestLoader(files, env).Load("/c.toml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if p.DeltaMode {
		t.Error("DELTABIN_DELTA_MODE should override the file")
	}
	if p.SelectedEncoding != "ISO-8859-1" {
		t.Errorf("SelectedEncoding = %q, want ISO-8859-1", p.SelectedEncoding)
	}
	if p.Undo.MaxEntries != 7 {
		t.Errorf("MaxEntries = %d, want 7", p.Undo.MaxEntries)
	}
	if p.LogLevel() != logging.LogLevelWarn {
		t.Errorf("LogLevel() = %v, want WARN", p.LogLevel())
	}
	if !p.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestEnvInvalidValue(t *testing.T) {
	env := map[string]string{"DELTABIN_MAX_UNDO": "lots"}
	_, err := newTestLoader(memFS{}, env).Load("")
	if !errors.Is(err, ErrInvalidEnv) {
		t.Fatalf("Load() error = %v, want ErrInvalidEnv", err)
	}
	if !strings.Contains(err.Error(), "DELTABIN_MAX_UNDO") {
		t.Errorf("error %q should name the variable", err)
	}
}

func TestWithoutEnv(t *testing.T) {
	env := map[string]string{"DELTABIN_DELTA_MODE": "false"}
	l := NewLoader(WithFileSystem(memFS{}), WithEnvLookup(envOf(env)), WithoutEnv())
	p, err := l.Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !p.DeltaMode {
		t.Error("environment should be ignored")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Preferences)
		path   string
	}{
		{"unknown encoding", func(p *Preferences) { p.SelectedEncoding = "EBCDIC-ZZ" }, "selectedEncoding"},
		{"negative undo", func(p *Preferences) { p.Undo.MaxEntries = -1 }, "undo.maxEntries"},
		{"negative limit", func(p *Preferences) { p.Search.MatchLimit = -5 }, "search.matchLimit"},
		{"bad format", func(p *Preferences) { p.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.modify(p)
			err := p.Validate()
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("Validate() error = %v, want ErrValidationFailed", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Errorf("Validate() path = %v, want %s", err, tt.path)
			}
		})
	}
}

func TestMatchLimitClamp(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 100},
		{1, 1},
		{55, 55},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		p := Default()
		p.Search.MatchLimit = tt.in
		if got := p.MatchLimit(); got != tt.want {
			t.Errorf("MatchLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"prefs.toml", "prefs.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			p := Default()
			p.DeltaMode = false
			p.SelectedEncoding = "UTF-16BE"
			p.Undo.MaxEntries = 12
			if err := p.Save(path); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("saved file missing: %v", err)
			}

			got, err := NewLoader(WithoutEnv()).Load(path)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if *got != *p {
				t.Errorf("round trip = %+v, want %+v", got, p)
			}
		})
	}
}

func TestSessionOptions(t *testing.T) {
	p := Default()
	p.DeltaMode = false
	if got := len(p.SessionOptions()); got != 5 {
		t.Errorf("SessionOptions() = %d options, want 5", got)
	}
	params := p.SearchParameters()
	if params.Direction != search.Forward || !params.MultipleMatches {
		t.Errorf("SearchParameters() = %+v", params)
	}
}
