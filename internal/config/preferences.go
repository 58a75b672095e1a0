package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dshills/deltabin/internal/charset"
	"github.com/dshills/deltabin/internal/config/loader"
	"github.com/dshills/deltabin/internal/engine/content"
	"github.com/dshills/deltabin/internal/engine/paged"
	"github.com/dshills/deltabin/internal/engine/search"
	"github.com/dshills/deltabin/internal/logging"
	"github.com/dshills/deltabin/internal/session"
	"github.com/dshills/deltabin/internal/source"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "DELTABIN_"

// Preferences are the persisted user settings.
type Preferences struct {
	// DeltaMode opens files as file-backed delta documents.
	DeltaMode bool `toml:"deltaMode" yaml:"deltaMode"`
	// SelectedEncoding is the charset for text search and replace.
	SelectedEncoding string `toml:"selectedEncoding" yaml:"selectedEncoding"`

	Undo    UndoPreferences    `toml:"undo" yaml:"undo"`
	Search  SearchPreferences  `toml:"search" yaml:"search"`
	Storage StoragePreferences `toml:"storage" yaml:"storage"`
	Logging LoggingPreferences `toml:"logging" yaml:"logging"`
	Metrics MetricsPreferences `toml:"metrics" yaml:"metrics"`
}

// UndoPreferences configure the undo history.
type UndoPreferences struct {
	// MaxEntries bounds the history. Zero means unlimited.
	MaxEntries int `toml:"maxEntries" yaml:"maxEntries"`
}

// SearchPreferences are the search defaults.
type SearchPreferences struct {
	MatchLimit      int  `toml:"matchLimit" yaml:"matchLimit"`
	MatchCase       bool `toml:"matchCase" yaml:"matchCase"`
	MultipleMatches bool `toml:"multipleMatches" yaml:"multipleMatches"`
}

// StoragePreferences tune the content stores.
type StoragePreferences struct {
	// PageSize is the page size of in-memory buffers.
	PageSize int `toml:"pageSize" yaml:"pageSize"`
	// VerifySaves re-reads delta saves and compares checksums.
	VerifySaves bool `toml:"verifySaves" yaml:"verifySaves"`
	// WatchSources reports external changes to open files.
	WatchSources bool `toml:"watchSources" yaml:"watchSources"`
}

// LoggingPreferences configure the logger.
type LoggingPreferences struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	File   string `toml:"file,omitempty" yaml:"file,omitempty"`
}

// MetricsPreferences configure the prometheus collectors.
type MetricsPreferences struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// Default returns the built-in preferences.
func Default() *Preferences {
	return &Preferences{
		DeltaMode:        true,
		SelectedEncoding: charset.Default,
		Search: SearchPreferences{
			MatchLimit:      search.MaxMatches,
			MultipleMatches: true,
		},
		Storage: StoragePreferences{
			PageSize: paged.DefaultPageSize,
		},
		Logging: LoggingPreferences{
			Level:  "info",
			Format: string(logging.FormatText),
		},
	}
}

// DefaultPath returns the per-user preference file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "deltabin.toml"
	}
	return filepath.Join(dir, "deltabin", "config.toml")
}

// Validate checks every setting and returns all failures joined.
func (p *Preferences) Validate() error {
	var errs []error
	if _, err := charset.Lookup(p.SelectedEncoding); err != nil {
		errs = append(errs, &ValidationError{Path: "selectedEncoding", Message: err.Error(), Value: p.SelectedEncoding})
	}
	if p.Undo.MaxEntries < 0 {
		errs = append(errs, &ValidationError{Path: "undo.maxEntries", Message: "must not be negative", Value: p.Undo.MaxEntries})
	}
	if p.Search.MatchLimit < 0 {
		errs = append(errs, &ValidationError{Path: "search.matchLimit", Message: "must not be negative", Value: p.Search.MatchLimit})
	}
	if p.Storage.PageSize < 0 {
		errs = append(errs, &ValidationError{Path: "storage.pageSize", Message: "must not be negative", Value: p.Storage.PageSize})
	}
	switch logging.Format(p.Logging.Format) {
	case logging.FormatText, logging.FormatJSON, "":
	default:
		errs = append(errs, &ValidationError{Path: "logging.format", Message: "must be text or json", Value: p.Logging.Format})
	}
	return errors.Join(errs...)
}

// MatchLimit returns the search limit clamped to 1..search.MaxMatches.
// Zero selects the maximum.
func (p *Preferences) MatchLimit() int {
	n := p.Search.MatchLimit
	if n <= 0 || n > search.MaxMatches {
		return search.MaxMatches
	}
	return n
}

// Charset resolves SelectedEncoding, falling back to UTF-8.
func (p *Preferences) Charset() *charset.Charset {
	cs, err := charset.Lookup(p.SelectedEncoding)
	if err != nil {
		return charset.UTF8()
	}
	return cs
}

// LogLevel returns the parsed logging level.
func (p *Preferences) LogLevel() logging.LogLevel {
	return logging.ParseLogLevel(p.Logging.Level)
}

// LogFormat returns the logging format, text by default.
func (p *Preferences) LogFormat() logging.Format {
	if p.Logging.Format == "" {
		return logging.FormatText
	}
	return logging.Format(p.Logging.Format)
}

// SessionOptions translates the preferences into session options.
func (p *Preferences) SessionOptions() []session.Option {
	opts := []session.Option{
		session.WithDeltaMode(p.DeltaMode),
		session.WithCharset(p.Charset()),
		session.WithMaxUndo(p.Undo.MaxEntries),
		session.WithMatchLimit(p.MatchLimit()),
	}
	if p.Storage.PageSize > 0 {
		opts = append(opts, session.WithPageSize(p.Storage.PageSize))
	}
	return opts
}

// SearchParameters returns the default search parameters.
func (p *Preferences) SearchParameters() search.Parameters {
	return search.Parameters{
		Direction:       search.Forward,
		MultipleMatches: p.Search.MultipleMatches,
	}
}

// Save writes the preferences to path in the format of its extension.
// The file is replaced atomically.
func (p *Preferences) Save(path string) error {
	format, err := loader.FormatOf(path)
	if err != nil {
		return err
	}
	data, err := loader.Encode(format, p)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := source.NewFile(path)
	if err != nil {
		return err
	}
	w, err := f.Create()
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := w.Write(data); err != nil {
		if a, ok := w.(content.Aborter); ok {
			a.Abort()
		}
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return w.Close()
}

// envMapping maps DELTABIN_ suffixes to setting paths.
var envMapping = map[string]string{
	"DELTA_MODE":   "deltaMode",
	"ENCODING":     "selectedEncoding",
	"MAX_UNDO":     "undo.maxEntries",
	"MATCH_LIMIT":  "search.matchLimit",
	"MATCH_CASE":   "search.matchCase",
	"PAGE_SIZE":    "storage.pageSize",
	"LOG_LEVEL":    "logging.level",
	"LOG_FORMAT":   "logging.format",
	"LOG_FILE":     "logging.file",
	"METRICS":      "metrics.enabled",
	"WATCH":        "storage.watchSources",
	"VERIFY_SAVES": "storage.verifySaves",
}

// applyEnv sets every overridden path on p.
func (p *Preferences) applyEnv(env *loader.EnvLoader) error {
	var errs []error
	for path, raw := range env.Load() {
		if err := p.set(path, raw); err != nil {
			errs = append(errs, fmt.Errorf("%w %s=%q: %v", ErrInvalidEnv, env.VarName(path), raw, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Preferences) set(path, raw string) error {
	switch path {
	case "deltaMode":
		return setBool(&p.DeltaMode, raw)
	case "selectedEncoding":
		p.SelectedEncoding = raw
	case "undo.maxEntries":
		return setInt(&p.Undo.MaxEntries, raw)
	case "search.matchLimit":
		return setInt(&p.Search.MatchLimit, raw)
	case "search.matchCase":
		return setBool(&p.Search.MatchCase, raw)
	case "storage.pageSize":
		return setInt(&p.Storage.PageSize, raw)
	case "storage.watchSources":
		return setBool(&p.Storage.WatchSources, raw)
	case "storage.verifySaves":
		return setBool(&p.Storage.VerifySaves, raw)
	case "logging.level":
		p.Logging.Level = raw
	case "logging.format":
		p.Logging.Format = raw
	case "logging.file":
		p.Logging.File = raw
	case "metrics.enabled":
		return setBool(&p.Metrics.Enabled, raw)
	default:
		return fmt.Errorf("unknown setting %s", path)
	}
	return nil
}

func setBool(dst *bool, raw string) error {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setInt(dst *int, raw string) error {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
