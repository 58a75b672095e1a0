package config

import (
	"github.com/dshills/deltabin/internal/config/loader"
)

// Loader resolves preferences from defaults, a file and the environment.
type Loader struct {
	fs  loader.FileSystem
	env *loader.EnvLoader
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem reads preference files through fsys.
func WithFileSystem(fsys loader.FileSystem) LoaderOption {
	return func(l *Loader) {
		if fsys != nil {
			l.fs = fsys
		}
	}
}

// WithEnvLookup replaces os.LookupEnv for environment overrides.
func WithEnvLookup(lookup func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		if l.env != nil {
			l.env.WithLookup(lookup)
		}
	}
}

// WithoutEnv disables environment overrides.
func WithoutEnv() LoaderOption {
	return func(l *Loader) {
		l.env = nil
	}
}

// NewLoader creates a loader reading the OS file system and environment.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:  loader.DefaultFS(),
		env: loader.NewEnvLoader(EnvPrefix, envMapping),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the preferences for path. A missing or empty path yields the
// defaults with environment overrides applied. The result is validated.
func (l *Loader) Load(path string) (*Preferences, error) {
	p := Default()
	if path != "" {
		if _, err := loader.LoadFile(l.fs, path, p); err != nil {
			return nil, err
		}
	}
	if l.env != nil {
		if err := p.applyEnv(l.env); err != nil {
			return nil, err
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads preferences from path with the default loader.
func Load(path string) (*Preferences, error) {
	return NewLoader().Load(path)
}
