package loader

import (
	"os"
	"strings"
)

// EnvLoader collects preference overrides from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "DELTABIN_")
	mapping map[string]string // Env var suffix -> setting path
	lookup  func(string) (string, bool)
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "DELTABIN_").
func NewEnvLoader(prefix string, mapping map[string]string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: mapping,
		lookup:  os.LookupEnv,
	}
}

// WithLookup replaces the environment lookup, for tests.
func (l *EnvLoader) WithLookup(lookup func(string) (string, bool)) *EnvLoader {
	if lookup != nil {
		l.lookup = lookup
	}
	return l
}

// Prefix returns the variable prefix.
func (l *EnvLoader) Prefix() string {
	return l.prefix
}

// Load returns the set variables as setting path -> raw value.
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() map[string]string {
	out := make(map[string]string)
	for suffix, path := range l.mapping {
		if val, ok := l.lookup(l.prefix + suffix); ok {
			out[path] = strings.TrimSpace(val)
		}
	}
	return out
}

// VarName returns the environment variable overriding path, or "".
func (l *EnvLoader) VarName(path string) string {
	for suffix, p := range l.mapping {
		if p == path {
			return l.prefix + suffix
		}
	}
	return ""
}
