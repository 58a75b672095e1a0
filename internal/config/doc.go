// Package config holds the user preferences of deltabin.
//
// Preferences are resolved in three layers, each overriding the previous:
// built-in defaults, a TOML or YAML file, and DELTABIN_ environment
// variables.
//
//	# ~/.config/deltabin/config.toml
//	deltaMode = true
//	selectedEncoding = "UTF-8"
//
//	[undo]
//	maxEntries = 0
//
//	[search]
//	matchLimit = 100
//	matchCase = false
//	multipleMatches = true
//
//	[logging]
//	level = "info"
//	format = "text"
//
// Basic usage:
//
//	prefs, err := config.NewLoader().Load(config.DefaultPath())
//	if err != nil {
//	    return err
//	}
//	s := session.New(prefs.SessionOptions()...)
package config
