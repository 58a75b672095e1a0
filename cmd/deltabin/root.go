package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/deltabin/internal/config"
	"github.com/dshills/deltabin/internal/engine/delta"
	"github.com/dshills/deltabin/internal/logging"
	"github.com/dshills/deltabin/internal/session"
	"github.com/dshills/deltabin/internal/source"
)

// cli holds the global flags and the resources built from them.
// One value backs one command tree.
type cli struct {
	configPath  string
	logLevel    string
	memory      bool
	delta       bool
	metricsFile string

	prefs    *config.Preferences
	logger   *logging.Logger
	closer   io.Closer
	registry *prometheus.Registry
	watcher  *delta.Watcher
	repo     *delta.Repository
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:   "deltabin",
		Short: "Inspect and edit binary files without loading them into memory",
		Long: `deltabin opens files as delta documents that read unchanged ranges
straight from disk, so multi-gigabyte files can be searched, patched and
saved with little memory. Use --memory to load the file into RAM instead.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "preferences file (default is the user config dir)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&c.memory, "memory", false, "hold documents in memory")
	flags.BoolVar(&c.delta, "delta", false, "open documents as file-backed delta documents")
	flags.StringVar(&c.metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")
	root.MarkFlagsMutuallyExclusive("memory", "delta")

	root.AddCommand(
		newInfoCmd(c),
		newFindCmd(c),
		newReplaceCmd(c),
		newFillCmd(c),
		newScriptCmd(c),
		newConfigCmd(c),
		newVersionCmd(),
	)
	return root, c
}

// setup resolves preferences and builds the logger and repository.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	prefs, err := config.Load(path)
	if err != nil {
		return err
	}
	if c.memory {
		prefs.DeltaMode = false
	}
	if c.delta {
		prefs.DeltaMode = true
	}
	if c.logLevel != "" {
		prefs.Logging.Level = c.logLevel
	}
	c.prefs = prefs

	logger, closer, err := logging.Open(prefs.Logging.File, prefs.LogLevel(), prefs.LogFormat())
	if err != nil {
		return err
	}
	logging.SetDefault(logger)
	c.logger = logger.WithComponent("cli")
	c.closer = closer

	repoOpts := []delta.Option{
		delta.WithLogger(logger),
		delta.WithVerify(prefs.Storage.VerifySaves),
	}
	if prefs.Metrics.Enabled || c.metricsFile != "" {
		c.registry = prometheus.NewRegistry()
		repoOpts = append(repoOpts, delta.WithMetrics(delta.NewMetrics(c.registry)))
	}
	if prefs.Storage.WatchSources {
		w, err := delta.NewWatcher(c.sourceChanged, logger)
		if err != nil {
			c.logger.Warn("file watching disabled: %v", err)
		} else {
			c.watcher = w
			repoOpts = append(repoOpts, delta.WithWatcher(w))
		}
	}
	c.repo = delta.NewRepository(repoOpts...)
	c.logger.Debug("running %s with delta mode %v", cmd.Name(), prefs.DeltaMode)
	return nil
}

func (c *cli) sourceChanged(ch delta.Change) {
	c.logger.Warn("%s was %s by another program", ch.Source.Path(), ch.Kind)
}

// shutdown releases everything setup created. It is safe to call when
// setup never ran.
func (c *cli) shutdown() error {
	var errs []error
	if c.repo != nil {
		errs = append(errs, c.repo.Close())
		c.repo = nil
	}
	if c.watcher != nil {
		errs = append(errs, c.watcher.Close())
		c.watcher = nil
	}
	if c.registry != nil && c.metricsFile != "" {
		if err := prometheus.WriteToTextfile(c.metricsFile, c.registry); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if c.closer != nil {
		errs = append(errs, c.closer.Close())
		c.closer = nil
	}
	return errors.Join(errs...)
}

// newSession creates a session on the shared repository.
func (c *cli) newSession() *session.Session {
	opts := []session.Option{
		session.WithRepository(c.repo),
		session.WithLogger(logging.Default()),
	}
	return session.New(append(opts, c.prefs.SessionOptions()...)...)
}

// openSession opens path in a new session.
func (c *cli) openSession(path string, writable bool) (*session.Session, error) {
	var fileOpts []source.FileOption
	if !writable {
		fileOpts = append(fileOpts, source.WithReadOnly())
	}
	src, err := source.NewFile(path, fileOpts...)
	if err != nil {
		return nil, err
	}
	s := c.newSession()
	if err := s.Open(src, writable); err != nil {
		_ = s.Dispose()
		return nil, err
	}
	return s, nil
}

// finish saves s to output, or back to its own file when output is empty.
func (c *cli) finish(s *session.Session, output string) error {
	if output == "" {
		return s.Save(nil)
	}
	dst, err := source.NewFile(output)
	if err != nil {
		return err
	}
	return s.SaveAs(dst)
}
