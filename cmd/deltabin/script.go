package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/deltabin/internal/logging"
	"github.com/dshills/deltabin/internal/script"
	"github.com/dshills/deltabin/internal/session"
)

func newScriptCmd(c *cli) *cobra.Command {
	var (
		timeout   = script.DefaultTimeout
		callLimit = int64(script.DefaultCallLimit)
		save      bool
	)
	cmd := &cobra.Command{
		Use:   "script FILE.lua [ARGS...]",
		Short: "Run a Lua script against a document session",
		Long: `script runs a sandboxed Lua script. The script drives one session
through the deltabin module: deltabin.open, deltabin.find, deltabin.replace,
deltabin.save and friends. Extra arguments are available in the arg table.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.newSession()
			defer s.Dispose()

			r := script.NewRunner(s,
				script.WithTimeout(timeout),
				script.WithCallLimit(callLimit),
				script.WithOutput(cmd.OutOrStdout()),
				script.WithLogger(logging.Default()),
			)
			defer r.Close()

			if err := r.RunFile(cmd.Context(), args[0], args[1:]...); err != nil {
				return err
			}
			if !s.IsModified() || s.Source() == nil {
				return nil
			}
			if save {
				return s.Release(session.Always(session.Save))
			}
			c.logger.Warn("discarding unsaved changes to %s", s.Source().Name())
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "abort the script after this long")
	cmd.Flags().Int64Var(&callLimit, "call-limit", callLimit, "maximum number of deltabin calls")
	cmd.Flags().BoolVar(&save, "save", false, "save the document if the script left it modified")
	return cmd
}
