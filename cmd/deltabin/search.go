package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/deltabin/internal/charset"
	"github.com/dshills/deltabin/internal/engine/search"
	"github.com/dshills/deltabin/internal/session"
)

// patternFlags are shared by find and replace.
type patternFlags struct {
	hex       bool
	matchCase bool
	encoding  string
}

func (f *patternFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.hex, "hex", false, "patterns are hex byte strings such as \"DE AD\"")
	cmd.Flags().BoolVar(&f.matchCase, "match-case", false, "compare text case-sensitively")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "charset of text patterns (default from preferences)")
}

// condition builds a search condition for pattern.
func (f *patternFlags) condition(pattern string, matchCase bool) (search.Condition, error) {
	if f.hex {
		return search.HexCondition(pattern)
	}
	return search.TextCondition(pattern, matchCase), nil
}

// apply sets the session charset when --encoding was given.
func (f *patternFlags) apply(s *session.Session) error {
	if f.encoding == "" {
		return nil
	}
	cs, err := charset.Lookup(f.encoding)
	if err != nil {
		return err
	}
	s.SetCharset(cs)
	return nil
}

func newFindCmd(c *cli) *cobra.Command {
	var (
		pf       patternFlags
		backward bool
		all      bool
		first    bool
	)
	cmd := &cobra.Command{
		Use:   "find FILE PATTERN",
		Short: "Print the offset and length of each match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openSession(args[0], false)
			if err != nil {
				return err
			}
			defer s.Dispose()
			if err := pf.apply(s); err != nil {
				return err
			}

			cond, err := pf.condition(args[1], pf.matchCase || c.prefs.Search.MatchCase)
			if err != nil {
				return err
			}
			params := c.prefs.SearchParameters()
			if backward {
				params.Direction = search.Backward
			}
			if all {
				params.MultipleMatches = true
			}
			if first {
				params.MultipleMatches = false
			}
			if _, err := s.Find(cond, params); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			matches := s.Search().Matches().Matches()
			if len(matches) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(out, "%d\t%d\n", m.Position, m.Length)
			}
			if len(matches) == s.Search().MatchLimit() {
				c.logger.Warn("stopped after %d matches", len(matches))
			}
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().BoolVar(&backward, "backward", false, "search from the end towards the start")
	cmd.Flags().BoolVar(&all, "all", false, "collect every match up to the match limit")
	cmd.Flags().BoolVar(&first, "first", false, "stop at the first match")
	cmd.MarkFlagsMutuallyExclusive("all", "first")
	return cmd
}

func newReplaceCmd(c *cli) *cobra.Command {
	var (
		pf     patternFlags
		all    bool
		dryRun bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "replace FILE PATTERN REPLACEMENT",
		Short: "Replace the first or every occurrence of a pattern",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openSession(args[0], true)
			if err != nil {
				return err
			}
			defer s.Dispose()
			if err := pf.apply(s); err != nil {
				return err
			}

			matchCase := pf.matchCase || c.prefs.Search.MatchCase
			cond, err := pf.condition(args[1], matchCase)
			if err != nil {
				return err
			}
			repl, err := pf.condition(args[2], matchCase)
			if err != nil {
				return err
			}

			n, err := replaceMatches(s, cond, repl, all)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "replaced %d\n", n)
			if n == 0 || dryRun {
				return nil
			}
			fmt.Fprintln(out, s.SizeStatus())
			return c.finish(s, output)
		},
	}
	pf.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "replace every occurrence")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count replacements without saving")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of FILE")
	return cmd
}

// replaceMatches replaces the first match, or with all set keeps searching
// from the caret until nothing is left. The match limit applies per scan.
func replaceMatches(s *session.Session, cond, repl search.Condition, all bool) (int, error) {
	params := search.Parameters{
		Direction:       search.Forward,
		FromCursor:      true,
		MultipleMatches: all,
	}
	total := 0
	for {
		if _, err := s.Find(cond, params); err != nil {
			return total, err
		}
		if s.Search().Matches().IsEmpty() {
			return total, nil
		}
		if !all {
			ok, err := s.Replace(repl)
			if err != nil {
				return total, err
			}
			if ok {
				total++
			}
			return total, nil
		}
		n, err := s.ReplaceAll(repl)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, errors.New("replace made no progress")
		}
		total += n
	}
}
