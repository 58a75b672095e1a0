package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/deltabin/internal/engine/history"
	"github.com/dshills/deltabin/internal/engine/search"
)

func newFillCmd(c *cli) *cobra.Command {
	var (
		at        int64
		count     int64
		with      string
		sample    string
		overwrite bool
		output    string
	)
	cmd := &cobra.Command{
		Use:   "fill FILE",
		Short: "Insert or overwrite a run of generated bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := history.ParseFillPattern(with)
			if err != nil {
				return err
			}
			var sampleBytes []byte
			if pattern == history.FillSample {
				if sampleBytes, err = search.ParseHex(sample); err != nil {
					return err
				}
			}

			s, err := c.openSession(args[0], true)
			if err != nil {
				return err
			}
			defer s.Dispose()

			if at < 0 {
				at = s.Len()
			}
			if err := s.Fill(at, count, pattern, sampleBytes, overwrite); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.SizeStatus())
			return c.finish(s, output)
		},
	}
	cmd.Flags().Int64Var(&at, "at", -1, "offset to fill at (default is the end of the file)")
	cmd.Flags().Int64Var(&count, "count", 0, "number of bytes to generate")
	cmd.Flags().StringVar(&with, "with", "zero", "fill pattern: zero, space or sample")
	cmd.Flags().StringVar(&sample, "sample", "", "hex bytes repeated by the sample pattern")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing bytes instead of inserting")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of FILE")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}
