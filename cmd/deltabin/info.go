package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/deltabin/internal/charset"
)

// probeSize bounds how much of the file info inspects for an encoding.
const probeSize = 8192

func newInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show size, storage mode and detected encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openSession(args[0], false)
			if err != nil {
				return err
			}
			defer s.Dispose()

			sample, err := s.Read(0, min(s.Len(), probeSize))
			if err != nil {
				return err
			}
			probe := charset.Detect(sample)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:     %s\n", s.Source().Path())
			fmt.Fprintf(out, "size:     %d\n", s.Len())
			fmt.Fprintf(out, "storage:  %s\n", s.Kind())
			fmt.Fprintf(out, "mode:     %s\n", s.MemoryMode())
			fmt.Fprintf(out, "encoding: %s\n", probe.Name)
			fmt.Fprintf(out, "bom:      %v\n", probe.HasBOM)
			fmt.Fprintf(out, "binary:   %v\n", probe.IsBinary)
			return nil
		},
	}
}
