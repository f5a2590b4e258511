package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mvaleed/ringframe/internal/storage"
)

func newDumpCmd() *cobra.Command {
	dumpCmd := &cobra.Command{
		Use:   "dump [path]",
		Short: "Print records of a ring or segment file without consuming them",
		Long: `Print records for debugging. Without a path the configured ring file
is dumped. With --segment the path is read as a drained segment file.

Example:
  ringframe dump --head 10
  ringframe dump --segment ./data/drained.seg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			head, _ := cmd.Flags().GetInt("head")
			segment, _ := cmd.Flags().GetBool("segment")

			path := cfg.Ring.Path
			if segment {
				path = cfg.Drain.SegmentPath
			}
			if len(args) == 1 {
				path = args[0]
			}

			if segment {
				return storage.DumpSegment(cmd.OutOrStdout(), path, head)
			}
			return storage.DumpRingFile(cmd.OutOrStdout(), path, head)
		},
	}

	dumpCmd.Flags().Int("head", 0, "Print at most this many records, 0 for all")
	dumpCmd.Flags().Bool("segment", false, "Read a segment file instead of a ring file")
	return dumpCmd
}
