package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mvaleed/ringframe/internal/storage"
)

func newReadCmd() *cobra.Command {
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Consume messages from a ring file",
		Long: `Consume up to --limit messages from the ring and print them.
Consumed messages are released to the writer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			rf, err := storage.OpenRingFile(storage.RingFileConfig{
				Path:   cfg.Ring.Path,
				Logger: slog.Default(),
			})
			if err != nil {
				return err
			}
			defer rf.Close()

			out := cmd.OutOrStdout()
			read := 0
			for read < limit {
				n := rf.Ring().Read(func(msgTypeID int32, payload []byte) {
					fmt.Fprintf(out, "%d\t%s\n", msgTypeID, payload)
				}, limit-read)
				read += n

				// a read that only crossed padding returns 0 with records left
				if n == 0 && !hasCompleteRecord(rf) {
					break
				}
			}

			slog.Debug("read messages", "count", read, "remaining_bytes", rf.Ring().Size())
			return nil
		},
	}

	readCmd.Flags().IntP("limit", "n", 100, "Maximum number of messages to consume")
	return readCmd
}

// hasCompleteRecord reports whether the next record can be consumed now.
func hasCompleteRecord(rf *storage.RingFile) bool {
	return rf.Ring().Scan(func(int64, int64, []byte) bool { return false }) > 0
}
