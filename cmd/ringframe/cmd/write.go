package cmd

import (
	"bufio"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mvaleed/ringframe/internal/framing"
	"github.com/mvaleed/ringframe/internal/storage"
)

func newWriteCmd() *cobra.Command {
	writeCmd := &cobra.Command{
		Use:   "write [payload...]",
		Short: "Write messages into a ring file",
		Long: `Write one message per argument, or one per line of stdin when no
arguments are given.

Example:
  ringframe write --type 7 hello world
  cat events.txt | ringframe write --type 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			msgTypeID, _ := cmd.Flags().GetInt32("type")
			if err := framing.CheckTypeID(msgTypeID); err != nil {
				return err
			}

			rf, err := storage.OpenRingFile(storage.RingFileConfig{
				Path:   cfg.Ring.Path,
				Logger: slog.Default(),
			})
			if err != nil {
				return err
			}
			defer rf.Close()

			written := 0
			write := func(payload []byte) error {
				if err := rf.Ring().Write(msgTypeID, payload); err != nil {
					return fmt.Errorf("failed to write message %d: %w", written, err)
				}
				written++
				return nil
			}

			if len(args) > 0 {
				for _, arg := range args {
					if err := write([]byte(arg)); err != nil {
						return err
					}
				}
			} else {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					if err := write(scanner.Bytes()); err != nil {
						return err
					}
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d messages\n", written)
			return nil
		},
	}

	writeCmd.Flags().Int32P("type", "t", 1, "Message type id, must be > 0")
	return writeCmd
}
