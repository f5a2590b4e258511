package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvaleed/ringframe/internal/storage"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a ring file",
		Long: `Create and size a ring file. The data region must be a power of two.

Example:
  ringframe init --ring ./data/app.ring --capacity 65536`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			capacity, _ := cmd.Flags().GetInt("capacity")
			if capacity == 0 {
				capacity = cfg.Ring.Capacity
			}
			force, _ := cmd.Flags().GetBool("force")

			if err := os.MkdirAll(filepath.Dir(cfg.Ring.Path), 0o755); err != nil {
				return fmt.Errorf("failed to create ring directory: %w", err)
			}
			if force {
				if err := os.Remove(cfg.Ring.Path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to remove existing ring file: %w", err)
				}
			}

			rf, err := storage.OpenRingFile(storage.RingFileConfig{
				Path:     cfg.Ring.Path,
				Capacity: capacity,
				Logger:   slog.Default(),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Ring file: %s\n", rf.Path())
			fmt.Fprintf(cmd.OutOrStdout(), "Capacity: %d\n", rf.Ring().Capacity())
			fmt.Fprintf(cmd.OutOrStdout(), "Max message length: %d\n", rf.Ring().MaxMsgLength())
			return rf.Close()
		},
	}

	initCmd.Flags().Int("capacity", 0, "Data region size in bytes, overrides ring.capacity")
	initCmd.Flags().Bool("force", false, "Replace an existing ring file")
	return initCmd
}
