package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mvaleed/ringframe/internal/config"
)

type configKey struct{}

// NewRootCmd builds the ringframe command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ringframe",
		Short: "ringframe - framed records in a shared ring buffer",
		Long: `ringframe writes, reads and inspects framed records in a memory mapped
one-to-one ring buffer, and drains consumed records into segment files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := cfg.Logging.NewLogger()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringP("ring", "r", "", "Ring file path, overrides ring.path")
	rootCmd.PersistentFlags().String("log-level", "", "Log level, overrides logging.level")

	rootCmd.AddCommand(
		newInitCmd(),
		newWriteCmd(),
		newReadCmd(),
		newDrainCmd(),
		newDumpCmd(),
		newHeaderCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if ringPath, _ := cmd.Flags().GetString("ring"); ringPath != "" {
		cfg.Ring.Path = ringPath
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("config not found in context")
	}
	return cfg, nil
}
