package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mvaleed/ringframe/internal/config"
	"github.com/mvaleed/ringframe/internal/storage"
	asyncwriter "github.com/mvaleed/ringframe/internal/storage/async-writer"
)

func newDrainCmd() *cobra.Command {
	drainCmd := &cobra.Command{
		Use:   "drain",
		Short: "Continuously move messages from a ring file into a segment file",
		Long: `Consume every message written to the ring and append it to a segment
file until interrupted. With metrics enabled, /metrics is served on
metrics.addr while draining.

Example:
  ringframe drain --out ./data/drained.seg --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if out, _ := cmd.Flags().GetString("out"); out != "" {
				cfg.Drain.SegmentPath = out
			}
			if cmd.Flags().Changed("metrics") {
				cfg.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDrain(ctx, cfg, slog.Default())
		},
	}

	drainCmd.Flags().StringP("out", "o", "", "Segment file path, overrides drain.segment_path")
	drainCmd.Flags().Bool("metrics", false, "Serve prometheus metrics, overrides metrics.enabled")
	return drainCmd
}

func runDrain(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rf, err := storage.OpenRingFile(storage.RingFileConfig{
		Path:       cfg.Ring.Path,
		Logger:     logger,
		Registerer: reg,
	})
	if err != nil {
		return err
	}
	defer rf.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.Drain.SegmentPath), 0o755); err != nil {
		return fmt.Errorf("failed to create segment directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Drain.SegmentPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open segment file: %w", err)
	}
	defer f.Close()

	aw := asyncwriter.NewAsyncWriterSize(f, cfg.Drain.BufferSize, cfg.Drain.FlushInterval)

	drainer := &storage.Drainer{
		Ring:         rf.Ring(),
		Writer:       aw,
		BatchSize:    cfg.Drain.BatchSize,
		PollInterval: cfg.Drain.PollInterval,
		Logger:       logger,
	}

	logger.Info("draining ring",
		"ring", cfg.Ring.Path,
		"segment", cfg.Drain.SegmentPath,
		"metrics", cfg.Metrics.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return drainer.Run(gctx)
	})

	if cfg.Metrics.Enabled {
		server := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()
	closeErr := aw.Close()
	return errors.Join(runErr, closeErr)
}
