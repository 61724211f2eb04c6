// Command cortexcap drives the capture-dedupe-coalesce-retain-emit loop
// against the local display, with optional JSONL metrics and a WebSocket
// live viewer. It does not run the synthetic wavelength-gradient renderer
// (internal/engine); every frame comes from screen capture.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/capture"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/config"
	apperrors "github.com/TavariAgent/cortex-em-spectrum-foundation/internal/errors"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/liveview"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/orchestrator"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/sinks"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	source := capture.New()
	defer source.Close()

	var metricsLog *sinks.MetricsLogger
	if cfg.MetricsPath != "" {
		metricsLog, err = sinks.NewMetricsLogger(cfg.MetricsPath)
		if err != nil {
			slog.Error("failed to open metrics sink", "path", cfg.MetricsPath, "error", err)
			os.Exit(1)
		}
		defer metricsLog.Close()
	}

	var live *liveview.Broadcaster
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Live || cfg.LiveAddr != "" {
		live = liveview.New()
		addr := cfg.LiveAddr
		if addr == "" {
			addr = "localhost:8787"
		}
		go func() {
			if serveErr := live.Serve(ctx, addr); serveErr != nil {
				slog.Error("live viewer server stopped", "error", serveErr)
			}
		}()
		slog.Info("live viewer listening", "addr", addr, "run_id", live.RunID())
	}

	orch := orchestrator.New(source, cfg, metricsLog, live)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	start := time.Now()
	summary, runErr := orch.Run(ctx)
	if runErr != nil {
		if apperrors.IsCode(runErr, apperrors.StaticGateTimeout) {
			slog.Error("static-scene gate failed", "error", runErr)
			os.Exit(2)
		}
		if apperrors.IsCode(runErr, apperrors.DisplayNotFound) {
			slog.Error("capture display unavailable", "error", runErr)
			os.Exit(1)
		}
		slog.Error("run failed", "error", runErr)
		os.Exit(1)
	}

	fmt.Printf("run %s: captured=%d unique=%d duplicate=%d elapsed=%s activity_awake=%v\n",
		summary.RunID, summary.Captured, summary.Unique, summary.Duplicate,
		time.Since(start).Round(time.Millisecond), summary.ActivityAwake)
}
