// Command captured runs the capture agent: camera -> ring buffer -> quality
// gate -> streaming client, as described in spec.md §4. Mirrors
// cmd/oriond/main.go's flag/signal shape; shutdown waits for the
// supervisor's goroutines to drain, with no timeout.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eyed-system/eyed/internal/capture/config"
	"github.com/eyed-system/eyed/internal/capture/supervisor"
)

const defaultConfigPath = "config/capture.toml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to capture agent TOML config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("captured: failed to load config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug || cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("captured: starting",
		"config", *configPath,
		"device_id", cfg.DeviceID,
		"camera_source", cfg.Camera.Source,
		"gateway_addr", cfg.Gateway.Address,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("captured: received shutdown signal", "signal", sig)
		cancel()
	}()

	sup, err := supervisor.New(ctx, cfg)
	if err != nil {
		slog.Error("captured: startup failed", "error", err)
		os.Exit(1)
	}

	sup.Run(ctx)

	if err := sup.Close(); err != nil {
		slog.Error("captured: shutdown cleanup failed", "error", err)
		os.Exit(1)
	}

	slog.Info("captured: stopped")
}
