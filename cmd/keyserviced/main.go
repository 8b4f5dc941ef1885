// Command keyserviced runs the key service: holds the BFV secret key,
// decrypts batches of inner-product ciphertexts into match decisions, and
// answers admin template-decrypt and health requests over NATS
// (spec.md §4.6-§4.10).
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eyed-system/eyed/internal/keyservice/bus"
	"github.com/eyed-system/eyed/internal/keyservice/config"
	"github.com/eyed-system/eyed/internal/keyservice/handlers"
	"github.com/eyed-system/eyed/internal/keyservice/hectx"
)

const (
	subjectDecryptBatch    = "eyed.key.decrypt_batch"
	subjectDecryptTemplate = "eyed.key.decrypt_template"
	subjectHealth          = "eyed.key.health"
)

func main() {
	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("keyserviced: starting", "nats_url", cfg.NatsURL, "he_key_dir", cfg.HEKeyDir)

	ctx, err := hectx.Init(cfg.HEKeyDir)
	if err != nil {
		slog.Error("keyserviced: HE context init failed", "error", err)
		os.Exit(1)
	}
	slog.Info("keyserviced: HE context ready", "ring_dimension", ctx.RingDimension())

	adapter, err := bus.Connect(cfg.NatsURL)
	if err != nil {
		slog.Error("keyserviced: bus connect failed", "error", err)
		os.Exit(1)
	}
	defer adapter.Close()

	h := handlers.New(ctx)
	subjects := map[string]bus.Handler{
		subjectDecryptBatch:    h.DecryptBatch,
		subjectDecryptTemplate: h.DecryptTemplate,
		subjectHealth:          h.Health,
	}
	for subject, handler := range subjects {
		if err := adapter.Subscribe(subject, handler); err != nil {
			slog.Error("keyserviced: subscribe failed", "subject", subject, "error", err)
			os.Exit(1)
		}
	}

	slog.Info("keyserviced: ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case sig := <-sigCh:
			slog.Info("keyserviced: received shutdown signal", "signal", sig)
			slog.Info("keyserviced: shutdown complete")
			return
		case <-ticker.C:
			// spec.md §5: main thread polls at 1s granularity; in-flight
			// handlers run to completion, no hard cancel needed.
		}
	}
}
