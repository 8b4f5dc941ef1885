// Package config loads the capture agent's configuration from a TOML file
// (spec.md §6: sections [gateway], [camera], [quality], [device]) with
// EYED_-prefixed environment variable overrides layered on top, the same
// two-step shape gateway/internal/config/config.go uses for its env-only
// config and core/config.Load uses for its file-backed one.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/eyed-system/eyed/internal/capture/camera"
	"github.com/eyed-system/eyed/internal/capture/quality"
	"github.com/eyed-system/eyed/internal/capture/streaming"
)

// Config is the complete capture agent configuration, immutable once Load
// returns.
type Config struct {
	DeviceID string
	LogLevel string
	Gateway  streaming.Config
	Camera   camera.Config
	Quality  quality.Config
}

// fileConfig mirrors the TOML file's shape; durations are plain
// milliseconds ints on the wire, converted to time.Duration after decode.
type fileConfig struct {
	Device struct {
		ID string `toml:"id"`
	} `toml:"device"`
	Gateway struct {
		Address          string `toml:"address"`
		ConnectTimeoutMS int    `toml:"connect_timeout_ms"`
		ReconnectBaseMS  int    `toml:"reconnect_base_ms"`
		ReconnectMaxMS   int    `toml:"reconnect_max_ms"`
	} `toml:"gateway"`
	Camera struct {
		Source    string  `toml:"source"`
		ImageDir  string  `toml:"image_dir"`
		Device    string  `toml:"device"`
		Width     int     `toml:"width"`
		Height    int     `toml:"height"`
		TargetFPS float64 `toml:"target_fps"`
		EyeSide   string  `toml:"eye_side"`
		NIR       bool    `toml:"nir"`
	} `toml:"camera"`
	Quality struct {
		Threshold   float64 `toml:"threshold"`
		JPEGQuality int     `toml:"jpeg_quality"`
	} `toml:"quality"`
}

// defaults matches spec.md §3's "every key has a default."
func defaults() fileConfig {
	var f fileConfig
	f.Device.ID = "capture-agent-1"
	f.Gateway.Address = "localhost:50051"
	f.Gateway.ConnectTimeoutMS = 5000
	f.Gateway.ReconnectBaseMS = 500
	f.Gateway.ReconnectMaxMS = 4000
	f.Camera.Source = "directory"
	f.Camera.ImageDir = "./images"
	f.Camera.Width = 640
	f.Camera.Height = 480
	f.Camera.TargetFPS = 10
	f.Camera.EyeSide = "left"
	return f
}

// Load reads path as TOML, falling back to built-in defaults for any
// key the file omits or for a missing file entirely (spec.md §7: bad or
// absent config is a *configuration* error — logged, defaults
// substituted — never fatal), then applies EYED_-prefixed environment
// overrides on top, matching gateway/internal/config/config.go's envOr.
func Load(path string) (Config, error) {
	f := defaults()

	if data, err := os.ReadFile(path); err != nil {
		slog.Warn("config: cannot read config file, using defaults", "path", path, "error", err)
	} else if err := toml.Unmarshal(data, &f); err != nil {
		slog.Warn("config: cannot parse config file, using defaults", "path", path, "error", err)
		f = defaults()
	}

	applyEnvOverrides(&f)

	return Config{
		DeviceID: f.Device.ID,
		LogLevel: envOr("EYED_LOG_LEVEL", "info"),
		Gateway: streaming.Config{
			Address:        f.Gateway.Address,
			ConnectTimeout: time.Duration(f.Gateway.ConnectTimeoutMS) * time.Millisecond,
			ReconnectBase:  time.Duration(f.Gateway.ReconnectBaseMS) * time.Millisecond,
			ReconnectMax:   time.Duration(f.Gateway.ReconnectMaxMS) * time.Millisecond,
			DeviceID:       f.Device.ID,
		},
		Camera: camera.Config{
			Source:    camera.SourceKind(f.Camera.Source),
			ImageDir:  f.Camera.ImageDir,
			Device:    f.Camera.Device,
			Width:     f.Camera.Width,
			Height:    f.Camera.Height,
			TargetFPS: f.Camera.TargetFPS,
			EyeSide:   camera.Side(f.Camera.EyeSide),
			IsNIR:     f.Camera.NIR,
		},
		Quality: quality.Config{
			Threshold:   f.Quality.Threshold,
			JPEGQuality: f.Quality.JPEGQuality,
		},
	}, nil
}

func applyEnvOverrides(f *fileConfig) {
	if v := os.Getenv("EYED_GATEWAY_ADDR"); v != "" {
		f.Gateway.Address = v
	}
	if v := os.Getenv("EYED_DEVICE_ID"); v != "" {
		f.Device.ID = v
	}
	if v := os.Getenv("EYED_CAMERA_SOURCE"); v != "" {
		f.Camera.Source = v
	}
	if v := os.Getenv("EYED_CAMERA_DEVICE"); v != "" {
		f.Camera.Device = v
	}
	if v := os.Getenv("EYED_IMAGE_DIR"); v != "" {
		f.Camera.ImageDir = v
	}
	if v := os.Getenv("EYED_QUALITY_THRESHOLD"); v != "" {
		var t float64
		if _, err := fmt.Sscanf(v, "%f", &t); err == nil {
			f.Quality.Threshold = t
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
