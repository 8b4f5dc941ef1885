// Package camera implements the capture agent's unified frame source: a
// paced on-disk image directory for offline/test runs, or a live webcam /
// network stream via GStreamer for production.
//
// Grounded in the teacher's StreamProvider interface
// (modules/stream-capture/provider.go) and RTSPStream implementation
// (modules/stream-capture/rtsp.go), narrowed to the spec's single-frame
// pull contract instead of the teacher's push-to-channel one: the capture
// agent's producer thread wants to block on "give me the next frame," not
// manage a fan-out channel itself (that's the ring buffer's job).
package camera

import (
	"errors"
	"fmt"
	"image"
)

// Side identifies which eye a capture device is aimed at.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// SourceKind selects between the two camera backends.
type SourceKind string

const (
	SourceDirectory SourceKind = "directory"
	SourceWebcam    SourceKind = "webcam"
)

// Config is the immutable-after-load configuration for a Camera, loaded
// from the capture TOML config's [camera] section (spec.md §3).
type Config struct {
	Source    SourceKind
	ImageDir  string
	Device    string // device path or stream URL
	Width     int
	Height    int
	TargetFPS float64
	EyeSide   Side
	IsNIR     bool
}

// ErrPermanentFailure is returned by Next when the camera can no longer
// produce frames and the capture thread should terminate: an empty image
// directory, or an irrecoverably lost webcam/stream device.
var ErrPermanentFailure = errors.New("camera: permanent failure")

// Camera is the unified iterator over a directory or a live device/stream.
// Next blocks (pacing in directory mode, device-driven in webcam mode)
// until a frame is due, then returns it.
//
// A transient per-frame failure (a single unreadable file) is not an error:
// Next silently advances to the next source and the caller should just call
// Next again. Next only ever returns a non-nil error for a permanent,
// unrecoverable condition.
type Camera interface {
	// Next blocks until the next frame is due and returns it. It returns
	// ErrPermanentFailure (or a wrapped variant) when the source can never
	// produce another frame.
	Next() (img *image.Gray, timestampUS uint64, err error)
	EyeSide() Side
	IsNIR() bool
	Close() error
}

// New constructs the Camera implementation selected by cfg.Source.
func New(cfg Config) (Camera, error) {
	switch cfg.Source {
	case SourceDirectory:
		return newDirectoryCamera(cfg)
	case SourceWebcam:
		return newWebcamCamera(cfg)
	default:
		return nil, fmt.Errorf("camera: unsupported source %q (use %q or %q)", cfg.Source, SourceDirectory, SourceWebcam)
	}
}
