package camera

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/eyed-system/eyed/internal/reconnect"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// webcamCamera reads grayscale frames from a live device (v4l2 webcam path)
// or a network stream URL through a GStreamer pipeline, pulling samples
// synchronously instead of the teacher's callback-to-channel fan-out: the
// capture agent has exactly one consumer (the producer goroutine calling
// Next), so there's no fan-out to do.
//
// Grounded in modules/stream-capture/rtsp.go and its internal/rtsp pipeline
// builder: same gst.Init/NewPipeline/appsink vocabulary, same
// RunWithReconnect-driven reconnection on pipeline error, narrowed to a
// single fixed-format grayscale capsfilter since the iris pipeline has no
// use for RGB, hardware decode acceleration, or hot-reloadable framerate.
type webcamCamera struct {
	device    string
	width     int
	height    int
	targetFPS float64
	eyeSide   Side
	isNIR     bool

	mu       sync.Mutex
	pipeline *gst.Pipeline
	sink     *app.Sink

	reconnectCfg   reconnect.Config
	reconnectState reconnect.State
}

func newWebcamCamera(cfg Config) (*webcamCamera, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("camera: webcam device/URL is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("camera: invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.TargetFPS <= 0 {
		return nil, fmt.Errorf("camera: target fps must be > 0, got %v", cfg.TargetFPS)
	}

	gst.Init(nil)
	if _, err := gst.NewElement("fakesrc"); err != nil {
		return nil, fmt.Errorf("camera: GStreamer not available: %w", err)
	}

	c := &webcamCamera{
		device:       cfg.Device,
		width:        cfg.Width,
		height:       cfg.Height,
		targetFPS:    cfg.TargetFPS,
		eyeSide:      cfg.EyeSide,
		isNIR:        cfg.IsNIR,
		reconnectCfg: reconnect.DefaultConfig(),
	}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("camera: initial connect failed: %w", err)
	}
	return c, nil
}

// buildLaunch produces a gst-launch-style description. A device path
// starting with "/dev/" is a v4l2 source; anything else (rtsp://, http://)
// goes through uridecodebin, which autodetects the right demux/decode
// chain for us.
func (c *webcamCamera) buildLaunch() string {
	caps := fmt.Sprintf("video/x-raw,format=GRAY8,width=%d,height=%d,framerate=%d/1",
		c.width, c.height, int(c.targetFPS+0.5))

	if len(c.device) >= 5 && c.device[:5] == "/dev/" {
		return fmt.Sprintf(
			"v4l2src device=%s ! videoconvert ! videoscale ! videorate ! capsfilter caps=\"%s\" ! appsink name=sink sync=false drop=true max-buffers=1",
			c.device, caps,
		)
	}
	return fmt.Sprintf(
		"uridecodebin uri=%s ! videoconvert ! videoscale ! videorate ! capsfilter caps=\"%s\" ! appsink name=sink sync=false drop=true max-buffers=1",
		c.device, caps,
	)
}

func (c *webcamCamera) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pipeline, err := gst.NewPipelineFromString(c.buildLaunch())
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("locating appsink: %w", err)
	}
	sink := app.SinkFromElement(elem)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("starting pipeline: %w", err)
	}

	c.pipeline = pipeline
	c.sink = sink
	reconnect.Reset(&c.reconnectState)
	return nil
}

func (c *webcamCamera) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipeline != nil {
		c.pipeline.SetState(gst.StateNull)
		c.pipeline = nil
		c.sink = nil
	}
}

// Next pulls the next sample from the appsink, reconnecting the pipeline
// with exponential backoff (reconnect.Config) on EOS or pull failure.
// Returns ErrPermanentFailure once reconnection attempts are exhausted.
func (c *webcamCamera) Next() (*image.Gray, uint64, error) {
	for {
		c.mu.Lock()
		sink := c.sink
		c.mu.Unlock()
		if sink == nil {
			if err := c.reconnectWithBackoff(); err != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrPermanentFailure, err)
			}
			continue
		}

		sample, err := sink.PullSample()
		if err != nil {
			slog.Warn("camera: webcam pull sample failed", "device", c.device, "error", err)
			c.teardown()
			continue
		}

		buf := sample.GetBuffer()
		if buf == nil {
			continue
		}
		data := buf.Map(gst.MapRead).Bytes()
		defer buf.Unmap()

		ts := uint64(time.Now().UnixMicro())
		img := image.NewGray(image.Rect(0, 0, c.width, c.height))
		n := copy(img.Pix, data)
		if n < len(img.Pix) {
			slog.Warn("camera: webcam sample shorter than expected frame size", "got", n, "want", len(img.Pix))
			continue
		}
		return img, ts, nil
	}
}

func (c *webcamCamera) reconnectWithBackoff() error {
	for {
		attempt := c.reconnectState.CurrentRetries + 1
		if c.reconnectCfg.MaxRetries > 0 && attempt > c.reconnectCfg.MaxRetries {
			return fmt.Errorf("max reconnect attempts (%d) exceeded", c.reconnectCfg.MaxRetries)
		}
		delay := reconnect.Backoff(attempt, c.reconnectCfg)
		slog.Warn("camera: reconnecting webcam", "device", c.device, "attempt", attempt, "delay", delay)
		time.Sleep(delay)

		if err := c.connect(); err != nil {
			slog.Warn("camera: webcam reconnect attempt failed", "device", c.device, "attempt", attempt, "error", err)
			c.reconnectState.CurrentRetries = attempt
			continue
		}
		return nil
	}
}

func (c *webcamCamera) EyeSide() Side { return c.eyeSide }
func (c *webcamCamera) IsNIR() bool   { return c.isNIR }

func (c *webcamCamera) Close() error {
	c.teardown()
	return nil
}
