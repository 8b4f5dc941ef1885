// Package supervisor wires the capture agent's camera, ring buffer, quality
// gate and streaming client into the producer/consumer pipeline described
// in spec.md §4.5, in the shape of core.Orion's Run/Shutdown lifecycle:
// one goroutine per stage, a context for cancellation, a sync.WaitGroup
// for drain, and a periodic stats logger.
package supervisor

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/eyed-system/eyed/internal/capture/camera"
	"github.com/eyed-system/eyed/internal/capture/config"
	"github.com/eyed-system/eyed/internal/capture/frame"
	"github.com/eyed-system/eyed/internal/capture/quality"
	"github.com/eyed-system/eyed/internal/capture/ringbuffer"
	"github.com/eyed-system/eyed/internal/capture/streaming"
	"github.com/eyed-system/eyed/internal/wire/capturepb"
)

// ringBufferCapacity is the number of frames the SPSC queue between
// producer and consumer can hold — a power of two per ringbuffer.New.
const ringBufferCapacity = 16

// backpressureDelay is the minimum pause after a gateway-side reject
// (spec.md §4.4: "back off briefly (>=100ms) before offering the next
// frame").
const backpressureDelay = 100 * time.Millisecond

// emptyPollInterval is how long the consumer sleeps when the ring buffer
// has nothing to pop (spec.md §4.5).
const emptyPollInterval = 1 * time.Millisecond

// statsInterval is how often the supervisor logs its counters.
const statsInterval = 10 * time.Second

// Supervisor owns the capture agent's producer and consumer goroutines.
type Supervisor struct {
	cfg    config.Config
	cam    camera.Camera
	rb     *ringbuffer.RingBuffer
	client *streaming.Client

	nextFrameID atomic.Uint32

	sent             atomic.Uint64
	rejectedQuality  atomic.Uint64
	rejectedGateway  atomic.Uint64
	droppedBufferFul atomic.Uint64

	shuttingDown atomic.Bool
	wg           sync.WaitGroup
}

// New constructs a Supervisor from cfg. It opens the camera and the
// gateway connection. A camera failure is returned as an error, which
// callers treat as a fatal startup error per spec.md §7; a failed initial
// gateway connect is only logged, and the consumer reconnects with backoff
// once its first send reports the connection down.
func New(ctx context.Context, cfg config.Config) (*Supervisor, error) {
	cam, err := camera.New(cfg.Camera)
	if err != nil {
		return nil, fmt.Errorf("supervisor: opening camera: %w", err)
	}

	client := streaming.New(cfg.Gateway)
	if err := client.Connect(ctx); err != nil {
		slog.Warn("supervisor: initial gateway connect failed, will retry with backoff", "error", err)
	}

	return &Supervisor{
		cfg:    cfg,
		cam:    cam,
		rb:     ringbuffer.New(ringBufferCapacity),
		client: client,
	}, nil
}

// Run starts the producer and consumer goroutines and blocks until ctx is
// cancelled. Shutdown is cooperative: Run returns once both goroutines
// have drained.
func (s *Supervisor) Run(ctx context.Context) {
	s.wg.Add(2)
	go s.producerLoop(ctx)
	go s.consumerLoop(ctx)

	go s.statsLoop(ctx)

	<-ctx.Done()
	s.shuttingDown.Store(true)
	s.wg.Wait()
}

// Close releases the camera and gateway connection. Call after Run
// returns.
func (s *Supervisor) Close() error {
	camErr := s.cam.Close()
	streamErr := s.client.Close()
	if camErr != nil {
		return camErr
	}
	return streamErr
}

// producerLoop is spec.md §4.5's producer thread: camera -> ring buffer.
func (s *Supervisor) producerLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		if s.shuttingDown.Load() || ctx.Err() != nil {
			return
		}

		img, ts, err := s.cam.Next()
		if err != nil {
			slog.Error("supervisor: camera permanently failed, stopping producer", "error", err)
			s.shuttingDown.Store(true)
			return
		}

		f := frame.Frame{
			ID:          s.nextFrameID.Add(1) - 1,
			TimestampUS: ts,
			Width:       img.Bounds().Dx(),
			Height:      img.Bounds().Dy(),
			Pixels:      img.Pix,
			TraceID:     uuid.NewString(),
		}

		if !s.rb.TryPush(f) {
			s.droppedBufferFul.Add(1)
			slog.Debug("supervisor: ring buffer full, dropping frame", "frame_id", f.ID, "trace_id", f.TraceID)
		}
	}
}

// consumerLoop is spec.md §4.5's consumer thread: ring buffer -> quality
// gate -> streaming client.
func (s *Supervisor) consumerLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		f, ok := s.rb.TryPop()
		if !ok {
			if s.shuttingDown.Load() || ctx.Err() != nil {
				return
			}
			time.Sleep(emptyPollInterval)
			continue
		}

		s.handleFrame(ctx, f)

		if s.shuttingDown.Load() && s.rb.Len() == 0 {
			return
		}
	}
}

func (s *Supervisor) handleFrame(ctx context.Context, f frame.Frame) {
	img := (&grayFrame{w: f.Width, h: f.Height, pix: f.Pixels}).toGray()
	score := quality.Score(img)
	if !quality.Passes(score, s.cfg.Quality.Threshold) {
		s.rejectedQuality.Add(1)
		slog.Debug("supervisor: frame rejected by quality gate", "frame_id", f.ID, "score", score)
		return
	}

	jpegData := quality.Encode(img, s.cfg.Quality.JPEGQuality)
	if len(jpegData) == 0 {
		slog.Warn("supervisor: encode failed, skipping frame", "frame_id", f.ID)
		return
	}

	wireFrame := &capturepb.CaptureFrame{
		FrameID:      f.ID,
		DeviceID:     s.cfg.DeviceID,
		TimestampUS:  f.TimestampUS,
		JPEGData:     jpegData,
		QualityScore: score,
		IsNIR:        s.cam.IsNIR(),
		EyeSide:      string(s.cam.EyeSide()),
	}

	res := s.client.SendFrame(wireFrame)
	switch {
	case !res.ConnectionOK:
		s.rejectedGateway.Add(1)
		slog.Warn("supervisor: gateway connection lost, reconnecting", "frame_id", f.ID)
		if err := s.client.Reconnect(ctx); err != nil {
			slog.Error("supervisor: reconnect aborted", "error", err)
		}
	case !res.Accepted:
		s.rejectedGateway.Add(1)
		slog.Debug("supervisor: gateway backpressure, frame rejected", "frame_id", f.ID, "queue_depth", res.QueueDepth)
		time.Sleep(backpressureDelay)
	default:
		s.sent.Add(1)
	}
}

func (s *Supervisor) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Info("supervisor: stats",
				"sent", s.sent.Load(),
				"rejected_quality", s.rejectedQuality.Load(),
				"rejected_gateway", s.rejectedGateway.Load(),
				"dropped_buffer_full", s.droppedBufferFul.Load(),
			)
		}
	}
}

// grayFrame adapts a raw pixel buffer back into an *image.Gray without a
// copy, so the quality gate can operate on what the ring buffer handed the
// consumer.
type grayFrame struct {
	w, h int
	pix  []byte
}

func (g *grayFrame) toGray() *image.Gray {
	return &image.Gray{
		Pix:    g.pix,
		Stride: g.w,
		Rect:   image.Rect(0, 0, g.w, g.h),
	}
}
