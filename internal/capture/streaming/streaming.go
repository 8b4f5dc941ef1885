// Package streaming implements the capture agent's Streaming Client: a
// persistent bidirectional gRPC stream to the gateway, one synchronous
// write+ack per frame, exponential-backoff reconnect, and keepalive pings
// so a half-open TCP connection is detected quickly.
//
// Grounded in the teacher's stream-capture RTSPStream reconnect loop
// (modules/stream-capture/rtsp.go, internal/rtsp/reconnect.go), adapted
// from "reconnect the media pipeline" to "reconnect the gRPC channel," and
// in GautamaShastry-sentinel-ai/ingestor-go's use of google.golang.org/grpc
// for the actual transport (that repo is the server side of a frame-upload
// stream; this is the client side of one).
package streaming

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eyed-system/eyed/internal/reconnect"
	"github.com/eyed-system/eyed/internal/wire/capturepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Config is the immutable-after-load Streaming Client configuration,
// loaded from the capture TOML config's [gateway] section.
type Config struct {
	Address        string
	ConnectTimeout time.Duration
	ReconnectBase  time.Duration
	ReconnectMax   time.Duration
	DeviceID       string
}

// SendResult reports the outcome of one SendFrame call.
type SendResult struct {
	Accepted     bool
	QueueDepth   uint32
	ConnectionOK bool
}

// Client owns the long-lived bidirectional stream to the gateway.
type Client struct {
	cfg Config

	mu     sync.Mutex
	conn   *grpc.ClientConn
	stream *capturepb.Stream

	reconnectCfg   reconnect.Config
	reconnectState reconnect.State
}

// New constructs a Client. It does not dial — call Connect or Reconnect
// before the first SendFrame.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		reconnectCfg: reconnect.Config{
			MaxRetries:    0, // retry forever, per spec.md §4.4
			RetryDelay:    cfg.ReconnectBase,
			MaxRetryDelay: cfg.ReconnectMax,
		},
	}
}

// Connect dials the gateway once and opens the bidirectional stream. It
// does not retry; callers that want the doubling-backoff retry loop should
// use Reconnect.
func (c *Client) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, c.cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return fmt.Errorf("streaming: dial %s: %w", c.cfg.Address, err)
	}

	stream, err := capturepb.OpenStream(context.Background(), conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("streaming: open stream: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.stream = stream
	c.mu.Unlock()

	reconnect.Reset(&c.reconnectState)
	return nil
}

// Reconnect retries Connect with doubling backoff (reconnect_base_ms up to
// reconnect_max_ms) forever, until it succeeds or ctx is cancelled — the
// capture agent never gives up on the gateway once started (spec.md §4.4,
// §5: "reconnect has no wall-clock cap").
func (c *Client) Reconnect(ctx context.Context) error {
	c.teardown()

	attempt := 0
	for {
		attempt++
		if err := c.Connect(ctx); err == nil {
			slog.Info("streaming: reconnected", "attempt", attempt)
			return nil
		} else {
			slog.Warn("streaming: reconnect attempt failed", "attempt", attempt, "error", err)
		}

		delay := reconnect.Backoff(attempt, c.reconnectCfg)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.stream = nil
}

// SendFrame writes f and synchronously reads exactly one ack. Any write or
// read error tears down the stream immediately and reports
// connection_ok=false; the supervisor is responsible for invoking
// Reconnect afterward (spec.md §4.4, §4.5).
func (c *Client) SendFrame(f *capturepb.CaptureFrame) SendResult {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	if stream == nil {
		return SendResult{ConnectionOK: false}
	}

	if err := stream.Send(f); err != nil {
		slog.Warn("streaming: send failed", "frame_id", f.FrameID, "error", err)
		c.teardown()
		return SendResult{ConnectionOK: false}
	}

	ack, err := stream.Recv()
	if err != nil {
		slog.Warn("streaming: recv ack failed", "frame_id", f.FrameID, "error", err)
		c.teardown()
		return SendResult{ConnectionOK: false}
	}

	return SendResult{
		Accepted:     ack.Accepted,
		QueueDepth:   ack.QueueDepth,
		ConnectionOK: true,
	}
}

// Close releases the underlying connection. Idempotent.
func (c *Client) Close() error {
	c.teardown()
	return nil
}
