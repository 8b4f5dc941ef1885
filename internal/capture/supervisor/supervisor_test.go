package supervisor

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/eyed-system/eyed/internal/capture/camera"
	"github.com/eyed-system/eyed/internal/capture/config"
	"github.com/eyed-system/eyed/internal/capture/quality"
	"github.com/eyed-system/eyed/internal/capture/streaming"
	"github.com/eyed-system/eyed/internal/wire/capturepb"
)

func writeSharpPNG(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := byte(0)
			if x >= 16 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
}

func fakeGatewayHandler(srv interface{}, stream grpc.ServerStream) error {
	for {
		f := new(capturepb.CaptureFrame)
		if err := stream.RecvMsg(f); err != nil {
			return nil
		}
		ack := &capturepb.FrameAck{FrameID: f.FrameID, Accepted: true, QueueDepth: 0}
		if err := stream.SendMsg(ack); err != nil {
			return err
		}
	}
}

var testServiceDesc = grpc.ServiceDesc{
	ServiceName: "eyed.capture.v1.CaptureStream",
	HandlerType: (*interface{})(nil),
	Streams: []grpc.StreamDesc{
		{StreamName: "Stream", Handler: fakeGatewayHandler, ServerStreams: true, ClientStreams: true},
	},
}

func startFakeGateway(t *testing.T) (addr string, stop func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	srv.RegisterService(&testServiceDesc, nil)
	go srv.Serve(lis)
	return lis.Addr().String(), srv.Stop
}

// TestSupervisorSendsSharpFramesAndSkipsNone exercises the full producer
// -> ring buffer -> quality gate -> streaming client pipeline against a
// real (in-process) gateway, asserting that sharp frames make it through
// as "sent".
func TestSupervisorSendsSharpFramesAndSkipsNone(t *testing.T) {
	dir := t.TempDir()
	writeSharpPNG(t, dir, "a.png")
	writeSharpPNG(t, dir, "b.png")

	addr, stop := startFakeGateway(t)
	defer stop()

	cfg := config.Config{
		DeviceID: "test-device",
		Gateway: streaming.Config{
			Address:        addr,
			ConnectTimeout: 2 * time.Second,
			ReconnectBase:  50 * time.Millisecond,
			ReconnectMax:   500 * time.Millisecond,
			DeviceID:       "test-device",
		},
		Camera: camera.Config{
			Source:    camera.SourceDirectory,
			ImageDir:  dir,
			TargetFPS: 50,
			EyeSide:   camera.SideLeft,
		},
		Quality: quality.Config{
			Threshold:   0.05,
			JPEGQuality: 85,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	sup, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sup.Run(ctx)
	if err := sup.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if sup.sent.Load() == 0 {
		t.Fatal("expected at least one frame to be sent")
	}
	if sup.rejectedQuality.Load() != 0 {
		t.Fatalf("rejectedQuality = %d, want 0 for sharp-edge frames", sup.rejectedQuality.Load())
	}
}
