package streaming

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/eyed-system/eyed/internal/wire/capturepb"
	"google.golang.org/grpc"
)

// fakeGatewayHandler acks every frame as accepted with a fixed queue depth,
// echoing frame_id back, until the client closes its send side.
func fakeGatewayHandler(srv interface{}, stream grpc.ServerStream) error {
	for {
		f := new(capturepb.CaptureFrame)
		if err := stream.RecvMsg(f); err != nil {
			return nil
		}
		ack := &capturepb.FrameAck{FrameID: f.FrameID, Accepted: true, QueueDepth: 3}
		if err := stream.SendMsg(ack); err != nil {
			return err
		}
	}
}

var testServiceDesc = grpc.ServiceDesc{
	ServiceName: "eyed.capture.v1.CaptureStream",
	HandlerType: (*interface{})(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       fakeGatewayHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
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

func TestSendFrameRoundTrip(t *testing.T) {
	addr, stop := startFakeGateway(t)
	defer stop()

	c := New(Config{
		Address:        addr,
		ConnectTimeout: 2 * time.Second,
		ReconnectBase:  100 * time.Millisecond,
		ReconnectMax:   time.Second,
		DeviceID:       "agent-01",
	})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	res := c.SendFrame(&capturepb.CaptureFrame{FrameID: 1, DeviceID: "agent-01"})
	if !res.ConnectionOK || !res.Accepted || res.QueueDepth != 3 {
		t.Fatalf("SendFrame result = %+v, want accepted ack with queue depth 3", res)
	}
}

func TestSendFrameWithoutConnectionReportsNotOK(t *testing.T) {
	c := New(Config{Address: "127.0.0.1:1", ConnectTimeout: time.Second})
	res := c.SendFrame(&capturepb.CaptureFrame{FrameID: 1})
	if res.ConnectionOK {
		t.Fatal("SendFrame on never-connected client: want connection_ok=false")
	}
	if res.Accepted {
		t.Fatal("SendFrame on never-connected client: want accepted=false")
	}
}
