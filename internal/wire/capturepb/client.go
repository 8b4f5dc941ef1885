package capturepb

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName and streamMethod identify the CaptureStream RPC on the wire,
// matching capture.proto's "service CaptureStream { rpc Stream(...) }".
const (
	serviceName  = "eyed.capture.v1.CaptureStream"
	streamMethod = "/" + serviceName + "/Stream"
)

var streamDesc = grpc.StreamDesc{
	StreamName:    "Stream",
	ServerStreams: true,
	ClientStreams: true,
}

// Stream wraps the bidirectional grpc.ClientStream for CaptureFrame/FrameAck
// exchange, so callers never see the raw grpc.ClientStream or codec
// plumbing.
type Stream struct {
	cs grpc.ClientStream
}

// OpenStream opens a new CaptureStream RPC on conn. It selects the
// eyedwire codec for the call itself via grpc.CallContentSubtype, so conn
// needs no codec option of its own (streaming.Client dials without one).
func OpenStream(ctx context.Context, conn grpc.ClientConnInterface) (*Stream, error) {
	cs, err := conn.NewStream(ctx, &streamDesc, streamMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	return &Stream{cs: cs}, nil
}

// Send writes one CaptureFrame to the stream.
func (s *Stream) Send(f *CaptureFrame) error {
	return s.cs.SendMsg(f)
}

// Recv blocks for the next FrameAck.
func (s *Stream) Recv() (*FrameAck, error) {
	ack := new(FrameAck)
	if err := s.cs.RecvMsg(ack); err != nil {
		return nil, err
	}
	return ack, nil
}

// CloseSend half-closes the send direction, signaling the gateway no more
// frames are coming.
func (s *Stream) CloseSend() error {
	return s.cs.CloseSend()
}
