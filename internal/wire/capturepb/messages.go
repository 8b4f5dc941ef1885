// Package capturepb is the wire contract between the capture agent and the
// gateway's CaptureStream RPC (see capture.proto in this directory).
//
// The retrieval pack's gRPC example (GautamaShastry-sentinel-ai/ingestor-go)
// depends on a protoc-generated pb package that isn't itself checked into
// the repo — protoc is a build-time code generator, not something this
// exercise runs. Rather than fabricate a stand-in module, CaptureFrame and
// FrameAck are hand-written structs that marshal themselves to the exact
// protobuf wire format using google.golang.org/protobuf/encoding/protowire
// (already a transitive dependency of grpc), so the bytes on the wire are
// indistinguishable from what protoc-gen-go would have produced for
// capture.proto. A real build would still run protoc and swap these for
// the generated types; until then the client.go client talks to the
// CaptureStream service by method name directly, same message layout.
package capturepb

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// CaptureFrame is one frame sent upstream to the gateway.
type CaptureFrame struct {
	FrameID      uint32
	DeviceID     string
	TimestampUS  uint64
	JPEGData     []byte
	QualityScore float64
	IsNIR        bool
	EyeSide      string
}

// Marshal encodes f to protobuf wire bytes per capture.proto's field
// numbers.
func (f *CaptureFrame) Marshal() ([]byte, error) {
	var b []byte
	if f.FrameID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(f.FrameID))
	}
	if f.DeviceID != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, f.DeviceID)
	}
	if f.TimestampUS != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, f.TimestampUS)
	}
	if len(f.JPEGData) > 0 {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, f.JPEGData)
	}
	if f.QualityScore != 0 {
		b = protowire.AppendTag(b, 5, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f.QualityScore))
	}
	if f.IsNIR {
		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if f.EyeSide != "" {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendString(b, f.EyeSide)
	}
	return b, nil
}

// Unmarshal decodes protobuf wire bytes into f, discarding unknown fields.
func (f *CaptureFrame) Unmarshal(data []byte) error {
	*f = CaptureFrame{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("capturepb: CaptureFrame: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("capturepb: CaptureFrame.frame_id: %w", protowire.ParseError(n))
			}
			f.FrameID = uint32(v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("capturepb: CaptureFrame.device_id: %w", protowire.ParseError(n))
			}
			f.DeviceID = v
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("capturepb: CaptureFrame.timestamp_us: %w", protowire.ParseError(n))
			}
			f.TimestampUS = v
			data = data[n:]
		case 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("capturepb: CaptureFrame.jpeg_data: %w", protowire.ParseError(n))
			}
			f.JPEGData = append([]byte(nil), v...)
			data = data[n:]
		case 5:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return fmt.Errorf("capturepb: CaptureFrame.quality_score: %w", protowire.ParseError(n))
			}
			f.QualityScore = math.Float64frombits(v)
			data = data[n:]
		case 6:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("capturepb: CaptureFrame.is_nir: %w", protowire.ParseError(n))
			}
			f.IsNIR = v != 0
			data = data[n:]
		case 7:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("capturepb: CaptureFrame.eye_side: %w", protowire.ParseError(n))
			}
			f.EyeSide = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("capturepb: CaptureFrame: unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

// FrameAck is the gateway's per-frame reply.
type FrameAck struct {
	FrameID    uint32
	Accepted   bool
	QueueDepth uint32
}

func (a *FrameAck) Marshal() ([]byte, error) {
	var b []byte
	if a.FrameID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.FrameID))
	}
	if a.Accepted {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if a.QueueDepth != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.QueueDepth))
	}
	return b, nil
}

func (a *FrameAck) Unmarshal(data []byte) error {
	*a = FrameAck{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("capturepb: FrameAck: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("capturepb: FrameAck.frame_id: %w", protowire.ParseError(n))
			}
			a.FrameID = uint32(v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("capturepb: FrameAck.accepted: %w", protowire.ParseError(n))
			}
			a.Accepted = v != 0
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("capturepb: FrameAck.queue_depth: %w", protowire.ParseError(n))
			}
			a.QueueDepth = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("capturepb: FrameAck: unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}
