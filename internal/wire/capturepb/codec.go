package capturepb

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// wireMessage is satisfied by CaptureFrame and FrameAck.
type wireMessage interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

const codecName = "eyedwire"

// codec adapts CaptureFrame/FrameAck's hand-rolled protobuf-wire
// Marshal/Unmarshal to grpc's encoding.Codec, standing in for the
// proto-reflection-based codec grpc registers by default (which needs
// protoc-generated proto.Message implementations we don't have, see
// messages.go).
type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("capturepb: codec: %T does not implement wireMessage", v)
	}
	return m.Marshal()
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("capturepb: codec: %T does not implement wireMessage", v)
	}
	return m.Unmarshal(data)
}

func (codec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(codec{})
}
