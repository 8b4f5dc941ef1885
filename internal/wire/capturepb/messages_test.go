package capturepb

import (
	"bytes"
	"testing"
)

func TestCaptureFrameRoundTrip(t *testing.T) {
	in := &CaptureFrame{
		FrameID:      42,
		DeviceID:     "agent-01",
		TimestampUS:  1234567890,
		JPEGData:     []byte{0xFF, 0xD8, 0xFF, 0xD9},
		QualityScore: 0.873,
		IsNIR:        true,
		EyeSide:      "left",
	}
	data, err := in.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	out := new(CaptureFrame)
	if err := out.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if out.FrameID != in.FrameID || out.DeviceID != in.DeviceID ||
		out.TimestampUS != in.TimestampUS || !bytes.Equal(out.JPEGData, in.JPEGData) ||
		out.QualityScore != in.QualityScore || out.IsNIR != in.IsNIR || out.EyeSide != in.EyeSide {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestCaptureFrameZeroValueRoundTrip(t *testing.T) {
	in := &CaptureFrame{}
	data, err := in.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := new(CaptureFrame)
	if err := out.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.FrameID != 0 || out.DeviceID != "" || out.IsNIR {
		t.Fatalf("zero-value round trip produced non-zero fields: %+v", out)
	}
}

func TestFrameAckRoundTrip(t *testing.T) {
	in := &FrameAck{FrameID: 7, Accepted: false, QueueDepth: 3}
	data, err := in.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := new(FrameAck)
	if err := out.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}
