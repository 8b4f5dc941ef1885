// Package handlers implements the key-service's three message-bus request
// handlers (spec.md §4.7-§4.9), grounded in
// original_source/key-service/src/handlers.cpp's try/catch-to-error-reply
// shape, translated to Go's explicit error returns: each handler takes raw
// JSON bytes and returns a JSON reply, never panicking on malformed input.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/eyed-system/eyed/internal/keyservice/match"
	"github.com/eyed-system/eyed/internal/keyservice/wire"
)

// HEContext is the subset of *hectx.Context the handlers need: decrypt
// plus the two read-only health probes. Accepting the interface instead
// of the concrete type keeps this package's tests independent of a real
// BFV cryptocontext.
type HEContext interface {
	DecryptScalar(ctBytes []byte) (int64, error)
	DecryptVector(ctBytes []byte) ([]int64, error)
	RingDimension() uint32
	IsReady() bool
}

// Handlers binds the three bus subjects to a shared, read-only HE context.
type Handlers struct {
	ctx HEContext
}

// New constructs Handlers bound to ctx.
func New(ctx HEContext) *Handlers {
	return &Handlers{ctx: ctx}
}

// DecryptBatch implements eyed.key.decrypt_batch (spec.md §4.7): decrypt
// every entry's inner-product ciphertexts, compute fractional Hamming
// distance, and reply with the best match under threshold.
func (h *Handlers) DecryptBatch(raw []byte) []byte {
	var req wire.DecryptBatchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorReply(fmt.Errorf("malformed request: %w", err))
	}

	threshold := wire.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	resp, err := match.Decide(req.Entries, threshold, h.ctx.DecryptScalar)
	if err != nil {
		return errorReply(fmt.Errorf("decrypt_batch failed: %w", err))
	}

	return mustMarshal(resp)
}

// DecryptTemplate implements eyed.key.decrypt_template (spec.md §4.8):
// decrypt every ciphertext in iris_codes_b64 and/or mask_codes_b64 to its
// full slot vector, for admin visualization. No thresholding.
func (h *Handlers) DecryptTemplate(raw []byte) []byte {
	var req wire.DecryptTemplateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorReply(fmt.Errorf("malformed request: %w", err))
	}

	var resp wire.DecryptTemplateResponse
	if req.IrisCodesB64 != nil {
		vecs, err := decryptAll(h.ctx, req.IrisCodesB64)
		if err != nil {
			return errorReply(fmt.Errorf("decrypt_template failed: %w", err))
		}
		resp.IrisCodes = vecs
	}
	if req.MaskCodesB64 != nil {
		vecs, err := decryptAll(h.ctx, req.MaskCodesB64)
		if err != nil {
			return errorReply(fmt.Errorf("decrypt_template failed: %w", err))
		}
		resp.MaskCodes = vecs
	}

	return mustMarshal(resp)
}

func decryptAll(ctx HEContext, b64List []string) ([][]int64, error) {
	vecs := make([][]int64, 0, len(b64List))
	for i, b64 := range b64List {
		ctBytes, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("ciphertext %d: decoding base64: %w", i, err)
		}
		v, err := ctx.DecryptVector(ctBytes)
		if err != nil {
			return nil, fmt.Errorf("ciphertext %d: decrypting: %w", i, err)
		}
		vecs = append(vecs, v)
	}
	return vecs, nil
}

// Health implements eyed.key.health (spec.md §4.9): returns readiness and
// ring dimension immediately, never erroring.
func (h *Handlers) Health(_ []byte) []byte {
	status := "not_ready"
	if h.ctx.IsReady() {
		status = "ok"
	}
	return mustMarshal(wire.HealthResponse{
		Status:        status,
		RingDimension: h.ctx.RingDimension(),
	})
}

func errorReply(err error) []byte {
	return mustMarshal(wire.ErrorResponse{Error: err.Error()})
}

// mustMarshal only ever receives handler-internal response structs whose
// fields all marshal cleanly; a failure here would be a programmer error,
// not a request-time condition.
func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("handlers: marshaling reply: %v", err))
	}
	return data
}
