// Package match computes fractional Hamming distance across a batch of
// gallery candidates from their encrypted inner products and cleartext
// popcounts, and picks the best match under a threshold (spec.md §4.7).
//
// Grounded in original_source/key-service/src/handlers.cpp's
// HandleDecryptBatch loop (same xor_count/total_bits/best-tracking
// arithmetic), pulled out as a pure function independent of the bus and
// the HE context so it is unit-testable against the spec's literal
// worked examples without a real cryptocontext.
package match

import (
	"encoding/base64"
	"fmt"

	"github.com/eyed-system/eyed/internal/keyservice/wire"
)

// irisCodeSlots is the bit width of one iris-code component (spec.md
// GLOSSARY): 16 rows x 256 cols x 2 complex components.
const irisCodeSlots = 8192

// DecryptScalarFunc decrypts one serialized ciphertext to its scalar
// (slot-0) value — satisfied by (*hectx.Context).DecryptScalar.
type DecryptScalarFunc func(ctBytes []byte) (int64, error)

// Decide computes the fractional Hamming distance for every entry and
// returns the best (lowest-fhd) candidate's match decision. The first
// entry seen wins ties at equal fhd (spec.md §4.7: "first entry seen wins
// at equal fhd — strict < maintains best").
func Decide(entries []wire.DecryptBatchEntry, threshold float64, decrypt DecryptScalarFunc) (wire.DecryptBatchResponse, error) {
	var (
		found        bool
		bestFHD      = 1.0
		bestIdentity string
		bestName     string
	)

	for i, entry := range entries {
		if len(entry.EncInnerProductsB64) != len(entry.ProbeIrisPopcount) ||
			len(entry.EncInnerProductsB64) != len(entry.GalleryIrisPopcount) {
			return wire.DecryptBatchResponse{}, fmt.Errorf("entry %d (%s): mismatched array lengths: %d ciphertexts, %d probe popcounts, %d gallery popcounts",
				i, entry.TemplateID, len(entry.EncInnerProductsB64), len(entry.ProbeIrisPopcount), len(entry.GalleryIrisPopcount))
		}

		fhd, err := entryFHD(entry, decrypt)
		if err != nil {
			return wire.DecryptBatchResponse{}, fmt.Errorf("entry %d (%s): %w", i, entry.TemplateID, err)
		}

		if fhd < bestFHD {
			bestFHD = fhd
			bestIdentity = entry.IdentityID
			bestName = entry.IdentityName
			found = true
		}
	}

	resp := wire.DecryptBatchResponse{
		HammingDistance: bestFHD,
	}
	if found && bestFHD < threshold {
		resp.IsMatch = true
		resp.MatchedIdentityID = &bestIdentity
		resp.MatchedIdentityName = &bestName
	}
	return resp, nil
}

// entryFHD computes one candidate's fractional Hamming distance across
// its K iris-code components (spec.md §4.7 steps 1-3):
//
//	xor_i      = pop_a_i + pop_b_i - 2*ip_i
//	total_xor  = sum(xor_i)
//	total_bits = K * irisCodeSlots
//	fhd        = total_xor / total_bits
func entryFHD(entry wire.DecryptBatchEntry, decrypt DecryptScalarFunc) (float64, error) {
	if len(entry.EncInnerProductsB64) == 0 {
		return 1.0, nil
	}

	var totalXOR int64
	for i, b64 := range entry.EncInnerProductsB64 {
		ctBytes, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return 0, fmt.Errorf("component %d: decoding base64 ciphertext: %w", i, err)
		}
		ip, err := decrypt(ctBytes)
		if err != nil {
			return 0, fmt.Errorf("component %d: decrypting ciphertext: %w", i, err)
		}

		xor := entry.ProbeIrisPopcount[i] + entry.GalleryIrisPopcount[i] - 2*ip
		totalXOR += xor
	}

	totalBits := int64(len(entry.EncInnerProductsB64)) * irisCodeSlots
	return float64(totalXOR) / float64(totalBits), nil
}
