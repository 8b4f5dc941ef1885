// Package wire defines the JSON request/response schemas for the
// key-service's three message-bus subjects (spec.md §6). Each subject
// gets its own discriminated record types rather than a single shared
// union, per spec.md §9's "dynamic JSON on the bus becomes tagged record
// types on the wire... do not share one union across all three."
package wire

// DecryptBatchRequest is the payload on eyed.key.decrypt_batch.
type DecryptBatchRequest struct {
	Threshold *float64              `json:"threshold,omitempty"`
	Entries   []DecryptBatchEntry   `json:"entries"`
}

// DecryptBatchEntry is one gallery candidate's encrypted inner products
// plus the cleartext popcounts needed to turn them into a fractional
// Hamming distance (spec.md §3, §4.7).
type DecryptBatchEntry struct {
	TemplateID          string   `json:"template_id"`
	IdentityID          string   `json:"identity_id"`
	IdentityName        string   `json:"identity_name,omitempty"`
	EncInnerProductsB64 []string `json:"enc_inner_products_b64"`
	ProbeIrisPopcount   []int64  `json:"probe_iris_popcount"`
	GalleryIrisPopcount []int64  `json:"gallery_iris_popcount"`
	// Accepted but ignored: spec.md §9 defers masked HD to a future
	// multiplicative-depth increase.
	ProbeMaskPopcount   []int64 `json:"probe_mask_popcount,omitempty"`
	GalleryMaskPopcount []int64 `json:"gallery_mask_popcount,omitempty"`
}

// DecryptBatchResponse is the reply on the request's reply-to subject.
type DecryptBatchResponse struct {
	IsMatch             bool    `json:"is_match"`
	HammingDistance     float64 `json:"hamming_distance"`
	MatchedIdentityID   *string `json:"matched_identity_id"`
	MatchedIdentityName *string `json:"matched_identity_name"`
}

// DefaultThreshold is used when a request omits "threshold" (spec.md §4.7).
const DefaultThreshold = 0.39

// ErrorResponse is the reply shape for any handler's error path
// (spec.md §7).
type ErrorResponse struct {
	Error string `json:"error"`
}
