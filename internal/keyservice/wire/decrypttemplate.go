package wire

// DecryptTemplateRequest is the payload on eyed.key.decrypt_template, for
// admin visualization only (spec.md §4.8): no thresholding, just raw
// decrypt-to-vector of whichever ciphertext lists are present.
type DecryptTemplateRequest struct {
	IrisCodesB64 []string `json:"iris_codes_b64,omitempty"`
	MaskCodesB64 []string `json:"mask_codes_b64,omitempty"`
}

// DecryptTemplateResponse carries one decrypted integer vector per input
// ciphertext, in the same order, omitted entirely if the request didn't
// ask for that half.
type DecryptTemplateResponse struct {
	IrisCodes [][]int64 `json:"iris_codes,omitempty"`
	MaskCodes [][]int64 `json:"mask_codes,omitempty"`
}
