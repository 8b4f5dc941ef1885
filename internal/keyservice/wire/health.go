package wire

// HealthRequest is the (empty) payload on eyed.key.health.
type HealthRequest struct{}

// HealthResponse reports readiness for orchestrator probes (spec.md §4.9).
type HealthResponse struct {
	Status        string `json:"status"` // "ok" | "not_ready"
	RingDimension uint32 `json:"ring_dimension"`
}
