// Package reconnect implements the exponential-backoff reconnection policy
// shared by the capture agent's webcam/network camera source and its
// gateway streaming client.
//
// Generalized from the teacher's modules/stream-capture/internal/rtsp
// package: same doubling-delay-with-cap schedule and retry-counter state,
// lifted out from under stream-capture so both camera and streaming can
// depend on it without an import cycle.
package reconnect

import "time"

// Config configures an exponential backoff schedule.
type Config struct {
	MaxRetries    int           // 0 means retry forever
	RetryDelay    time.Duration // delay before the first retry
	MaxRetryDelay time.Duration // cap on the computed delay
}

// DefaultConfig mirrors the teacher's stream-capture defaults: 1s initial
// delay doubling up to a 30s cap.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    5,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// State tracks in-progress reconnection attempts.
type State struct {
	CurrentRetries int
}

// Reset clears retry state after a successful (re)connection.
func Reset(s *State) {
	s.CurrentRetries = 0
}

// Backoff computes the delay before the given attempt number (1-indexed):
// RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := cfg.RetryDelay * time.Duration(uint64(1)<<uint(attempt-1))
	if delay > cfg.MaxRetryDelay || delay <= 0 {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
