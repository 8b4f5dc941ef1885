// Package bus is the key-service's message-bus adapter: connects to NATS
// with the retry policy from original_source/key-service/src/main.cpp
// (30 startup attempts, 2s apart, then fatal) and infinite post-connect
// reconnection, and routes each of the three subjects to a handler
// function that turns raw request bytes into raw reply bytes.
//
// Grounded in original_source/gateway/internal/nats/client.go's
// nats.Connect option set (MaxReconnects(-1), ReconnectWait, disconnect/
// reconnect log hooks) — the Go idiom for the same nats.h option calls
// main.cpp makes (natsOptions_SetMaxReconnect(-1),
// natsOptions_SetReconnectWait(2000)).
package bus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	reconnectWait   = 2 * time.Second
	startupMaxTries = 30
	startupWait     = 2 * time.Second
)

// Handler processes one request's raw bytes and returns the raw reply
// bytes to publish on the request's reply subject, if any.
type Handler func(request []byte) []byte

// Adapter owns the NATS connection and the key-service's subscriptions.
type Adapter struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// Connect dials url, retrying startupMaxTries times at startupWait
// intervals before giving up (spec.md §4.10). Once connected, the
// underlying nats.Conn reconnects forever on its own.
func Connect(url string) (*Adapter, error) {
	opts := []nats.Option{
		nats.Name("eyed-key-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("bus: disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("bus: reconnected")
		}),
	}

	var lastErr error
	for attempt := 1; attempt <= startupMaxTries; attempt++ {
		conn, err := nats.Connect(url, opts...)
		if err == nil {
			slog.Info("bus: connected", "url", url)
			return &Adapter{conn: conn}, nil
		}
		lastErr = err
		slog.Warn("bus: connect attempt failed, retrying", "attempt", attempt, "max_attempts", startupMaxTries, "error", err)
		time.Sleep(startupWait)
	}
	return nil, fmt.Errorf("bus: could not connect to %q after %d attempts: %w", url, startupMaxTries, lastErr)
}

// Subscribe registers handler on subject. Messages with no reply-to are
// handled (for side effects/logging) but their reply is discarded per
// spec.md §4.10: "messages without a reply subject are silently
// discarded."
func (a *Adapter) Subscribe(subject string, handler Handler) error {
	sub, err := a.conn.Subscribe(subject, func(msg *nats.Msg) {
		reply := handler(msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := a.conn.Publish(msg.Reply, reply); err != nil {
			slog.Error("bus: publishing reply failed", "subject", subject, "reply_to", msg.Reply, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("bus: subscribing to %q: %w", subject, err)
	}
	a.subs = append(a.subs, sub)
	slog.Info("bus: subscribed", "subject", subject)
	return nil
}

// Close unsubscribes everything and drains the connection.
func (a *Adapter) Close() {
	for _, sub := range a.subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("bus: unsubscribe failed", "error", err)
		}
	}
	if a.conn != nil {
		if err := a.conn.Drain(); err != nil {
			slog.Warn("bus: drain failed", "error", err)
		}
	}
}
