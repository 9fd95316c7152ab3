// Package realtime is the push channel: a websocket hub that delivers every
// emitted event to every connected client, plus optional relays that carry
// events between server instances.
//
// GLOBAL BROADCAST, CLIENT-SIDE FILTERING:
// The server never decides who receives an event. Every connected client
// gets every envelope and discards the ones whose recipient/participant
// field is not its own user. This keeps the server stateless about who is
// online, at the cost of sending every event to everyone. That is a privacy
// and bandwidth concern for a large deployment; the Hub is the single place
// a per-user routing table would go.
//
// DELIVERY IS BEST EFFORT:
// Emit never blocks the caller and never returns an error. If the hub's
// queue is full, or a client's send buffer is full, the event is dropped
// for that client. There are no retries and no ordering guarantees across
// clients.
//
// MULTIPLE INSTANCES:
// With a Relay configured, Emit publishes the encoded envelope to NATS or
// Redis and every instance (the sender included) delivers what it receives
// to its own local hub. Without one, Emit hands the envelope to the local
// hub directly.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/heapoverflow/internal/metrics"
)

// Broadcaster emits a named event with a JSON-encodable payload to every
// connected client. Implementations must not block on slow consumers.
type Broadcaster interface {
	Emit(ctx context.Context, event string, payload any)
}

// Envelope is the wire format of every push message.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func encodeEnvelope(event string, payload any, now time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("realtime: encoding %s payload: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{Event: event, Data: data, Timestamp: now.Unix()})
	if err != nil {
		return nil, fmt.Errorf("realtime: encoding %s envelope: %w", event, err)
	}
	return msg, nil
}

// Relay carries encoded envelopes between server instances.
type Relay interface {
	Publish(ctx context.Context, msg []byte) error
	// Subscribe starts delivering every message published by any instance
	// to deliver. It returns once the subscription is active.
	Subscribe(ctx context.Context, deliver func(msg []byte)) error
	Close() error
}

// Publisher is the Broadcaster the services use. It routes through the
// relay when one is configured and straight to the hub otherwise.
type Publisher struct {
	hub     *Hub
	relay   Relay
	logger  *slog.Logger
	metrics *metrics.Collector
}

var _ Broadcaster = (*Publisher)(nil)

// NewPublisher wires a hub and an optional relay (nil for single-instance).
func NewPublisher(hub *Hub, relay Relay, logger *slog.Logger, m *metrics.Collector) *Publisher {
	return &Publisher{hub: hub, relay: relay, logger: logger, metrics: m}
}

// Start subscribes the local hub to the relay. It is a no-op without one.
func (p *Publisher) Start(ctx context.Context) error {
	if p.relay == nil {
		return nil
	}
	if err := p.relay.Subscribe(ctx, p.hub.Deliver); err != nil {
		return fmt.Errorf("realtime: subscribing hub to relay: %w", err)
	}
	return nil
}

// Emit encodes and sends one event. A relay publish failure falls back to
// local delivery so clients on this instance still see the event.
func (p *Publisher) Emit(ctx context.Context, event string, payload any) {
	msg, err := encodeEnvelope(event, payload, time.Now())
	if err != nil {
		p.logger.Error("dropping push event", slog.String("event", event), slog.Any("error", err))
		return
	}
	p.metrics.IncBroadcast(event)

	if p.relay == nil {
		p.hub.Deliver(msg)
		return
	}

	if err := p.relay.Publish(ctx, msg); err != nil {
		p.logger.Warn("relay publish failed, delivering locally",
			slog.String("event", event),
			slog.Any("error", err),
		)
		p.hub.Deliver(msg)
	}
}

// Close releases the relay connection, if any.
func (p *Publisher) Close() error {
	if p.relay == nil {
		return nil
	}
	return p.relay.Close()
}
