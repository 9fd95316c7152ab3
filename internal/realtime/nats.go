package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sakif/heapoverflow/internal/config"
)

// NATSRelay fans envelopes out over a NATS subject. Every instance holds a
// plain (non-queue) subscription, so each one receives every message.
type NATSRelay struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
	logger  *slog.Logger
}

var _ Relay = (*NATSRelay)(nil)

func NewNATSRelay(cfg config.RelayConfig, logger *slog.Logger) (*NATSRelay, error) {
	opts := []nats.Option{
		nats.Name("heapoverflow"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("disconnected from NATS", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.Timeout(10 * time.Second),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("realtime: connecting to NATS at %s: %w", cfg.NATSURL, err)
	}

	return &NATSRelay{conn: conn, subject: cfg.Topic, logger: logger}, nil
}

func (r *NATSRelay) Publish(_ context.Context, msg []byte) error {
	return r.conn.Publish(r.subject, msg)
}

func (r *NATSRelay) Subscribe(_ context.Context, deliver func([]byte)) error {
	sub, err := r.conn.Subscribe(r.subject, func(m *nats.Msg) {
		deliver(m.Data)
	})
	if err != nil {
		return fmt.Errorf("realtime: subscribing to %s: %w", r.subject, err)
	}
	// Flush makes sure the server has registered the subscription before we
	// report it active.
	if err := r.conn.Flush(); err != nil {
		return fmt.Errorf("realtime: flushing NATS subscription: %w", err)
	}
	r.sub = sub
	r.logger.Info("NATS relay subscribed", slog.String("subject", r.subject))
	return nil
}

func (r *NATSRelay) Close() error {
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			r.logger.Warn("NATS unsubscribe failed", slog.Any("error", err))
		}
	}
	r.conn.Close()
	return nil
}
