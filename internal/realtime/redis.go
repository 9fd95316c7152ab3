package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/heapoverflow/internal/config"
)

// RedisRelay fans envelopes out over a Redis pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
	done    chan struct{}
	logger  *slog.Logger
}

var _ Relay = (*RedisRelay)(nil)

// NewRedisRelay connects and pings the server.
func NewRedisRelay(ctx context.Context, cfg config.RelayConfig, logger *slog.Logger) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("realtime: pinging redis at %s: %w", cfg.RedisAddr, err)
	}
	return &RedisRelay{client: client, channel: cfg.Topic, logger: logger}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, msg []byte) error {
	return r.client.Publish(ctx, r.channel, msg).Err()
}

// Subscribe waits for the subscription confirmation, then pumps messages to
// deliver on a background goroutine until Close.
func (r *RedisRelay) Subscribe(ctx context.Context, deliver func([]byte)) error {
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("realtime: subscribing to redis channel %s: %w", r.channel, err)
	}

	r.pubsub = ps
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		for m := range ps.Channel() {
			deliver([]byte(m.Payload))
		}
	}()

	r.logger.Info("redis relay subscribed", slog.String("channel", r.channel))
	return nil
}

func (r *RedisRelay) Close() error {
	if r.pubsub != nil {
		_ = r.pubsub.Close()
		<-r.done
	}
	return r.client.Close()
}
