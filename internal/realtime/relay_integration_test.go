package realtime

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sakif/heapoverflow/internal/config"
)

// startContainer runs image for the duration of the test and returns
// host:port for the exposed port. Skipped unless GO_TEST_INTEGRATION is set.
func startContainer(t *testing.T, image, port, readyLog string) string {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("set GO_TEST_INTEGRATION=1 to run relay integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
			WaitingFor:   wait.ForLog(readyLog).WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func assertRoundTrip(t *testing.T, relay Relay) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan []byte, 1)
	require.NoError(t, relay.Subscribe(ctx, func(msg []byte) { got <- msg }))

	require.NoError(t, relay.Publish(ctx, []byte(`{"event":"chatUpdate"}`)))

	select {
	case msg := <-got:
		assert.JSONEq(t, `{"event":"chatUpdate"}`, string(msg))
	case <-ctx.Done():
		t.Fatal("relay did not deliver the published message")
	}
}

func TestNATSRelay_RoundTrip(t *testing.T) {
	addr := startContainer(t, "nats:2.10", "4222/tcp", "Server is ready")

	relay, err := NewNATSRelay(config.RelayConfig{
		NATSURL:       "nats://" + addr,
		Topic:         "heapoverflow.test",
		MaxReconnects: 1,
		ReconnectWait: time.Second,
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = relay.Close() })

	assertRoundTrip(t, relay)
}

func TestRedisRelay_RoundTrip(t *testing.T) {
	addr := startContainer(t, "redis:7-alpine", "6379/tcp", "Ready to accept connections")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	relay, err := NewRedisRelay(ctx, config.RelayConfig{RedisAddr: addr, Topic: "heapoverflow.test"}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = relay.Close() })

	assertRoundTrip(t, relay)
}
