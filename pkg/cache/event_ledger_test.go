package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedisForTests spins up a Redis container and returns its host:port.
func startRedisForTests(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rc.Terminate(context.Background())
	})

	host, err := rc.Host(ctx)
	require.NoError(t, err)
	mapped, err := rc.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func TestRedisEventLedger(t *testing.T) {
	addr := startRedisForTests(t)
	ctx := context.Background()

	client, closer, err := New(ctx, Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(closer)

	ledger := NewRedisEventLedger(client, time.Minute)

	seen, err := ledger.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, ledger.Record(ctx, "evt_1"))
	// Recording twice is harmless.
	require.NoError(t, ledger.Record(ctx, "evt_1"))

	seen, err = ledger.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	ttl, err := client.TTL(ctx, eventKeyPrefix+"evt_1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
