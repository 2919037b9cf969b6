package pkg

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func TestDistributedLimiter_Unlimited(t *testing.T) {
	limiter := NewDistributedLimiter(nil, "checkout", 0, 0, time.Second, zap.NewNop())

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(context.Background()))
	}
}

func TestDistributedLimiter_LocalBurst(t *testing.T) {
	limiter := NewDistributedLimiter(nil, "checkout", 1, 3, time.Second, zap.NewNop())

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow(context.Background()) {
			allowed++
		}
	}
	// The bucket starts full, so the burst passes and the rest is refused within the same instant.
	assert.Equal(t, 3, allowed)
}

func startRedis(t *testing.T) *redis.Client {
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

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, mapped.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestDistributedLimiter_Redis(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("steady traffic under the rate keeps passing", func(t *testing.T) {
		key := "checkout:steady"
		limiter := NewDistributedLimiter(client, key, 10, 3, time.Second, zap.NewNop())

		for i := 0; i < 8; i++ {
			assert.True(t, limiter.Allow(ctx), "request %d", i)
			time.Sleep(300 * time.Millisecond)
		}

		ttl, err := client.PTTL(ctx, key).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Second)
	})

	t.Run("cap is shared across replicas and resets with the window", func(t *testing.T) {
		key := "checkout:shared"
		a := NewDistributedLimiter(client, key, 4, 10, time.Second, zap.NewNop())
		b := NewDistributedLimiter(client, key, 4, 10, time.Second, zap.NewNop())

		allowed := 0
		for i := 0; i < 4; i++ {
			if a.Allow(ctx) {
				allowed++
			}
			if b.Allow(ctx) {
				allowed++
			}
		}
		assert.Equal(t, 4, allowed)

		// Rejections are rolled back, the counter holds only admitted requests.
		count, err := client.Get(ctx, key).Int64()
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)

		time.Sleep(1100 * time.Millisecond)
		assert.True(t, a.Allow(ctx))
	})
}

func TestWindowLimit(t *testing.T) {
	assert.Equal(t, int64(10), windowLimit(10, time.Second))
	assert.Equal(t, int64(20), windowLimit(10, 2*time.Second))
	assert.Equal(t, int64(1), windowLimit(1, 100*time.Millisecond))
}
