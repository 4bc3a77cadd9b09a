//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/desertthunder/mustx/internal/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) *redis.Client {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisSnapshotStore_Integration(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t)
	store := NewRedisSnapshotStore(client, testVersion, time.Minute, nil)
	defer store.Close()

	fetchedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, testSnapshot("alice", fetchedAt)))
	require.NoError(t, store.Put(ctx, testSnapshot("bob", fetchedAt.Add(time.Minute))))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	ttl, err := client.TTL(ctx, redisKeyPrefix+"alice").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "bob", infos[0].Username)

	// an expired snapshot disappears from the listing
	require.NoError(t, client.Del(ctx, redisKeyPrefix+"bob").Err())
	infos, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	stale := NewRedisSnapshotStore(client, testVersion+1, time.Minute, nil)
	_, err = stale.Get(ctx, "alice")
	assert.ErrorIs(t, err, shared.ErrCacheMiss)
	_, err = store.Get(ctx, "alice")
	assert.ErrorIs(t, err, shared.ErrCacheMiss)

	require.NoError(t, store.Put(ctx, testSnapshot("carol", fetchedAt)))
	require.NoError(t, store.Clear(ctx))
	infos, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)
}
