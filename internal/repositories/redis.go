package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "mustx:snapshot:"
	redisIndexKey  = "mustx:snapshots"
)

// RedisSnapshotStore implements [SnapshotStore] with one JSON value per username and a hash of [SnapshotInfo]
// for listing.
type RedisSnapshotStore struct {
	client  *redis.Client
	version int
	ttl     time.Duration
	metrics *storeMetrics
}

// NewRedisSnapshotStore creates a store on client. A zero ttl keeps values until deleted.
func NewRedisSnapshotStore(client *redis.Client, version int, ttl time.Duration, reg prometheus.Registerer) *RedisSnapshotStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisSnapshotStore{client: client, version: version, ttl: ttl, metrics: newStoreMetrics(reg, shared.BackendRedis)}
}

func (r *RedisSnapshotStore) Backend() string { return shared.BackendRedis }

func (r *RedisSnapshotStore) Close() error { return r.client.Close() }

// Get retrieves the snapshot for username.
func (r *RedisSnapshotStore) Get(ctx context.Context, username string) (*models.Snapshot, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+username).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.metrics.miss()
			return nil, missing(username)
		}
		r.metrics.failed("get")
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		r.metrics.failed("decode")
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntry, err)
	}

	if err := checkVersion(&snapshot, r.version); err != nil {
		r.metrics.miss()
		_ = r.Delete(ctx, username)
		return nil, err
	}

	r.metrics.hit()
	return &snapshot, nil
}

// Put stores the snapshot and its index entry.
func (r *RedisSnapshotStore) Put(ctx context.Context, snapshot *models.Snapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	info, err := json.Marshal(InfoOf(snapshot))
	if err != nil {
		return fmt.Errorf("marshal snapshot info: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+snapshot.Username, data, r.ttl)
		pipe.HSet(ctx, redisIndexKey, snapshot.Username, info)
		return nil
	})
	if err != nil {
		r.metrics.failed("put")
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the snapshot for username.
func (r *RedisSnapshotStore) Delete(ctx context.Context, username string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, redisKeyPrefix+username)
		pipe.HDel(ctx, redisIndexKey, username)
		return nil
	})
	if err != nil {
		r.metrics.failed("delete")
		return fmt.Errorf("redis del: %w", err)
	}
	if del.Val() == 0 {
		return missing(username)
	}
	return nil
}

// List reads the index, dropping entries whose snapshot has expired.
func (r *RedisSnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	entries, err := r.client.HGetAll(ctx, redisIndexKey).Result()
	if err != nil {
		r.metrics.failed("list")
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	infos := make([]SnapshotInfo, 0, len(entries))
	for username, raw := range entries {
		exists, err := r.client.Exists(ctx, redisKeyPrefix+username).Result()
		if err != nil {
			return nil, fmt.Errorf("redis exists: %w", err)
		}
		if exists == 0 {
			r.client.HDel(ctx, redisIndexKey, username)
			continue
		}

		var info SnapshotInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			return nil, fmt.Errorf("%w: index entry for @%s: %v", shared.ErrInvalidEntry, username, err)
		}
		infos = append(infos, info)
	}
	sortInfos(infos)
	return infos, nil
}

// Clear deletes every snapshot listed in the index, then the index itself.
func (r *RedisSnapshotStore) Clear(ctx context.Context) error {
	usernames, err := r.client.HKeys(ctx, redisIndexKey).Result()
	if err != nil {
		r.metrics.failed("clear")
		return fmt.Errorf("redis hkeys: %w", err)
	}

	keys := make([]string, 0, len(usernames)+1)
	for _, u := range usernames {
		keys = append(keys, redisKeyPrefix+u)
	}
	keys = append(keys, redisIndexKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.metrics.failed("clear")
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
