package repositories

import (
	"context"
	"fmt"
	"sort"

	"github.com/desertthunder/mustx/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// NewStore opens the store selected by cfg.Cache.Backend. Callers own the returned store and must Close it.
func NewStore(ctx context.Context, cfg *shared.Config, reg prometheus.Registerer) (SnapshotStore, error) {
	version := cfg.Cache.Version

	switch cfg.Cache.Backend {
	case shared.BackendSQLite, "":
		db, err := shared.OpenMigratedDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot database: %w", err)
		}
		return NewSQLiteSnapshotStore(db, version, reg), nil

	case shared.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: redis at %s: %v", shared.ErrServiceUnavailable, cfg.Redis.Addr, err)
		}
		return NewRedisSnapshotStore(client, version, cfg.Redis.TTL.Duration, reg), nil

	case shared.BackendMemcache:
		store := NewMemcacheSnapshotStore(cfg.Memcache.Addr, version, cfg.Memcache.TTL.Duration, cfg.Memcache.MaxItemSize, reg)
		if err := store.Ping(); err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: memcached at %s: %v", shared.ErrServiceUnavailable, cfg.Memcache.Addr, err)
		}
		return store, nil

	case shared.BackendNone:
		return NoopStore{}, nil

	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, cfg.Cache.Backend)
	}
}

func sortInfos(infos []SnapshotInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].FetchTimestamp.Equal(infos[j].FetchTimestamp) {
			return infos[i].Username < infos[j].Username
		}
		return infos[i].FetchTimestamp.After(infos[j].FetchTimestamp)
	})
}
