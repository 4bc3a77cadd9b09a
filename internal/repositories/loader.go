package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/desertthunder/mustx/internal/tasks"
)

// Fetcher produces fresh snapshots; implemented by [tasks.FetchEngine].
type Fetcher interface {
	Run(ctx context.Context, username string, progress chan<- tasks.ProgressUpdate) (*models.Snapshot, error)
}

// CachedLoader serves snapshots from a [SnapshotStore], fetching on a miss.
type CachedLoader struct {
	store   SnapshotStore
	fetcher Fetcher
	logger  *log.Logger
}

// NewCachedLoader creates a loader; a nil store behaves like [NoopStore].
func NewCachedLoader(store SnapshotStore, fetcher Fetcher, logger *log.Logger) *CachedLoader {
	if store == nil {
		store = NoopStore{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CachedLoader{store: store, fetcher: fetcher, logger: logger}
}

// Store returns the underlying store.
func (l *CachedLoader) Store() SnapshotStore { return l.store }

// Load returns the cached snapshot for username unless update is set or the cache misses, in which case the
// pipeline runs and its result is cached. Cache failures are logged and never fail the load.
func (l *CachedLoader) Load(ctx context.Context, username string, update bool, progress chan<- tasks.ProgressUpdate) (*models.Snapshot, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is empty", shared.ErrInvalidInput)
	}
	logger := shared.WithLogger(l.logger, "username", username, "backend", l.store.Backend())

	if !update {
		snapshot, err := l.store.Get(ctx, username)
		switch {
		case err == nil:
			logger.Debug("cache hit", "fetched_at", snapshot.FetchTimestamp)
			tasks.SendProgress(progress, tasks.CacheHitUpdate(snapshot))
			return snapshot, nil
		case errors.Is(err, shared.ErrCacheMiss):
			logger.Debug("cache miss", "reason", err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			logger.Warn("cache read failed, fetching", "error", err)
		}
	}

	if l.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", shared.ErrServiceUnavailable)
	}
	snapshot, err := l.fetcher.Run(ctx, username, progress)
	if err != nil {
		return nil, err
	}

	tasks.SendProgress(progress, tasks.StoreSnapshotUpdate(snapshot))
	if err := l.store.Put(ctx, snapshot); err != nil {
		logger.Error("failed to cache snapshot", "error", err)
	}
	return snapshot, nil
}
