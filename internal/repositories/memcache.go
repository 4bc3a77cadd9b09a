package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	memcacheKeyPrefix = "mustx:snapshot:"
	memcacheIndexKey  = "mustx:snapshots"

	// DefaultMemcacheItemSize is memcached's default item size limit (-I 1m).
	DefaultMemcacheItemSize = 1 << 20
)

// MemcacheSnapshotStore implements [SnapshotStore] on memcached.
//
// memcached cannot enumerate keys, so an index item holds the [SnapshotInfo] of every stored snapshot. Index
// updates are read-modify-write and can lose entries under concurrent writers; List only uses it for display.
// Snapshots whose encoded size exceeds maxItemSize are refused by Put with [shared.ErrInvalidEntry].
type MemcacheSnapshotStore struct {
	client      *memcache.Client
	version     int
	ttl         time.Duration
	maxItemSize int
	metrics     *storeMetrics
}

// NewMemcacheSnapshotStore creates a store for the server at addr. A maxItemSize of 0 uses
// [DefaultMemcacheItemSize].
func NewMemcacheSnapshotStore(addr string, version int, ttl time.Duration, maxItemSize int, reg prometheus.Registerer) *MemcacheSnapshotStore {
	if maxItemSize <= 0 {
		maxItemSize = DefaultMemcacheItemSize
	}
	return &MemcacheSnapshotStore{
		client:      memcache.New(addr),
		version:     version,
		ttl:         ttl,
		maxItemSize: maxItemSize,
		metrics:     newStoreMetrics(reg, shared.BackendMemcache),
	}
}

func (m *MemcacheSnapshotStore) Backend() string { return shared.BackendMemcache }

func (m *MemcacheSnapshotStore) Close() error { return m.client.Close() }

// Ping checks that the server answers.
func (m *MemcacheSnapshotStore) Ping() error { return m.client.Ping() }

// Get retrieves the snapshot for username.
func (m *MemcacheSnapshotStore) Get(ctx context.Context, username string) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := m.client.Get(memcacheKeyPrefix + username)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			m.metrics.miss()
			return nil, missing(username)
		}
		m.metrics.failed("get")
		return nil, fmt.Errorf("memcache get: %w", err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(item.Value, &snapshot); err != nil {
		m.metrics.failed("decode")
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntry, err)
	}

	if err := checkVersion(&snapshot, m.version); err != nil {
		m.metrics.miss()
		_ = m.Delete(ctx, username)
		return nil, err
	}

	m.metrics.hit()
	return &snapshot, nil
}

// Put stores the snapshot and records it in the index.
func (m *MemcacheSnapshotStore) Put(ctx context.Context, snapshot *models.Snapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := memcacheKeyPrefix + snapshot.Username
	if size := len(key) + len(data); size > m.maxItemSize {
		m.metrics.failed("put")
		return fmt.Errorf("%w: snapshot for @%s is %s, over the memcached item limit of %s (memcache.max_item_size)",
			shared.ErrInvalidEntry, snapshot.Username, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(m.maxItemSize)))
	}

	if err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      data,
		Expiration: m.expiration(),
	}); err != nil {
		m.metrics.failed("put")
		return fmt.Errorf("memcache set: %w", err)
	}

	return m.updateIndex(func(index map[string]SnapshotInfo) {
		index[snapshot.Username] = InfoOf(snapshot)
	})
}

// Delete removes the snapshot for username.
func (m *MemcacheSnapshotStore) Delete(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := m.client.Delete(memcacheKeyPrefix + username)
	if indexErr := m.updateIndex(func(index map[string]SnapshotInfo) { delete(index, username) }); indexErr != nil {
		return indexErr
	}
	if errors.Is(err, memcache.ErrCacheMiss) {
		return missing(username)
	}
	if err != nil {
		m.metrics.failed("delete")
		return fmt.Errorf("memcache delete: %w", err)
	}
	return nil
}

// List returns the indexed snapshots that are still present.
func (m *MemcacheSnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index, err := m.readIndex()
	if err != nil {
		return nil, err
	}
	if len(index) == 0 {
		return []SnapshotInfo{}, nil
	}

	keys := make([]string, 0, len(index))
	for username := range index {
		keys = append(keys, memcacheKeyPrefix+username)
	}
	items, err := m.client.GetMulti(keys)
	if err != nil {
		m.metrics.failed("list")
		return nil, fmt.Errorf("memcache get multi: %w", err)
	}

	infos := make([]SnapshotInfo, 0, len(items))
	for username, info := range index {
		if _, ok := items[memcacheKeyPrefix+username]; ok {
			infos = append(infos, info)
		}
	}
	sortInfos(infos)
	return infos, nil
}

// Clear deletes every indexed snapshot and the index.
func (m *MemcacheSnapshotStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	index, err := m.readIndex()
	if err != nil {
		return err
	}
	for username := range index {
		if err := m.client.Delete(memcacheKeyPrefix + username); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			m.metrics.failed("clear")
			return fmt.Errorf("memcache delete: %w", err)
		}
	}
	if err := m.client.Delete(memcacheIndexKey); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("memcache delete: %w", err)
	}
	return nil
}

func (m *MemcacheSnapshotStore) readIndex() (map[string]SnapshotInfo, error) {
	index := map[string]SnapshotInfo{}
	item, err := m.client.Get(memcacheIndexKey)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memcache get: %w", err)
	}
	if err := json.Unmarshal(item.Value, &index); err != nil {
		return nil, fmt.Errorf("%w: snapshot index: %v", shared.ErrInvalidEntry, err)
	}
	return index, nil
}

func (m *MemcacheSnapshotStore) updateIndex(fn func(map[string]SnapshotInfo)) error {
	index, err := m.readIndex()
	if err != nil {
		return err
	}
	fn(index)

	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshal snapshot index: %w", err)
	}
	if err := m.client.Set(&memcache.Item{Key: memcacheIndexKey, Value: data}); err != nil {
		m.metrics.failed("index")
		return fmt.Errorf("memcache set: %w", err)
	}
	return nil
}

func (m *MemcacheSnapshotStore) expiration() int32 {
	if m.ttl <= 0 {
		return 0
	}
	// memcached treats values above 30 days as absolute unix times
	const maxRelative = 30 * 24 * time.Hour
	if m.ttl > maxRelative {
		return int32(time.Now().Add(m.ttl).Unix())
	}
	return int32(m.ttl.Seconds())
}
