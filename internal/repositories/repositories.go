package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SnapshotStore persists the latest snapshot per username.
//
// Get returns an error wrapping [shared.ErrCacheMiss] when nothing usable is stored, and one wrapping
// [shared.ErrInvalidEntry] when the stored value cannot be decoded.
type SnapshotStore interface {
	Get(ctx context.Context, username string) (*models.Snapshot, error)
	Put(ctx context.Context, snapshot *models.Snapshot) error
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]SnapshotInfo, error)
	Clear(ctx context.Context) error
	Backend() string
	Close() error
}

// SnapshotInfo summarises a stored snapshot without its lists.
type SnapshotInfo struct {
	Username       string    `json:"username"`
	UserID         int64     `json:"userId"`
	Version        int       `json:"version"`
	FetchTimestamp time.Time `json:"fetchTimestamp"`
	EntryCount     int       `json:"entryCount"`
}

// InfoOf builds the [SnapshotInfo] of s.
func InfoOf(s *models.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		Username:       s.Username,
		UserID:         s.Profile.ID,
		Version:        s.Version,
		FetchTimestamp: s.FetchTimestamp,
		EntryCount:     s.Lists.Count(),
	}
}

// Stale reports whether the snapshot was written under another cache version.
func (i SnapshotInfo) Stale(version int) bool {
	return i.Version != version
}

func checkVersion(s *models.Snapshot, version int) error {
	if s.Version != version {
		return fmt.Errorf("%w: @%s cached with version %d, expected %d", shared.ErrCacheMiss, s.Username, s.Version, version)
	}
	return nil
}

func validateSnapshot(s *models.Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: snapshot is nil", shared.ErrInvalidInput)
	}
	if shared.IsBlank(s.Username) {
		return fmt.Errorf("%w: snapshot has no username", shared.ErrInvalidInput)
	}
	return nil
}

func missing(username string) error {
	return fmt.Errorf("%w: @%s", shared.ErrCacheMiss, username)
}

type storeMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors *prometheus.CounterVec
}

func newStoreMetrics(reg prometheus.Registerer, backend string) *storeMetrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"backend": backend}
	return &storeMetrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mustx_cache_hits_total",
			Help:        "Snapshot cache hits.",
			ConstLabels: labels,
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mustx_cache_misses_total",
			Help:        "Snapshot cache misses, version mismatches included.",
			ConstLabels: labels,
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "mustx_cache_errors_total",
			Help:        "Snapshot cache errors by operation.",
			ConstLabels: labels,
		}, []string{"op"}),
	}
}

func (m *storeMetrics) hit() { m.hits.Inc() }
func (m *storeMetrics) miss() { m.misses.Inc() }
func (m *storeMetrics) failed(op string) { m.errors.WithLabelValues(op).Inc() }
