package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
)

// SQLiteSnapshotStore implements [SnapshotStore] on the snapshots table.
type SQLiteSnapshotStore struct {
	db      *sql.DB
	version int
	metrics *storeMetrics
}

// NewSQLiteSnapshotStore creates a store on a migrated database.
func NewSQLiteSnapshotStore(db *sql.DB, version int, reg prometheus.Registerer) *SQLiteSnapshotStore {
	return &SQLiteSnapshotStore{db: db, version: version, metrics: newStoreMetrics(reg, shared.BackendSQLite)}
}

func (r *SQLiteSnapshotStore) Backend() string { return shared.BackendSQLite }

// Close closes the underlying database.
func (r *SQLiteSnapshotStore) Close() error { return r.db.Close() }

// Get loads the snapshot for username; rows from another cache version are deleted and reported as a miss.
func (r *SQLiteSnapshotStore) Get(ctx context.Context, username string) (*models.Snapshot, error) {
	query := `
		SELECT id, username, version, fetched_at, profile, lists
		FROM snapshots
		WHERE username = ?
	`

	var (
		snapshot models.Snapshot
		profile  string
		lists    string
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&snapshot.ID, &snapshot.Username, &snapshot.Version, &snapshot.FetchTimestamp, &profile, &lists,
	)
	if err == sql.ErrNoRows {
		r.metrics.miss()
		return nil, missing(username)
	}
	if err != nil {
		r.metrics.failed("get")
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	if err := checkVersion(&snapshot, r.version); err != nil {
		r.metrics.miss()
		if delErr := r.Delete(ctx, username); delErr != nil && !errors.Is(delErr, shared.ErrCacheMiss) {
			return nil, delErr
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(profile), &snapshot.Profile); err != nil {
		r.metrics.failed("decode")
		return nil, fmt.Errorf("%w: profile: %v", shared.ErrInvalidEntry, err)
	}
	if err := json.Unmarshal([]byte(lists), &snapshot.Lists); err != nil {
		r.metrics.failed("decode")
		return nil, fmt.Errorf("%w: lists: %v", shared.ErrInvalidEntry, err)
	}

	r.metrics.hit()
	return &snapshot, nil
}

// Put inserts or replaces the snapshot for its username.
func (r *SQLiteSnapshotStore) Put(ctx context.Context, snapshot *models.Snapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	if snapshot.ID == "" {
		snapshot.ID = shared.GenerateID()
	}

	profile, err := json.Marshal(snapshot.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	lists, err := json.Marshal(snapshot.Lists)
	if err != nil {
		return fmt.Errorf("failed to encode lists: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, username, user_id, version, fetched_at, profile, lists, entry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			id = excluded.id,
			user_id = excluded.user_id,
			version = excluded.version,
			fetched_at = excluded.fetched_at,
			profile = excluded.profile,
			lists = excluded.lists,
			entry_count = excluded.entry_count,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, query,
		snapshot.ID, snapshot.Username, snapshot.Profile.ID, snapshot.Version, snapshot.FetchTimestamp.UTC(),
		string(profile), string(lists), snapshot.Lists.Count(), now, now,
	)
	if err != nil {
		r.metrics.failed("put")
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot for username.
func (r *SQLiteSnapshotStore) Delete(ctx context.Context, username string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM snapshots WHERE username = ?", username)
	if err != nil {
		r.metrics.failed("delete")
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return missing(username)
	}
	return nil
}

// List returns every stored snapshot, most recently fetched first.
func (r *SQLiteSnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	query := `
		SELECT username, user_id, version, fetched_at, entry_count
		FROM snapshots
		ORDER BY fetched_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.metrics.failed("list")
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Username, &info.UserID, &info.Version, &info.FetchTimestamp, &info.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return infos, nil
}

// Clear deletes every snapshot.
func (r *SQLiteSnapshotStore) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM snapshots"); err != nil {
		r.metrics.failed("clear")
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}
