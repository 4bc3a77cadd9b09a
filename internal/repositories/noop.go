package repositories

import (
	"context"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
)

// NoopStore is the "none" backend: nothing is stored and every Get misses.
type NoopStore struct{}

func (NoopStore) Backend() string { return shared.BackendNone }

func (NoopStore) Close() error { return nil }

func (NoopStore) Get(_ context.Context, username string) (*models.Snapshot, error) {
	return nil, missing(username)
}

func (NoopStore) Put(_ context.Context, snapshot *models.Snapshot) error {
	return validateSnapshot(snapshot)
}

func (NoopStore) Delete(_ context.Context, username string) error {
	return missing(username)
}

func (NoopStore) List(context.Context) ([]SnapshotInfo, error) {
	return []SnapshotInfo{}, nil
}

func (NoopStore) Clear(context.Context) error { return nil }
