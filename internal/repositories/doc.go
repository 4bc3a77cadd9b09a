// Package repositories implements the snapshot cache.
//
// A [SnapshotStore] keeps the last fetched [models.Snapshot] per username. Stores are versioned: a snapshot written
// under another cache version is reported as a miss and dropped, so a schema change never serves stale data.
//
// Key Implementations:
//   - [SQLiteSnapshotStore] : default, one row per username in the local database
//   - [RedisSnapshotStore] : JSON values with a TTL, plus a hash index for listing
//   - [MemcacheSnapshotStore] : JSON values with a TTL, plus an index item for listing
//   - [NoopStore] : backend "none", every lookup misses
//
// [CachedLoader] puts a store in front of the fetch pipeline.
package repositories
