package tasks

import (
	"fmt"

	"github.com/desertthunder/mustx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// BatchProgress is the [ProgressUpdate.Data] of [BatchFetched] updates.
type BatchProgress struct {
	List    models.ListKey
	Batch   int // zero-based index within the list
	Batches int
	Entries models.UserProductList
	Loaded  int // entries of this list fetched so far
	Expect  int // ids in this list
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchProfilePage
	FetchBatch
	BatchFetched
	EnrichShows
	Assemble
	CacheHit
	StoreSnapshot
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchProfilePage:
		return "fetch_profile_page"
	case FetchBatch:
		return "fetch_batch"
	case BatchFetched:
		return "batch_fetched"
	case EnrichShows:
		return "enrich_shows"
	case Assemble:
		return "assemble"
	case CacheHit:
		return "cache_hit"
	case StoreSnapshot:
		return "store_snapshot"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchProfileUpdate(username string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching profile @%s...", username),
	}
}

func fetchProfilePageUpdate(username string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfilePage,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Profile API failed (%v), reading @%s page...", err, username),
	}
}

func fetchBatchUpdate(step, total int, key models.ListKey, batch, batches int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s (batch %d of %d)...", step, total, key.Name(), batch+1, batches),
	}
}

func batchFetchedUpdate(step, total int, p BatchProgress) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchFetched,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d of %d", step, total, p.List.Name(), p.Loaded, p.Expect),
		Data:    p,
	}
}

func enrichShowsUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichShows,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching reviews for %d series...", step, total, count),
	}
}

func assembleUpdate(lists models.UserProductLists) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Assemble,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Assembled %d entries", lists.Count()),
	}
}

// CacheHitUpdate reports that a snapshot was served from the cache.
func CacheHitUpdate(s *models.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheHit,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded @%s from cache (%d entries)", s.Username, s.Lists.Count()),
		Data:    s,
	}
}

// StoreSnapshotUpdate reports that a snapshot is being written to the cache.
func StoreSnapshotUpdate(s *models.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreSnapshot,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Caching @%s...", s.Username),
	}
}

func doneUpdate(s *models.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d entries for @%s", s.Lists.Count(), s.Username),
		Data:    s,
	}
}

// SendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func SendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
