package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/services"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBatchSize  = 100
	DefaultBatchDelay = 100 * time.Millisecond
)

// FetchOpts configures a [FetchEngine].
type FetchOpts struct {
	BatchSize    int           // Product ids per request (default: 100)
	BatchDelay   time.Duration // Pause after every response before the next batch (default: 100ms)
	PageFallback bool          // Scrape the profile page when the profile API fails
	Version      int           // Stamped on produced snapshots
	Logger       *log.Logger
	Registerer   prometheus.Registerer
	Now          func() time.Time
}

// Batch is one products request of a [FetchPlan].
type Batch struct {
	List  models.ListKey
	Index int // zero-based index within List
	IDs   []int64
}

// FetchPlan lists every batch in request order.
type FetchPlan struct {
	Batches []Batch
	counts  map[models.ListKey]int
	ids     map[models.ListKey]int
}

// Total returns the number of batches.
func (p FetchPlan) Total() int { return len(p.Batches) }

// ListBatches returns the number of batches planned for key.
func (p FetchPlan) ListBatches(key models.ListKey) int { return p.counts[key] }

// ListSize returns the number of ids planned for key.
func (p FetchPlan) ListSize(key models.ListKey) int { return p.ids[key] }

// FetchResult is the output of [FetchEngine.FetchLists].
type FetchResult struct {
	Lists    models.UserProductLists
	Requests int // products requests made, enrichment included
	Enriched int // shows entries whose review was backfilled
}

// FetchEngine runs the fetch pipeline against a [services.Service].
//
// Requests are strictly sequential. Every request after the first waits BatchDelay counted from the moment the
// previous response arrived, profile lookup included.
type FetchEngine struct {
	client       services.Service
	pace         *pacer
	batchSize    int
	pageFallback bool
	version      int
	logger       *log.Logger
	metrics      *pipelineMetrics
	now          func() time.Time
}

// NewFetchEngine creates a new FetchEngine; zero-valued options use the defaults.
func NewFetchEngine(client services.Service, opts FetchOpts) *FetchEngine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &FetchEngine{
		client:       client,
		pace:         newPacer(opts.BatchDelay),
		batchSize:    opts.BatchSize,
		pageFallback: opts.PageFallback,
		version:      opts.Version,
		logger:       opts.Logger,
		metrics:      newPipelineMetrics(opts.Registerer),
		now:          opts.Now,
	}
}

// Plan chunks the profile's lists into batches, in [models.ListKeys] order.
func (e *FetchEngine) Plan(profile *models.Profile) FetchPlan {
	plan := FetchPlan{counts: map[models.ListKey]int{}, ids: map[models.ListKey]int{}}
	for _, key := range models.ListKeys {
		ids := profile.Lists[key]
		plan.ids[key] = len(ids)
		for i, chunk := range chunk(ids, e.batchSize) {
			plan.Batches = append(plan.Batches, Batch{List: key, Index: i, IDs: chunk})
			plan.counts[key]++
		}
	}
	return plan
}

// Run fetches the complete snapshot for username.
func (e *FetchEngine) Run(ctx context.Context, username string, progress chan<- ProgressUpdate) (*models.Snapshot, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: MustApp client not initialized", shared.ErrServiceUnavailable)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is empty", shared.ErrInvalidInput)
	}

	logger := shared.WithLogger(e.logger, "username", username)
	start := e.now()

	profile, err := e.fetchProfile(ctx, username, progress)
	if err != nil {
		e.metrics.run("error")
		return nil, err
	}
	if profile.IsPrivate {
		e.metrics.run("private")
		return nil, fmt.Errorf("%w: @%s", shared.ErrPrivateProfile, username)
	}

	result, err := e.FetchLists(ctx, profile, progress)
	if err != nil {
		e.metrics.run("error")
		return nil, err
	}

	snapshot := &models.Snapshot{
		ID:             shared.GenerateID(),
		Username:       username,
		Version:        e.version,
		FetchTimestamp: e.now().UTC(),
		Profile:        *profile,
		Lists:          result.Lists,
	}

	e.metrics.run("ok")
	logger.Info("fetched lists", "entries", snapshot.Lists.Count(), "requests", result.Requests, "elapsed", e.now().Sub(start))
	SendProgress(progress, doneUpdate(snapshot))
	return snapshot, nil
}

// fetchProfile resolves the profile, falling back to the public page for errors other than an unknown user.
func (e *FetchEngine) fetchProfile(ctx context.Context, username string, progress chan<- ProgressUpdate) (*models.Profile, error) {
	SendProgress(progress, fetchProfileUpdate(username))

	if err := e.pace.wait(ctx); err != nil {
		return nil, err
	}

	profile, err := e.client.GetProfile(ctx, username)
	e.pace.done(time.Now())
	if err == nil {
		return profile, nil
	}
	if !e.pageFallback || errors.Is(err, shared.ErrUserNotFound) || ctx.Err() != nil {
		return nil, err
	}

	e.logger.Warn("profile API failed, trying profile page", "username", username, "error", err)
	SendProgress(progress, fetchProfilePageUpdate(username, err))

	if waitErr := e.pace.wait(ctx); waitErr != nil {
		return nil, waitErr
	}
	profile, pageErr := e.client.GetProfileFromPage(ctx, username)
	e.pace.done(time.Now())
	if pageErr != nil {
		return nil, fmt.Errorf("%w (profile page: %v)", err, pageErr)
	}
	return profile, nil
}

// FetchLists fetches every planned batch in order, then backfills missing show reviews.
//
// The first failing request aborts the run; no later batch is sent.
func (e *FetchEngine) FetchLists(ctx context.Context, profile *models.Profile, progress chan<- ProgressUpdate) (*FetchResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: MustApp client not initialized", shared.ErrServiceUnavailable)
	}

	plan := e.Plan(profile)
	result := &FetchResult{Lists: make(models.UserProductLists, len(models.ListKeys))}
	for _, key := range models.ListKeys {
		result.Lists[key] = make(models.UserProductList, 0, plan.ListSize(key))
	}

	total := plan.Total()
	for i, batch := range plan.Batches {
		SendProgress(progress, fetchBatchUpdate(i+1, total, batch.List, batch.Index, plan.ListBatches(batch.List)))

		entries, err := e.fetchBatch(ctx, profile.ID, batch.IDs, services.DefaultEmbed...)
		result.Requests++
		if err != nil {
			e.logger.Error("batch failed", "list", batch.List, "batch", batch.Index, "error", err)
			return nil, fmt.Errorf("failed to fetch %s batch %d: %w", batch.List, batch.Index+1, err)
		}

		result.Lists[batch.List] = append(result.Lists[batch.List], entries...)
		e.metrics.fetched(batch.List, len(entries))

		SendProgress(progress, batchFetchedUpdate(i+1, total, BatchProgress{
			List:    batch.List,
			Batch:   batch.Index,
			Batches: plan.ListBatches(batch.List),
			Entries: entries,
			Loaded:  len(result.Lists[batch.List]),
			Expect:  plan.ListSize(batch.List),
		}))
	}

	enriched, requests, err := e.enrichShows(ctx, profile.ID, result.Lists[models.ListShows], progress)
	result.Requests += requests
	if err != nil {
		return nil, err
	}
	result.Enriched = enriched

	SendProgress(progress, assembleUpdate(result.Lists))
	return result, nil
}

// enrichShows re-requests shows entries that are marked reviewed but came back without a review body, and merges
// rating and review back into list by product id.
func (e *FetchEngine) enrichShows(ctx context.Context, userID int64, list models.UserProductList, progress chan<- ProgressUpdate) (int, int, error) {
	var ids []int64
	index := map[int64]int{}
	for i := range list {
		if list[i].NeedsReview() {
			id := list[i].ProductID()
			index[id] = i
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}

	batches := chunk(ids, e.batchSize)
	enriched, requests := 0, 0
	for i, batch := range batches {
		SendProgress(progress, enrichShowsUpdate(i+1, len(batches), len(batch)))

		infos, err := e.fetchBatch(ctx, userID, batch, "review")
		requests++
		if err != nil {
			return enriched, requests, fmt.Errorf("failed to fetch series reviews: %w", err)
		}

		for _, info := range infos {
			pos, ok := index[info.ProductID()]
			if !ok {
				continue
			}
			target := &list[pos].UserProductInfo
			if info.UserProductInfo.Rate != nil {
				target.Rate = info.UserProductInfo.Rate
			}
			if info.UserProductInfo.Review != nil {
				target.Review = info.UserProductInfo.Review
				enriched++
			}
		}
	}

	e.logger.Debug("enriched series", "requested", len(ids), "enriched", enriched)
	return enriched, requests, nil
}

func (e *FetchEngine) fetchBatch(ctx context.Context, userID int64, ids []int64, embed ...string) (models.UserProductList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.pace.wait(ctx); err != nil {
		return nil, err
	}
	entries, err := e.client.GetUserProducts(ctx, userID, ids, embed...)
	e.pace.done(time.Now())
	return entries, err
}

func chunk(ids []int64, size int) [][]int64 {
	var out [][]int64
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
