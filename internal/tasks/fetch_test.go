package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/services"
	"github.com/desertthunder/mustx/internal/shared"
	tu "github.com/desertthunder/mustx/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestEngine(fake *tu.FakeMustApp, opts FetchOpts) *FetchEngine {
	client := services.NewMustAppClient(services.MustAppOpts{BaseURL: fake.URL()})
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	return NewFetchEngine(client, opts)
}

func seedProfile(fake *tu.FakeMustApp, want, watched, shows []int64) {
	fake.AddProfile(models.Profile{
		ID:  42,
		URI: "alice",
		Lists: map[models.ListKey][]int64{
			models.ListWant:    want,
			models.ListWatched: watched,
			models.ListShows:   shows,
		},
	})
	fake.SeedList(want)
	fake.SeedList(watched)
	fake.SeedList(shows)
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestPlan(t *testing.T) {
	e := NewFetchEngine(nil, FetchOpts{BatchSize: 2, Logger: shared.NewLogger(io.Discard)})
	plan := e.Plan(&models.Profile{Lists: map[models.ListKey][]int64{
		models.ListWant:  {1, 2, 3},
		models.ListShows: {4, 5},
	}})

	if plan.Total() != 3 {
		t.Fatalf("expected 3 batches, got %d", plan.Total())
	}

	expected := []Batch{
		{List: models.ListWant, Index: 0, IDs: []int64{1, 2}},
		{List: models.ListWant, Index: 1, IDs: []int64{3}},
		{List: models.ListShows, Index: 0, IDs: []int64{4, 5}},
	}
	for i, b := range plan.Batches {
		if b.List != expected[i].List || b.Index != expected[i].Index || len(b.IDs) != len(expected[i].IDs) {
			t.Errorf("batch %d: expected %+v, got %+v", i, expected[i], b)
		}
	}
	if plan.ListBatches(models.ListWatched) != 0 {
		t.Errorf("expected no watched batches, got %d", plan.ListBatches(models.ListWatched))
	}
	if plan.ListSize(models.ListWant) != 3 {
		t.Errorf("expected 3 want ids, got %d", plan.ListSize(models.ListWant))
	}
}

func TestFetchEngine(t *testing.T) {
	t.Run("Fetches Lists In Order", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		seedProfile(fake, tu.IDs(1, 5), tu.IDs(100, 2), tu.IDs(200, 3))

		engine := newTestEngine(fake, FetchOpts{BatchSize: 2, BatchDelay: time.Millisecond, Version: 11})
		snapshot, err := engine.Run(context.Background(), "alice", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if snapshot.Username != "alice" || snapshot.Version != 11 || snapshot.ID == "" {
			t.Errorf("unexpected snapshot header %+v", snapshot)
		}
		if snapshot.Profile.ID != 42 {
			t.Errorf("expected profile 42, got %d", snapshot.Profile.ID)
		}

		for key, want := range map[models.ListKey][]int64{
			models.ListWant:    tu.IDs(1, 5),
			models.ListWatched: tu.IDs(100, 2),
			models.ListShows:   tu.IDs(200, 3),
		} {
			list := snapshot.Lists[key]
			if len(list) != len(want) {
				t.Fatalf("%s: expected %d entries, got %d", key, len(want), len(list))
			}
			for i, id := range want {
				if list[i].ProductID() != id {
					t.Errorf("%s[%d]: expected %d, got %d", key, i, id, list[i].ProductID())
				}
			}
		}

		reqs := fake.ProductRequests()
		if len(reqs) != 3+1+2 {
			t.Fatalf("expected 6 product requests, got %d", len(reqs))
		}
		order := []int64{1, 3, 5, 100, 200, 202}
		for i, r := range reqs {
			if r.IDs[0] != order[i] {
				t.Errorf("request %d: expected first id %d, got %d", i, order[i], r.IDs[0])
			}
		}
	})

	t.Run("Waits Between Batches", func(t *testing.T) {
		delay := 40 * time.Millisecond
		latency := 60 * time.Millisecond
		slow := &slowService{latency: latency}
		engine := NewFetchEngine(slow, FetchOpts{BatchSize: 1, BatchDelay: delay, Logger: shared.NewLogger(io.Discard)})

		snapshot, err := engine.Run(context.Background(), "alice", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if review := snapshot.Lists[models.ListShows][0].UserProductInfo.Review; review == nil || review.Body != "Backfilled" {
			t.Errorf("expected the series review to be backfilled, got %+v", review)
		}

		calls := slow.Calls()
		// profile, 3 want batches, 1 shows batch, 1 review backfill
		if len(calls) != 6 {
			t.Fatalf("expected 6 calls, got %d", len(calls))
		}
		for i := 1; i < len(calls); i++ {
			gap := calls[i].start.Sub(calls[i-1].end)
			if gap < delay-5*time.Millisecond {
				t.Errorf("%s started %v after the previous response, expected at least %v", calls[i].name, gap, delay)
			}
		}
	})

	t.Run("First Request Is Not Delayed", func(t *testing.T) {
		slow := &slowService{}
		engine := NewFetchEngine(slow, FetchOpts{BatchDelay: time.Second, Logger: shared.NewLogger(io.Discard)})

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if _, err := engine.fetchProfile(ctx, "alice", nil); err != nil {
			t.Fatalf("expected the profile lookup to go out immediately, got %v", err)
		}
	})

	t.Run("Aborts On First Error", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		seedProfile(fake, tu.IDs(1, 4), tu.IDs(100, 2), nil)
		fake.FailCall(2, http.StatusInternalServerError)

		engine := newTestEngine(fake, FetchOpts{BatchSize: 1})
		_, err := engine.Run(context.Background(), "alice", nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}

		if n := len(fake.ProductRequests()); n != 2 {
			t.Errorf("expected batches after the failure to be skipped, got %d requests", n)
		}
	})

	t.Run("Unknown User", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		fake.AddPage("ghost", "<html></html>")

		engine := newTestEngine(fake, FetchOpts{PageFallback: true})
		_, err := engine.Run(context.Background(), "ghost", nil)
		if !errors.Is(err, shared.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		if n := len(fake.Requests()); n != 1 {
			t.Errorf("expected no page fallback for unknown users, got %d requests", n)
		}
	})

	t.Run("Private Profile", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		fake.AddProfile(models.Profile{ID: 1, URI: "shy", IsPrivate: true})

		engine := newTestEngine(fake, FetchOpts{})
		if _, err := engine.Run(context.Background(), "shy", nil); !errors.Is(err, shared.ErrPrivateProfile) {
			t.Errorf("expected ErrPrivateProfile, got %v", err)
		}
		if n := len(fake.ProductRequests()); n != 0 {
			t.Errorf("expected no product requests, got %d", n)
		}
	})

	t.Run("Blank Username", func(t *testing.T) {
		engine := NewFetchEngine(&stubService{}, FetchOpts{Logger: shared.NewLogger(io.Discard)})
		if _, err := engine.Run(context.Background(), " ", nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Nil Client", func(t *testing.T) {
		engine := NewFetchEngine(nil, FetchOpts{Logger: shared.NewLogger(io.Discard)})
		if _, err := engine.Run(context.Background(), "alice", nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		seedProfile(fake, tu.IDs(1, 10), nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		progress := make(chan ProgressUpdate, 100)
		go func() {
			for u := range progress {
				if u.Phase == BatchFetched {
					cancel()
				}
			}
		}()
		defer close(progress)

		engine := newTestEngine(fake, FetchOpts{BatchSize: 1, BatchDelay: 20 * time.Millisecond})
		_, err := engine.Run(ctx, "alice", progress)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if n := len(fake.ProductRequests()); n >= 10 {
			t.Errorf("expected cancellation to stop the run, got %d requests", n)
		}
	})

	t.Run("Page Fallback", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		fake.SeedList([]int64{1})
		fake.AddPage("alice", "<html><script>window._start_data = {\nprofile: {\"id\":42,\"uri\":\"alice\",\"lists\":{\"want\":[1]}},\n};</script></html>")

		stub := &stubService{
			Service:    services.NewMustAppClient(services.MustAppOpts{BaseURL: fake.URL()}),
			profileErr: &services.APIError{StatusCode: http.StatusBadGateway, Message: "down"},
		}
		engine := NewFetchEngine(stub, FetchOpts{PageFallback: true, Logger: shared.NewLogger(io.Discard)})

		progress := make(chan ProgressUpdate, 100)
		snapshot, err := engine.Run(context.Background(), "alice", progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(snapshot.Lists[models.ListWant]) != 1 {
			t.Errorf("expected 1 want entry, got %d", len(snapshot.Lists[models.ListWant]))
		}

		found := false
		for _, u := range drain(progress) {
			if u.Phase == FetchProfilePage {
				found = true
			}
		}
		if !found {
			t.Error("expected a fetch_profile_page update")
		}
	})

	t.Run("Fallback Disabled", func(t *testing.T) {
		stub := &stubService{profileErr: &services.APIError{StatusCode: http.StatusBadGateway, Message: "down"}}
		engine := NewFetchEngine(stub, FetchOpts{Logger: shared.NewLogger(io.Discard)})

		if _, err := engine.Run(context.Background(), "alice", nil); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if stub.pageCalls != 0 {
			t.Errorf("expected no page fetch, got %d", stub.pageCalls)
		}
	})

	t.Run("Enriches Show Reviews", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		seedProfile(fake, nil, nil, nil)
		fake.AddProfile(models.Profile{ID: 42, URI: "alice", Lists: map[models.ListKey][]int64{models.ListShows: {1, 2, 3}}})

		reviewed := tu.Entry(1, "Reviewed")
		reviewed.UserProductInfo.Reviewed = true
		reviewed.UserProductInfo.Rate = tu.IntPtr(8)
		reviewed.UserProductInfo.Review = &models.Review{Body: "Loved it"}
		complete := tu.Entry(2, "Complete")
		complete.UserProductInfo.Reviewed = true
		complete.UserProductInfo.Review = &models.Review{Body: "Already here"}
		fake.AddEntries(reviewed, complete, tu.Entry(3, "Unreviewed"))
		fake.OmitReview(1)

		engine := newTestEngine(fake, FetchOpts{})
		progress := make(chan ProgressUpdate, 100)
		snapshot, err := engine.Run(context.Background(), "alice", progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		shows := snapshot.Lists[models.ListShows]
		if shows[0].UserProductInfo.Review == nil || shows[0].UserProductInfo.Review.Body != "Loved it" {
			t.Errorf("expected backfilled review, got %+v", shows[0].UserProductInfo.Review)
		}
		if shows[0].Product.Title != "Reviewed" {
			t.Errorf("expected product data to be kept, got %q", shows[0].Product.Title)
		}
		if shows[0].UserProductInfo.Rate == nil || *shows[0].UserProductInfo.Rate != 8 {
			t.Errorf("expected rating 8, got %v", shows[0].UserProductInfo.Rate)
		}

		reqs := fake.ProductRequests()
		if len(reqs) != 2 {
			t.Fatalf("expected 2 product requests, got %d", len(reqs))
		}
		if reqs[1].Embed != "review" || len(reqs[1].IDs) != 1 || reqs[1].IDs[0] != 1 {
			t.Errorf("unexpected enrichment request %+v", reqs[1])
		}

		phases := map[Phase]int{}
		for _, u := range drain(progress) {
			phases[u.Phase]++
		}
		if phases[EnrichShows] != 1 || phases[Done] != 1 || phases[Assemble] != 1 {
			t.Errorf("unexpected progress phases %v", phases)
		}
	})

	t.Run("Batch Progress", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		seedProfile(fake, tu.IDs(1, 3), nil, nil)

		engine := newTestEngine(fake, FetchOpts{BatchSize: 2})
		progress := make(chan ProgressUpdate, 100)
		if _, err := engine.Run(context.Background(), "alice", progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var batches []BatchProgress
		for _, u := range drain(progress) {
			if u.Phase == BatchFetched {
				batches = append(batches, u.Data.(BatchProgress))
			}
		}
		if len(batches) != 2 {
			t.Fatalf("expected 2 batch updates, got %d", len(batches))
		}
		if batches[0].Loaded != 2 || batches[1].Loaded != 3 || batches[1].Expect != 3 {
			t.Errorf("unexpected cumulative counts %+v", batches)
		}
		if len(batches[1].Entries) != 1 || batches[1].Batches != 2 {
			t.Errorf("unexpected last batch %+v", batches[1])
		}
	})

	t.Run("Empty Profile", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		fake.AddProfile(models.Profile{ID: 5, URI: "empty"})

		engine := newTestEngine(fake, FetchOpts{})
		snapshot, err := engine.Run(context.Background(), "empty", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, key := range models.ListKeys {
			if list, ok := snapshot.Lists[key]; !ok || len(list) != 0 {
				t.Errorf("%s: expected empty list, got %v", key, list)
			}
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		seedProfile(fake, tu.IDs(1, 2), nil, nil)

		reg := prometheus.NewRegistry()
		engine := newTestEngine(fake, FetchOpts{Registerer: reg})
		if _, err := engine.Run(context.Background(), "alice", nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("gather failed: %v", err)
		}
		names := map[string]bool{}
		for _, f := range families {
			names[f.GetName()] = true
		}
		if !names["mustx_fetch_entries_total"] || !names["mustx_fetch_runs_total"] {
			t.Errorf("expected pipeline metrics, got %v", names)
		}
	})
}

func TestSendProgress(t *testing.T) {
	t.Run("Nil Channel", func(t *testing.T) {
		SendProgress(nil, ProgressUpdate{})
	})

	t.Run("Full Channel Does Not Block", func(t *testing.T) {
		ch := make(chan ProgressUpdate, 1)
		SendProgress(ch, ProgressUpdate{Step: 1})
		SendProgress(ch, ProgressUpdate{Step: 2})

		if u := <-ch; u.Step != 1 {
			t.Errorf("expected first update to be kept, got %d", u.Step)
		}
	})
}

// stubService delegates to an embedded Service but can fail the profile lookup.
type stubService struct {
	services.Service
	profileErr error
	pageCalls  int
}

func (s *stubService) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.Service.GetProfile(ctx, username)
}

func (s *stubService) GetProfileFromPage(ctx context.Context, username string) (*models.Profile, error) {
	s.pageCalls++
	if s.Service == nil {
		return nil, errors.New("no page")
	}
	return s.Service.GetProfileFromPage(ctx, username)
}

func (s *stubService) Name() string { return "stub" }

type call struct {
	name       string
	start, end time.Time
}

// slowService answers every request after latency and records when each one started and finished.
type slowService struct {
	services.Service
	latency time.Duration

	mu    sync.Mutex
	calls []call
}

func (s *slowService) record(name string) func() {
	start := time.Now()
	time.Sleep(s.latency)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls = append(s.calls, call{name: name, start: start, end: time.Now()})
	}
}

func (s *slowService) Calls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func (s *slowService) GetProfile(_ context.Context, username string) (*models.Profile, error) {
	defer s.record("profile")()
	return &models.Profile{
		ID:  42,
		URI: username,
		Lists: map[models.ListKey][]int64{
			models.ListWant:    {1, 2, 3},
			models.ListWatched: {},
			models.ListShows:   {10},
		},
	}, nil
}

func (s *slowService) GetUserProducts(_ context.Context, _ int64, ids []int64, embed ...string) (models.UserProductList, error) {
	defer s.record(fmt.Sprintf("products %v embed=%v", ids, embed))()

	list := models.UserProductList{}
	for _, id := range ids {
		entry := tu.Entry(id, fmt.Sprintf("Title %d", id))
		if id == 10 {
			entry.UserProductInfo.Reviewed = true
			if len(embed) == 1 && embed[0] == "review" {
				entry.UserProductInfo.Review = &models.Review{Body: "Backfilled"}
			}
		}
		list = append(list, entry)
	}
	return list, nil
}

func (s *slowService) Name() string { return "slow" }
