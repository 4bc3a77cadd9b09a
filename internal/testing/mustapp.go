package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/mustx/internal/models"
)

// RecordedRequest is one call received by [FakeMustApp].
type RecordedRequest struct {
	Method string
	Path   string
	Embed  string
	IDs    []int64
	At     time.Time
}

// FakeMustApp is an in-process stand-in for the MustApp API.
//
// Reviews listed in OmitReviews are left out of "product,review" responses and only returned when a request embeds
// "review" alone, which is how the shows review backfill is exercised.
type FakeMustApp struct {
	Server *httptest.Server

	mu          sync.Mutex
	profiles    map[string]models.Profile
	pages       map[string]string
	entries     map[int64]models.UserProductListEntry
	omitReviews map[int64]bool
	failCalls   map[int]int
	calls       int
	requests    []RecordedRequest
}

// NewFakeMustApp starts the server; callers must Close it.
func NewFakeMustApp() *FakeMustApp {
	f := &FakeMustApp{
		profiles:    map[string]models.Profile{},
		pages:       map[string]string{},
		entries:     map[int64]models.UserProductListEntry{},
		omitReviews: map[int64]bool{},
		failCalls:   map[int]int{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// URL returns the server root.
func (f *FakeMustApp) URL() string { return f.Server.URL }

// Close shuts the server down.
func (f *FakeMustApp) Close() { f.Server.Close() }

// AddProfile registers a profile under its URI.
func (f *FakeMustApp) AddProfile(p models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.URI] = p
}

// AddPage serves html at /@{username}/want.
func (f *FakeMustApp) AddPage(username, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[username] = html
}

// AddEntries registers list entries by product id.
func (f *FakeMustApp) AddEntries(entries ...models.UserProductListEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.ProductID()] = e
	}
}

// OmitReview hides the review of the given products from combined embeds.
func (f *FakeMustApp) OmitReview(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.omitReviews[id] = true
	}
}

// FailCall makes the n-th (1-based) products call answer with status.
func (f *FakeMustApp) FailCall(n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCalls[n] = status
}

// Requests returns a copy of every request received so far.
func (f *FakeMustApp) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// ProductRequests returns only the products calls.
func (f *FakeMustApp) ProductRequests() []RecordedRequest {
	var out []RecordedRequest
	for _, r := range f.Requests() {
		if r.Method == http.MethodPost {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeMustApp) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := RecordedRequest{Method: r.Method, Path: r.URL.Path, Embed: r.URL.Query().Get("embed"), At: time.Now()}

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/users/uri/"):
		f.requests = append(f.requests, rec)
		uri := strings.TrimPrefix(r.URL.Path, "/api/users/uri/")
		profile, ok := f.profiles[uri]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"message":"User not found"}}`)
			return
		}
		writeJSON(w, profile)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/@"):
		f.requests = append(f.requests, rec)
		username := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/@"), "/want")
		page, ok := f.pages[username]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/users/id/"):
		var body struct {
			IDs []int64 `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.IDs = body.IDs
		f.requests = append(f.requests, rec)

		f.calls++
		if status, ok := f.failCalls[f.calls]; ok {
			w.WriteHeader(status)
			return
		}

		withProduct := strings.Contains(rec.Embed, "product")
		withReview := strings.Contains(rec.Embed, "review")

		out := make([]models.UserProductListEntry, 0, len(body.IDs))
		for _, id := range body.IDs {
			entry, ok := f.entries[id]
			if !ok {
				continue
			}
			if !withProduct {
				entry.Product = models.Product{}
				entry.UserProductInfo.ProductID = id
			}
			if !withReview || (withProduct && f.omitReviews[id]) {
				entry.UserProductInfo.Review = nil
			}
			out = append(out, entry)
		}
		writeJSON(w, out)

	default:
		f.requests = append(f.requests, rec)
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Entry builds a list entry with the fields most tests care about.
func Entry(id int64, title string) models.UserProductListEntry {
	return models.UserProductListEntry{
		UserProductInfo: models.UserProductInfo{
			ProductID:  id,
			ModifiedAt: models.NewTime(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour)),
		},
		Product: models.Product{ID: id, Title: title},
	}
}

// IDs returns first..first+n-1.
func IDs(first int64, n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = first + int64(i)
	}
	return ids
}

// SeedList registers one entry per id, titled "Title {id}".
func (f *FakeMustApp) SeedList(ids []int64) {
	for _, id := range ids {
		f.AddEntries(Entry(id, "Title "+strconv.FormatInt(id, 10)))
	}
}
