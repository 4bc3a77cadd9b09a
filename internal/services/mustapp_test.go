package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	tu "github.com/desertthunder/mustx/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustAppClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			c := NewMustAppClient(MustAppOpts{})

			if c.BaseURL() != "https://mustapp.com" {
				t.Errorf("expected default base URL, got %s", c.BaseURL())
			}
			if c.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if c.Name() != "MustApp" {
				t.Errorf("expected name MustApp, got %s", c.Name())
			}
		})

		t.Run("Trims Trailing Slash", func(t *testing.T) {
			c := NewMustAppClient(MustAppOpts{BaseURL: "http://example.com/"})
			if c.BaseURL() != "http://example.com" {
				t.Errorf("expected trimmed base URL, got %s", c.BaseURL())
			}
		})
	})

	t.Run("GetProfile", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			fake := tu.NewFakeMustApp()
			defer fake.Close()
			fake.AddProfile(models.Profile{
				ID:  42,
				URI: "alice",
				Lists: map[models.ListKey][]int64{
					models.ListWant:    {1, 2},
					models.ListWatched: {3},
					"youtube":          {99},
				},
			})

			c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
			profile, err := c.GetProfile(context.Background(), "alice")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if profile.ID != 42 {
				t.Errorf("expected id 42, got %d", profile.ID)
			}
			if _, ok := profile.Lists["youtube"]; ok {
				t.Error("expected unknown lists to be dropped")
			}
			if ids := profile.Lists[models.ListShows]; ids == nil || len(ids) != 0 {
				t.Errorf("expected empty shows list, got %v", ids)
			}
			if profile.TotalEntries() != 3 {
				t.Errorf("expected 3 entries, got %d", profile.TotalEntries())
			}

			reqs := fake.Requests()
			if len(reqs) != 1 || reqs[0].Path != "/api/users/uri/alice" {
				t.Errorf("unexpected requests: %+v", reqs)
			}
		})

		t.Run("Not Found Uses Error Envelope", func(t *testing.T) {
			fake := tu.NewFakeMustApp()
			defer fake.Close()

			c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
			_, err := c.GetProfile(context.Background(), "nobody")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, shared.ErrUserNotFound) {
				t.Errorf("expected ErrUserNotFound, got %v", err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Message != "Failed to fetch Must user data: user not found" {
				t.Errorf("unexpected message %q", apiErr.Message)
			}
		})

		t.Run("Server Error Without Envelope", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer server.Close()

			c := NewMustAppClient(MustAppOpts{BaseURL: server.URL})
			_, err := c.GetProfile(context.Background(), "alice")

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.Message != "Failed to fetch Must user data: bad Gateway" {
				t.Errorf("unexpected message %q", apiErr.Message)
			}
			if errors.Is(err, shared.ErrUserNotFound) {
				t.Error("did not expect ErrUserNotFound")
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("expected ErrAPIRequest")
			}
		})

		t.Run("Missing ID", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"uri":"alice","lists":{}}`))
			}))
			defer server.Close()

			c := NewMustAppClient(MustAppOpts{BaseURL: server.URL})
			if _, err := c.GetProfile(context.Background(), "alice"); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Blank Username", func(t *testing.T) {
			c := NewMustAppClient(MustAppOpts{})
			if _, err := c.GetProfile(context.Background(), "  "); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("Transport Failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}
			c := NewMustAppClient(MustAppOpts{BaseURL: "http://example.com", HTTPClient: client})

			_, err := c.GetProfile(context.Background(), "alice")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), "connection failed") {
				t.Errorf("expected transport error in message, got %v", err)
			}
		})

		t.Run("Body Read Failure", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FReader{}, Header: http.Header{}}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			c := NewMustAppClient(MustAppOpts{BaseURL: "http://example.com", HTTPClient: client})

			_, err := c.GetProfile(context.Background(), "alice")
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected read error, got %v", err)
			}
		})

		t.Run("Cancelled Context", func(t *testing.T) {
			fake := tu.NewFakeMustApp()
			defer fake.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
			if _, err := c.GetProfile(ctx, "alice"); !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})
	})

	t.Run("GetUserProducts", func(t *testing.T) {
		t.Run("Sends IDs And Embed", func(t *testing.T) {
			fake := tu.NewFakeMustApp()
			defer fake.Close()
			fake.SeedList([]int64{1, 2, 3})

			c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
			list, err := c.GetUserProducts(context.Background(), 42, []int64{1, 3})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(list))
			}
			if list[0].Product.Title != "Title 1" || list[1].Product.Title != "Title 3" {
				t.Errorf("unexpected titles: %q, %q", list[0].Product.Title, list[1].Product.Title)
			}

			reqs := fake.ProductRequests()
			if len(reqs) != 1 {
				t.Fatalf("expected 1 request, got %d", len(reqs))
			}
			if reqs[0].Path != "/api/users/id/42/products" {
				t.Errorf("unexpected path %s", reqs[0].Path)
			}
			if reqs[0].Embed != "product,review" {
				t.Errorf("expected default embed, got %q", reqs[0].Embed)
			}
			if len(reqs[0].IDs) != 2 || reqs[0].IDs[0] != 1 || reqs[0].IDs[1] != 3 {
				t.Errorf("unexpected ids %v", reqs[0].IDs)
			}
		})

		t.Run("Review Only Embed Skips Validation", func(t *testing.T) {
			fake := tu.NewFakeMustApp()
			defer fake.Close()
			entry := tu.Entry(7, "Show")
			entry.UserProductInfo.Reviewed = true
			entry.UserProductInfo.Review = &models.Review{Body: "great"}
			fake.AddEntries(entry)

			c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
			list, err := c.GetUserProducts(context.Background(), 42, []int64{7}, "review")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(list) != 1 || list[0].UserProductInfo.Review == nil || list[0].UserProductInfo.Review.Body != "great" {
				t.Errorf("expected review body, got %+v", list)
			}
			if fake.ProductRequests()[0].Embed != "review" {
				t.Errorf("expected review embed, got %q", fake.ProductRequests()[0].Embed)
			}
		})

		t.Run("No IDs Makes No Request", func(t *testing.T) {
			fake := tu.NewFakeMustApp()
			defer fake.Close()

			c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
			list, err := c.GetUserProducts(context.Background(), 42, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if list == nil || len(list) != 0 {
				t.Errorf("expected empty list, got %v", list)
			}
			if n := len(fake.Requests()); n != 0 {
				t.Errorf("expected no requests, got %d", n)
			}
		})

		t.Run("Error Status", func(t *testing.T) {
			fake := tu.NewFakeMustApp()
			defer fake.Close()
			fake.SeedList([]int64{1})
			fake.FailCall(1, http.StatusServiceUnavailable)

			c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
			_, err := c.GetUserProducts(context.Background(), 42, []int64{1})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			want := "Failed to fetch " + fake.URL() + "/api/users/id/42/products?embed=product,review: Service Unavailable"
			if apiErr.Message != want {
				t.Errorf("expected message %q, got %q", want, apiErr.Message)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("expected ErrAPIRequest")
			}
		})

		t.Run("Entry Without Title", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[{"user_product_info":{"product_id":1},"product":{"id":1}}]`))
			}))
			defer server.Close()

			c := NewMustAppClient(MustAppOpts{BaseURL: server.URL})
			if _, err := c.GetUserProducts(context.Background(), 42, []int64{1}); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Malformed JSON", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{not json`))
			}))
			defer server.Close()

			c := NewMustAppClient(MustAppOpts{BaseURL: server.URL})
			_, err := c.GetUserProducts(context.Background(), 42, []int64{1})
			if err == nil || !strings.Contains(err.Error(), "failed to decode products") {
				t.Errorf("expected decode error, got %v", err)
			}
		})
	})

	t.Run("Metrics", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		fake.SeedList([]int64{1})

		reg := prometheus.NewRegistry()
		c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL(), Metrics: NewMetrics(reg)})

		_, _ = c.GetProfile(context.Background(), "nobody")
		_, _ = c.GetUserProducts(context.Background(), 1, []int64{1})

		if got := testutil.ToFloat64(c.metrics.requests.WithLabelValues(EndpointProfile, "404")); got != 1 {
			t.Errorf("expected 1 profile 404, got %v", got)
		}
		if got := testutil.ToFloat64(c.metrics.requests.WithLabelValues(EndpointProducts, "200")); got != 1 {
			t.Errorf("expected 1 products 200, got %v", got)
		}
	})
}
