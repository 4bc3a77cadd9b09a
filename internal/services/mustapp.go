// MustApp API [Service] implementation
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
)

const (
	defaultBaseURL   = "https://mustapp.com"
	defaultUserAgent = "mustx"
)

// Endpoint labels used for metrics and logging.
const (
	EndpointProfile  = "profile"
	EndpointProducts = "products"
	EndpointPage     = "profile_page"
)

// MustAppOpts configures a [MustAppClient].
type MustAppOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	Metrics    *Metrics
}

// MustAppClient implements [Service] over plain HTTP.
type MustAppClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	metrics    *Metrics
}

// NewMustAppClient creates a client; zero-valued options fall back to mustapp.com and [http.DefaultClient].
func NewMustAppClient(opts MustAppOpts) *MustAppClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &MustAppClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		userAgent:  opts.UserAgent,
		metrics:    opts.Metrics,
	}
}

// Name returns the service name.
func (c *MustAppClient) Name() string {
	return "MustApp"
}

// BaseURL returns the API root the client talks to.
func (c *MustAppClient) BaseURL() string {
	return c.baseURL
}

// GetProfile retrieves a profile by its uri.
//
// Calls GET /api/users/uri/{username}.
func (c *MustAppClient) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	if shared.IsBlank(username) {
		return nil, fmt.Errorf("%w: username is empty", shared.ErrInvalidInput)
	}

	endpoint := "/api/users/uri/" + url.PathEscape(username)
	resp, body, err := c.do(ctx, EndpointProfile, http.MethodGet, endpoint, nil, "application/json")
	if err != nil {
		return nil, err
	}

	if !isSuccess(resp.StatusCode) {
		message := http.StatusText(resp.StatusCode)
		var envelope errorBody
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			URL:        resp.Request.URL.String(),
			Message:    "Failed to fetch Must user data: " + shared.LowerFirst(message),
			notFound:   resp.StatusCode == http.StatusNotFound,
		}
	}

	var profile models.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: failed to decode profile: %v", shared.ErrAPIRequest, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	profile.Normalize()
	if profile.URI == "" {
		profile.URI = username
	}

	return &profile, nil
}

// GetUserProducts retrieves the user's entries for a batch of product ids.
//
// Calls POST /api/users/id/{id}/products?embed=... with {"ids": [...]}.
func (c *MustAppClient) GetUserProducts(ctx context.Context, userID int64, productIDs []int64, embed ...string) (models.UserProductList, error) {
	if len(productIDs) == 0 {
		return models.UserProductList{}, nil
	}
	if len(embed) == 0 {
		embed = DefaultEmbed
	}

	endpoint := fmt.Sprintf("/api/users/id/%d/products?embed=%s", userID, strings.Join(embed, ","))
	payload, err := json.Marshal(struct {
		IDs []int64 `json:"ids"`
	}{IDs: productIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, body, err := c.do(ctx, EndpointProducts, http.MethodPost, endpoint, payload, "application/json")
	if err != nil {
		return nil, err
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			URL:        resp.Request.URL.String(),
			Message:    fmt.Sprintf("Failed to fetch %s: %s", resp.Request.URL, http.StatusText(resp.StatusCode)),
		}
	}

	var list models.UserProductList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to decode products: %v", shared.ErrAPIRequest, err)
	}
	if embedsProduct(embed) {
		for i := range list {
			if err := list[i].Validate(); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		}
	}

	return list, nil
}

// do sends the request and reads the whole body. Transport failures are returned as errors; HTTP error statuses are
// left to the caller.
func (c *MustAppClient) do(ctx context.Context, label, method, endpoint string, payload []byte, accept string) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(label, 0, time.Since(start))
		return nil, nil, fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.observe(label, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}
	if resp.Request == nil {
		resp.Request = req
	}

	return resp, body, nil
}

func embedsProduct(embed []string) bool {
	for _, e := range embed {
		if e == "product" {
			return true
		}
	}
	return false
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
