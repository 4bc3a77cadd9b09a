package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"golang.org/x/net/html/charset"
)

const startDataMarker = "window._start_data ="

// GetProfileFromPage scrapes the profile out of the public profile page.
//
// Calls GET /@{username}/want and reads the "profile" value of the window._start_data script.
func (c *MustAppClient) GetProfileFromPage(ctx context.Context, username string) (*models.Profile, error) {
	if shared.IsBlank(username) {
		return nil, fmt.Errorf("%w: username is empty", shared.ErrInvalidInput)
	}

	endpoint := "/@" + url.PathEscape(username) + "/want"
	resp, body, err := c.do(ctx, EndpointPage, http.MethodGet, endpoint, nil, "text/html")
	if err != nil {
		return nil, err
	}

	if !isSuccess(resp.StatusCode) {
		message := fmt.Sprintf("Failed to fetch %s: %s", resp.Request.URL, http.StatusText(resp.StatusCode))
		if resp.StatusCode == http.StatusNotFound {
			message = "Invalid username? " + message
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			URL:        resp.Request.URL.String(),
			Message:    message,
			notFound:   resp.StatusCode == http.StatusNotFound,
		}
	}

	reader, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, startDataMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil, fmt.Errorf("%w: no %q script", shared.ErrProfileNotFound, strings.TrimSuffix(startDataMarker, " ="))
	}

	profile, err := extractStartDataProfile(script)
	if err != nil {
		return nil, err
	}
	if profile.URI == "" {
		profile.URI = username
	}
	return profile, nil
}

// extractStartDataProfile reads the value following "profile:" (up to the next ",\n") in the start data script.
func extractStartDataProfile(script string) (*models.Profile, error) {
	start := strings.Index(script, startDataMarker)
	if start < 0 {
		return nil, shared.ErrProfileNotFound
	}

	rest := script[start:]
	valueStart := -1
	for _, field := range []string{"profile:", `"profile":`} {
		if idx := strings.Index(rest, field); idx >= 0 && (valueStart < 0 || idx < valueStart) {
			valueStart = idx + len(field)
		}
	}
	if valueStart < 0 {
		return nil, fmt.Errorf("%w: no profile field", shared.ErrProfileNotFound)
	}

	rest = rest[valueStart:]
	if end := strings.Index(rest, ",\n"); end >= 0 {
		rest = rest[:end]
	}

	var profile models.Profile
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest)), &profile); err != nil {
		return nil, fmt.Errorf("%w: profile is not valid JSON: %v", shared.ErrProfileNotFound, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrProfileNotFound, err)
	}
	profile.Normalize()

	return &profile, nil
}
