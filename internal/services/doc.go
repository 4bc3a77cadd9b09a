// Package services implements the HTTP client for MustApp's undocumented JSON API.
//
// # Endpoints
//
// [MustAppClient] talks to three endpoints:
//   - GET  /api/users/uri/{username} : profile lookup by the public profile uri
//   - POST /api/users/id/{id}/products?embed=product,review : list entries for a batch of product ids
//   - GET  /@{username}/want : the public profile page, scraped for window._start_data when the JSON lookup fails
//
// The JSON lookup by uri returns the same data the public page embeds, without having to parse HTML. The page scrape is
// kept as a fallback ([MustAppClient.GetProfileFromPage]).
//
// # Error Handling
//
// Non-2xx responses become an [APIError], which unwraps to:
//   - [shared.ErrUserNotFound] : 404 from the profile endpoints
//   - [shared.ErrAPIRequest] : every other failure
//
// # Metrics
//
// Every request is counted by endpoint and status and timed by endpoint on the [Metrics] collectors, registered on
// whichever prometheus.Registerer the caller supplies.
package services
