// Package server provides the HTTP surface of mustx: a username form, a JSON view of a user's lists, spreadsheet
// downloads and prometheus metrics.
//
// # Router Infrastructure
//
// [Router] registers method-qualified routes behind a [Middleware] chain. The first middleware added is the
// outermost, so it sees the request first: the server installs recovery, then logging, then metrics.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally and registers "METHOD path" patterns, so wildcards
// like {username} are read with [http.Request.PathValue].
//
// # Routes
//
//	GET  /                              → username form
//	POST /                              → 400 "Input valid username" or 303 to /user/{username}
//	GET  /user/{username}[?update]      → snapshot JSON (username, fetchTimestamp, userId, lists, userProductLists)
//	GET  /user/{username}/export.xlsx   → workbook attachment
//	GET  /metrics                       → prometheus metrics
//
// Snapshots come from a [Loader], normally the cached loader shared with the CLI, so the web surface and the
// terminal see the same cache.
//
// A [Handler] carries its own route list; the metrics endpoint is registered that way.
package server
