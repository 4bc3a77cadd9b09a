// Package ui implements an interactive terminal interface for browsing a MustApp user's lists, using bubbletea's Elm
// architecture.
//
// The TUI has two views:
//  1. [LoadingView] : Per-list progress bars while the snapshot is fetched (or read from the cache)
//  2. [TableView] : One tab per list with a title filter, column sorting, incremental row loading and an expandable
//     detail row showing the review
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress updates flow through a channel from the fetch pipeline, so a slow fetch never blocks rendering.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
