// Package models defines the MustApp domain types shared by the fetch pipeline, the snapshot cache and every presentation layer.
//
// The package contains two categories of types:
//
// 1. API payloads, decoded from MustApp's undocumented JSON API:
//   - [Profile] : user id, privacy flag and the product ids of every list
//   - [UserProductListEntry] : one list row, the user's [UserProductInfo] joined with its [Product]
//
// 2. Assembled data:
//   - [UserProductLists] : every list, keyed by [ListKey], in API order
//   - [Snapshot] : a complete fetch as stored in the local cache
//   - [ListDescriptor] : list key, display name and entry count for navigation
//
// [ListKeys] is the source of truth for which lists are fetched and in which order they are shown.
package models
