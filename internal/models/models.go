// package models defines the data model for the MustApp exporter
package models

import (
	"errors"
	"fmt"
	"time"
)

// Profile is the part of a MustApp user profile the exporter needs.
type Profile struct {
	ID        int64               `json:"id"`
	URI       string              `json:"uri,omitempty"`
	Lists     map[ListKey][]int64 `json:"lists"`
	IsPrivate bool                `json:"is_private"`
}

// Normalize drops lists the exporter does not handle (e.g. "youtube") and fills missing ones with empty slices.
func (p *Profile) Normalize() {
	lists := make(map[ListKey][]int64, len(ListKeys))
	for _, key := range ListKeys {
		ids := p.Lists[key]
		if ids == nil {
			ids = []int64{}
		}
		lists[key] = ids
	}
	p.Lists = lists
}

// Validate checks the fields every later stage relies on.
func (p *Profile) Validate() error {
	if p.ID <= 0 {
		return errors.New("profile id is missing")
	}
	return nil
}

// TotalEntries sums the product ids across all lists.
func (p *Profile) TotalEntries() int {
	total := 0
	for _, key := range ListKeys {
		total += len(p.Lists[key])
	}
	return total
}

// UserShowInfo carries series progress; only present on "shows" entries.
type UserShowInfo struct {
	EpisodesWatched *int `json:"episodes_watched"`
}

// Review is the user's written review of a product.
type Review struct {
	ReviewedAt Time   `json:"reviewed_at"`
	Body       string `json:"body"`
}

// UserProductInfo is the user's relation to a product.
type UserProductInfo struct {
	ProductID    int64        `json:"product_id,omitempty"`
	Status       string       `json:"status,omitempty"`
	ModifiedAt   Time         `json:"modified_at"`
	UserShowInfo UserShowInfo `json:"user_show_info"`
	Rate         *int         `json:"rate"`
	Reviewed     bool         `json:"reviewed"`
	Review       *Review      `json:"review"`
}

// Product is a film or series.
type Product struct {
	ID          int64  `json:"id"`
	Type        string `json:"type,omitempty"`
	Title       string `json:"title"`
	ReleaseDate Date   `json:"release_date"`
	// ItemsCount is released + unreleased episodes.
	ItemsCount         *int `json:"items_count"`
	ItemsReleasedCount *int `json:"items_released_count"`
}

// UserProductListEntry is one row of a list.
type UserProductListEntry struct {
	UserProductInfo UserProductInfo `json:"user_product_info"`
	Product         Product         `json:"product"`
}

// Validate rejects entries without the data every view needs.
func (e *UserProductListEntry) Validate() error {
	if e.Product.Title == "" {
		return fmt.Errorf("product %d has no title", e.Product.ID)
	}
	return nil
}

// ProductID returns the product id from whichever side carries it.
func (e *UserProductListEntry) ProductID() int64 {
	if e.Product.ID != 0 {
		return e.Product.ID
	}
	return e.UserProductInfo.ProductID
}

// NeedsReview reports whether the user reviewed the product but the review body was not embedded.
func (e *UserProductListEntry) NeedsReview() bool {
	return e.UserProductInfo.Reviewed && (e.UserProductInfo.Review == nil || e.UserProductInfo.Review.Body == "")
}

// UserProductList is an ordered list of entries.
type UserProductList []UserProductListEntry

// UserProductLists holds every list keyed by [ListKey].
type UserProductLists map[ListKey]UserProductList

// Count returns the total number of entries.
func (l UserProductLists) Count() int {
	total := 0
	for _, list := range l {
		total += len(list)
	}
	return total
}

// Snapshot is one complete fetch of a user's lists, as cached locally.
type Snapshot struct {
	ID             string           `json:"id"`
	Username       string           `json:"username"`
	Version        int              `json:"version"`
	FetchTimestamp time.Time        `json:"fetch_timestamp"`
	Profile        Profile          `json:"profile"`
	Lists          UserProductLists `json:"lists"`
}

// Descriptors returns the navigation descriptors for this snapshot.
func (s *Snapshot) Descriptors() []ListDescriptor {
	return Describe(&s.Profile)
}
