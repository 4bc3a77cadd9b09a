package models

import (
	"fmt"
	"strings"
)

// ListKey identifies one of the user's MustApp lists.
type ListKey string

const (
	ListWant    ListKey = "want"
	ListWatched ListKey = "watched"
	ListShows   ListKey = "shows"
)

// ListKeys establishes the lists we're interested in and their order (same as at mustapp.com and in the app).
var ListKeys = []ListKey{ListWant, ListWatched, ListShows}

// Name returns the list name as shown at mustapp.com.
func (k ListKey) Name() string {
	switch k {
	case ListWant:
		return "Want"
	case ListWatched:
		return "Watched"
	case ListShows:
		return "Series"
	default:
		return string(k)
	}
}

// Title returns the start-cased key, used for sheet and tab titles.
func (k ListKey) Title() string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Valid reports whether k is one of [ListKeys].
func (k ListKey) Valid() bool {
	for _, key := range ListKeys {
		if key == k {
			return true
		}
	}
	return false
}

// ParseListKey accepts a list key or its display name, case-insensitively.
func ParseListKey(s string) (ListKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, key := range ListKeys {
		if string(key) == s || strings.ToLower(key.Name()) == s {
			return key, nil
		}
	}
	return "", fmt.Errorf("unknown list %q (expected one of want, watched, shows)", s)
}

// ListDescriptor summarises a list for navigation.
type ListDescriptor struct {
	Key        ListKey `json:"key"`
	Name       string  `json:"name"`
	EntryCount int     `json:"entryCount"`
}

// Describe returns a [ListDescriptor] per list in [ListKeys] order, counted from the profile's id lists.
func Describe(p *Profile) []ListDescriptor {
	descriptors := make([]ListDescriptor, 0, len(ListKeys))
	for _, key := range ListKeys {
		descriptors = append(descriptors, ListDescriptor{
			Key:        key,
			Name:       key.Title(),
			EntryCount: len(p.Lists[key]),
		})
	}
	return descriptors
}
