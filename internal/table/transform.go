package table

import (
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/mustx/internal/models"
)

// FilterByTitle keeps entries whose title contains text, ignoring case. Blank text returns list unchanged.
func FilterByTitle(list models.UserProductList, text string) models.UserProductList {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return list
	}

	out := make(models.UserProductList, 0, len(list))
	for _, e := range list {
		if strings.Contains(strings.ToLower(e.Product.Title), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Sort returns a sorted copy of list. The sort is stable and entries without a value for col always come last.
func Sort(list models.UserProductList, col Column, ascending bool) models.UserProductList {
	out := append(models.UserProductList(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := CellValue(&out[i], col), CellValue(&out[j], col)
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		c := compare(a, b)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	return out
}

func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(strings.ToLower(av), strings.ToLower(b.(string)))
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}
