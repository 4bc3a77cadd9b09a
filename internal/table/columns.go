// package table is the view model behind the list table: columns, cell values, title filter, sorting and
// incremental row loading.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/mustx/internal/models"
)

// Column names a table column.
type Column string

const (
	ColTitle       Column = "Title"
	ColReleaseDate Column = "Release date"
	ColModified    Column = "Modified"
	ColRating      Column = "Rating"
	ColReview      Column = "Review"
	ColEpisodes    Column = "Watched/Released(/Total)"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

var columns = map[models.ListKey][]Column{
	models.ListWant:    {ColTitle, ColReleaseDate, ColModified},
	models.ListShows:   {ColTitle, ColReleaseDate, ColModified, ColEpisodes, ColRating, ColReview},
	models.ListWatched: {ColTitle, ColReleaseDate, ColModified, ColRating, ColReview},
}

// Columns returns the columns shown for key.
func Columns(key models.ListKey) []Column {
	return append([]Column(nil), columns[key]...)
}

// HasColumn reports whether key shows col.
func HasColumn(key models.ListKey, col Column) bool {
	for _, c := range columns[key] {
		if c == col {
			return true
		}
	}
	return false
}

// ParseColumn accepts a column name or a short alias (title, release, modified, rating, review, episodes).
func ParseColumn(s string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "title":
		return ColTitle, nil
	case "release", "release date", "release_date", "released":
		return ColReleaseDate, nil
	case "modified", "modified_at":
		return ColModified, nil
	case "rating", "rate":
		return ColRating, nil
	case "review", "reviewed":
		return ColReview, nil
	case "episodes", "watched/released(/total)":
		return ColEpisodes, nil
	}
	return "", fmt.Errorf("unknown column %q", s)
}

// CellValue returns the raw value behind a cell: string, [time.Time], int, bool, or nil when the entry has none.
func CellValue(e *models.UserProductListEntry, col Column) any {
	switch col {
	case ColTitle:
		return e.Product.Title
	case ColReleaseDate:
		if !e.Product.ReleaseDate.Valid() {
			return nil
		}
		return e.Product.ReleaseDate.Time
	case ColModified:
		if !e.UserProductInfo.ModifiedAt.Valid() {
			return nil
		}
		return e.UserProductInfo.ModifiedAt.Time
	case ColRating:
		if e.UserProductInfo.Rate == nil {
			return nil
		}
		return *e.UserProductInfo.Rate
	case ColReview:
		return e.UserProductInfo.Reviewed
	case ColEpisodes:
		if e.UserProductInfo.UserShowInfo.EpisodesWatched == nil {
			return nil
		}
		return *e.UserProductInfo.UserShowInfo.EpisodesWatched
	default:
		return nil
	}
}

// DisplayValue formats a cell for display. Missing values render as "".
func DisplayValue(e *models.UserProductListEntry, col Column) string {
	switch col {
	case ColReleaseDate:
		if !e.Product.ReleaseDate.Valid() {
			return ""
		}
		return e.Product.ReleaseDate.Format(DateLayout)
	case ColModified:
		if !e.UserProductInfo.ModifiedAt.Valid() {
			return ""
		}
		return e.UserProductInfo.ModifiedAt.Local().Format(DateTimeLayout)
	case ColReview:
		if e.UserProductInfo.Reviewed {
			return "✓"
		}
		return ""
	case ColEpisodes:
		return Episodes(e)
	}

	switch v := CellValue(e, col).(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case time.Time:
		return v.Format(DateTimeLayout)
	default:
		return fmt.Sprint(v)
	}
}

// Episodes renders "watched/released", plus "/total" while not every episode is released. Unknown counts are "?".
func Episodes(e *models.UserProductListEntry) string {
	watched := e.UserProductInfo.UserShowInfo.EpisodesWatched
	released := e.Product.ItemsReleasedCount
	total := e.Product.ItemsCount
	if watched == nil && released == nil && total == nil {
		return ""
	}

	s := optInt(watched) + "/" + optInt(released)
	if released != nil && total != nil && *released < *total {
		s += "/" + strconv.Itoa(*total)
	}
	return s
}

func optInt(v *int) string {
	if v == nil {
		return "?"
	}
	return strconv.Itoa(*v)
}
