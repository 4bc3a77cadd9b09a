// package formatter exports list data to an xlsx workbook and dumps lists as CSV, JSON or YAML
package formatter

import (
	"time"

	"github.com/desertthunder/mustx/internal/models"
)

const (
	IssuesURL = "https://github.com/VsevolodGolovanov/mustapp-exporter/issues"

	minTitleWidth = 30
	maxTitleWidth = 80
	// 10 is enough for all data, 11 also fits the "Release date" header
	otherWidth = 11
)

// kind selects how a value is written.
type kind int

const (
	kindText kind = iota
	kindNumber
	kindDate
	kindDateTime
)

// exportColumn is one column of an exported list.
type exportColumn struct {
	name  string
	kind  kind
	value func(e *models.UserProductListEntry) any
}

var (
	colTitle = exportColumn{"Title", kindText, func(e *models.UserProductListEntry) any {
		return e.Product.Title
	}}
	colReleaseDate = exportColumn{"Release date", kindDate, func(e *models.UserProductListEntry) any {
		return timeOrNil(e.Product.ReleaseDate.Ptr())
	}}
	colModified = exportColumn{"Modified", kindDateTime, func(e *models.UserProductListEntry) any {
		return timeOrNil(e.UserProductInfo.ModifiedAt.Ptr())
	}}
	colRating = exportColumn{"Rating", kindNumber, func(e *models.UserProductListEntry) any {
		return intOrNil(e.UserProductInfo.Rate)
	}}
	colReviewed = exportColumn{"Reviewed", kindDateTime, func(e *models.UserProductListEntry) any {
		if e.UserProductInfo.Review == nil {
			return nil
		}
		return timeOrNil(e.UserProductInfo.Review.ReviewedAt.Ptr())
	}}
	colReview = exportColumn{"Review", kindText, func(e *models.UserProductListEntry) any {
		if e.UserProductInfo.Review == nil || e.UserProductInfo.Review.Body == "" {
			return nil
		}
		return e.UserProductInfo.Review.Body
	}}
	colWatched = exportColumn{"Watched", kindNumber, func(e *models.UserProductListEntry) any {
		return intOrNil(e.UserProductInfo.UserShowInfo.EpisodesWatched)
	}}
	colReleased = exportColumn{"Released", kindNumber, func(e *models.UserProductListEntry) any {
		return intOrNil(e.Product.ItemsReleasedCount)
	}}
	colTotal = exportColumn{"Total", kindNumber, func(e *models.UserProductListEntry) any {
		return intOrNil(e.Product.ItemsCount)
	}}
)

var exportColumns = map[models.ListKey][]exportColumn{
	models.ListWant:    {colTitle, colReleaseDate, colModified},
	models.ListShows:   {colTitle, colReleaseDate, colModified, colWatched, colReleased, colTotal},
	models.ListWatched: {colTitle, colReleaseDate, colModified, colRating, colReviewed, colReview},
}

// ExportColumns returns the exported column names for key.
func ExportColumns(key models.ListKey) []string {
	cols := exportColumns[key]
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// ExportFilename returns MustAppExport-YYYY-MM-DD-HH-MM-SS.xlsx for t in its own location.
func ExportFilename(t time.Time) string {
	return "MustAppExport-" + t.Format("2006-01-02-15-04-05") + ".xlsx"
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
