package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/desertthunder/mustx/internal/models"
	tv "github.com/desertthunder/mustx/internal/table"
)

const (
	minTitleWidth = 20
	cellWidth     = 14
)

// tableColumns builds the header for the selected list, marking the sorted column.
func tableColumns(cols []tv.Column, sort tv.SortState, width int) []table.Column {
	titleWidth := max(width-cellWidth*(len(cols)-1)-2*len(cols), minTitleWidth)
	out := make([]table.Column, len(cols))
	for i, col := range cols {
		title := fmt.Sprintf("%d %s", i+1, col)
		if sort.Column == col {
			if sort.Ascending {
				title += " ▲"
			} else {
				title += " ▼"
			}
		}

		w := cellWidth
		if col == tv.ColTitle {
			w = titleWidth
		}
		out[i] = table.Column{Title: title, Width: w}
	}
	return out
}

// tableRows renders the loaded entries with display values.
func tableRows(cols []tv.Column, list models.UserProductList) []table.Row {
	rows := make([]table.Row, len(list))
	for i := range list {
		row := make(table.Row, len(cols))
		for j, col := range cols {
			row[j] = tv.DisplayValue(&list[i], col)
		}
		rows[i] = row
	}
	return rows
}

// tabsView renders one tab per list with its entry count.
func tabsView(descriptors []models.ListDescriptor, selected models.ListKey) string {
	tabs := make([]string, len(descriptors))
	for i, d := range descriptors {
		label := fmt.Sprintf("%s (%d)", d.Name, d.EntryCount)
		if d.Key == selected {
			tabs[i] = styles.activeTab.Render(label)
		} else {
			tabs[i] = styles.tab.Render(label)
		}
	}
	return strings.Join(tabs, " ")
}

// detailView renders the expanded entry: rating, review date and review body.
func detailView(e *models.UserProductListEntry, width int) string {
	var b strings.Builder
	b.WriteString(styles.ok.Render(e.Product.Title))

	if e.UserProductInfo.Rate != nil {
		fmt.Fprintf(&b, "\nRating: %d", *e.UserProductInfo.Rate)
	}
	if eps := tv.Episodes(e); eps != "" {
		fmt.Fprintf(&b, "\nEpisodes: %s", eps)
	}

	review := e.UserProductInfo.Review
	switch {
	case review == nil || strings.TrimSpace(review.Body) == "":
		b.WriteString("\n" + styles.help.Render("No review"))
	default:
		if review.ReviewedAt.Valid() {
			fmt.Fprintf(&b, "\nReviewed %s", review.ReviewedAt.Local().Format(tv.DateTimeLayout))
		}
		b.WriteString("\n\n" + review.Body)
	}

	return styles.detail.Width(max(width-4, minTitleWidth)).Render(b.String())
}
