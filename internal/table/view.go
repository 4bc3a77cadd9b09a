package table

import (
	"github.com/desertthunder/mustx/internal/models"
)

const DefaultBatchSize = 50

// SortState is the active sort; a zero Column means unsorted.
type SortState struct {
	Column    Column
	Ascending bool
}

// View combines the selected list with its filter, sort, pager and expanded row.
//
// Every change to the selection, filter or sort rebuilds the visible data and resets the pager.
type View struct {
	lists    models.UserProductLists
	selected models.ListKey
	filter   string
	sort     SortState
	expanded int64
	pager    *Pager[models.UserProductListEntry]
}

// NewView creates a view on lists with the first list selected.
func NewView(lists models.UserProductLists, batchSize, preload int) *View {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	v := &View{
		lists:    lists,
		selected: models.ListKeys[0],
		pager:    NewPager[models.UserProductListEntry](batchSize, preload),
	}
	v.refresh()
	return v
}

// Selected returns the selected list.
func (v *View) Selected() models.ListKey { return v.selected }

// Select switches lists. The filter is kept; a sort on a column the list does not show is dropped.
func (v *View) Select(key models.ListKey) {
	if !key.Valid() || key == v.selected {
		return
	}
	v.selected = key
	if v.sort.Column != "" && !HasColumn(key, v.sort.Column) {
		v.sort = SortState{}
	}
	v.expanded = 0
	v.refresh()
}

// Columns returns the columns of the selected list.
func (v *View) Columns() []Column { return Columns(v.selected) }

// Filter returns the title filter.
func (v *View) Filter() string { return v.filter }

// SetFilter applies a title filter.
func (v *View) SetFilter(text string) {
	if text == v.filter {
		return
	}
	v.filter = text
	v.refresh()
}

// Sort returns the active sort.
func (v *View) Sort() SortState { return v.sort }

// SetSort sorts by col; an empty col clears sorting.
func (v *View) SetSort(col Column, ascending bool) {
	v.sort = SortState{Column: col, Ascending: ascending}
	v.refresh()
}

// CycleSort moves col through ascending, descending and unsorted.
func (v *View) CycleSort(col Column) {
	switch {
	case v.sort.Column != col:
		v.SetSort(col, true)
	case v.sort.Ascending:
		v.SetSort(col, false)
	default:
		v.SetSort("", true)
	}
}

// Rows returns the loaded rows of the transformed list.
func (v *View) Rows() models.UserProductList { return v.pager.Rows() }

// All returns the complete transformed list.
func (v *View) All() models.UserProductList { return v.pager.data }

// Total returns the size of the transformed list.
func (v *View) Total() int { return v.pager.Len() }

// LoadMore loads the next batch of rows; complete reports that nothing was left.
func (v *View) LoadMore() (loaded int, complete bool) { return v.pager.Next() }

// LoadAll loads every row.
func (v *View) LoadAll() { v.pager.LoadAll() }

// Complete reports whether every row is loaded.
func (v *View) Complete() bool { return v.pager.Complete() }

// ToggleExpanded expands the entry's detail, or collapses it when already expanded. One row is expanded at a time.
func (v *View) ToggleExpanded(e *models.UserProductListEntry) {
	id := e.ProductID()
	if v.expanded == id {
		v.expanded = 0
		return
	}
	v.expanded = id
}

// Expanded reports whether e's detail is shown.
func (v *View) Expanded(e *models.UserProductListEntry) bool {
	return v.expanded != 0 && v.expanded == e.ProductID()
}

// Descriptors returns per-list names and counts for navigation.
func (v *View) Descriptors() []models.ListDescriptor {
	out := make([]models.ListDescriptor, 0, len(models.ListKeys))
	for _, key := range models.ListKeys {
		out = append(out, models.ListDescriptor{Key: key, Name: key.Title(), EntryCount: len(v.lists[key])})
	}
	return out
}

func (v *View) refresh() {
	data := FilterByTitle(v.lists[v.selected], v.filter)
	if v.sort.Column != "" {
		data = Sort(data, v.sort.Column, v.sort.Ascending)
	}
	v.pager.SetData(data)
}
