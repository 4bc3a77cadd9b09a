package table

const DefaultPreloadBatches = 1

// Pager loads an already complete dataset in batches, so a view only renders what the user has scrolled to.
type Pager[T any] struct {
	data      []T
	loaded    int
	batchSize int
	preload   int
}

// NewPager creates a pager; preload batches are loaded immediately whenever data is set.
func NewPager[T any](batchSize, preload int) *Pager[T] {
	if batchSize <= 0 {
		batchSize = 1
	}
	if preload < 0 {
		preload = DefaultPreloadBatches
	}
	return &Pager[T]{batchSize: batchSize, preload: preload}
}

// SetData replaces the dataset, resets and preloads.
func (p *Pager[T]) SetData(data []T) {
	p.data = data
	p.loaded = min(p.preload*p.batchSize, len(data))
}

// Rows returns the loaded rows.
func (p *Pager[T]) Rows() []T { return p.data[:p.loaded] }

// Loaded returns the number of loaded rows.
func (p *Pager[T]) Loaded() int { return p.loaded }

// Len returns the size of the complete dataset.
func (p *Pager[T]) Len() int { return len(p.data) }

// Next loads one more batch. complete is true when nothing was left to load.
func (p *Pager[T]) Next() (loaded int, complete bool) {
	if p.loaded >= len(p.data) {
		return p.loaded, true
	}
	p.loaded = min(p.loaded+p.batchSize, len(p.data))
	return p.loaded, false
}

// Reset unloads every row.
func (p *Pager[T]) Reset() { p.loaded = 0 }

// LoadAll loads the complete dataset.
func (p *Pager[T]) LoadAll() { p.loaded = len(p.data) }

// Complete reports whether every row is loaded.
func (p *Pager[T]) Complete() bool { return p.loaded >= len(p.data) }
