package models

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items         []T
	PageIndex     int // zero-based
	PageSize      int
	TotalElements int64
	TotalPages    int
}

// NewPage fills TotalPages as ceil(total/size), 0 when total is 0.
func NewPage[T any](items []T, pageIndex, pageSize int, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 && total > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Page[T]{
		Items:         items,
		PageIndex:     pageIndex,
		PageSize:      pageSize,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// Number is the one-based page number shown to users, 0 when there are no pages.
func (p *Page[T]) Number() int {
	if p.TotalPages == 0 {
		return 0
	}
	return p.PageIndex + 1
}

func (p *Page[T]) HasNext() bool {
	return p.PageIndex+1 < p.TotalPages
}

func (p *Page[T]) HasPrevious() bool {
	return p.PageIndex > 0
}
