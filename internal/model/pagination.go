package model

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page int `json:"page" form:"page"`
	Size int `json:"size" form:"size"`
}

// Normalize applies defaults and caps the size at MaxPageSize.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Size
}

// Limit is the number of rows to fetch.
func (p Page) Limit() int {
	return p.Normalize().Size
}

// PageResult is one page of T and the total number of matches.
type PageResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

// NewPageResult builds a result for the normalized page p.
func NewPageResult[T any](items []T, total int64, p Page) PageResult[T] {
	n := p.Normalize()
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{Items: items, Total: total, Page: n.Page, Size: n.Size}
}

// Paginate slices an in-memory result set.
func Paginate[T any](all []T, p Page) PageResult[T] {
	n := p.Normalize()
	start := n.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + n.Size
	if end > len(all) {
		end = len(all)
	}
	return NewPageResult(all[start:end], int64(len(all)), n)
}
