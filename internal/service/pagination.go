package service

import "cudorms-backend/internal/store"

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

func NewPagination(p store.Page, total int64) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{
		Current: p.Number,
		Pages:   pages,
		Total:   total,
		HasNext: p.Number < pages,
		HasPrev: p.Number > 1,
	}
}
