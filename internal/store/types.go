package store

import "cudorms-backend/internal/model"

// Page selects a 1-based page of Limit items.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// DormFilter narrows a dorm listing. Zero values disable a filter.
type DormFilter struct {
	Page
	Search    string
	Year      model.Year
	MinRating float64
}

// BlogFilter narrows a blog listing. Only published posts are returned
// unless IncludeDrafts is set.
type BlogFilter struct {
	Page
	Search        string
	Category      model.Category
	Dorm          string
	Author        string
	IncludeDrafts bool
}

// ProfilePatch carries the user profile fields to overwrite; nil means unchanged.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Year      *model.Year
	Avatar    *string
}

func (p ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Year == nil && p.Avatar == nil
}
