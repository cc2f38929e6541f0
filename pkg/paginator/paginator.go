// Package paginator slices an ordered result set into fixed-size,
// navigable pages.
package paginator

import "strconv"

// PageSize is the number of items shown per page across the whole site.
const PageSize = 10

// Page is one slice of an ordered sequence plus the metadata the
// templates need to render pagination controls.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	HasNext     bool
	HasPrev     bool
	NextPage    int
	PrevPage    int
}

// ParsePage interprets a user-supplied page parameter. Anything that is
// not a positive integer means page 1.
func ParsePage(param string) int {
	page, err := strconv.Atoi(param)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Paginate returns the requested page of items. The page parameter is
// untrusted: invalid values fall back to page 1 and numbers past the
// end clamp to the last page. An empty sequence yields a single empty
// page so callers always get valid metadata.
func Paginate[T any](items []T, pageParam string) Page[T] {
	page := ParsePage(pageParam)
	total := len(items)

	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page[T]{
		Items:       items[start:end],
		CurrentPage: page,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
		NextPage:    page + 1,
		PrevPage:    page - 1,
	}
}
