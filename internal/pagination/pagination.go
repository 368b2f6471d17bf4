// Package pagination holds the page arithmetic shared by every paginated listing.
package pagination

import "errors"

var (
	// ErrNoMorePages indicates the requested page is past the last one.
	ErrNoMorePages = errors.New("no more pages")
	// ErrInvalidPerPage indicates a non-positive page size.
	ErrInvalidPerPage = errors.New("per page must be positive")
)

// PageCount returns ceil(total / perPage).
func PageCount(total, perPage int) (int, error) {
	if perPage <= 0 {
		return 0, ErrInvalidPerPage
	}
	if total <= 0 {
		return 0, nil
	}
	return 1 + (total-1)/perPage, nil
}

// Validate reports whether page may be served. Page 0 is always valid, even
// when there is nothing to show.
func Validate(page, pageCount int) error {
	if page == 0 {
		return nil
	}
	if page < 0 || page >= pageCount {
		return ErrNoMorePages
	}
	return nil
}

// Offset is the number of items preceding page.
func Offset(page, perPage int) int {
	return page * perPage
}

// Bounds returns the [start, end) slice bounds of limit items starting at
// offset, clamped to total.
func Bounds(offset, limit, total int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	if limit <= 0 {
		return offset, offset
	}
	if limit > total-offset {
		return offset, total
	}
	return offset, offset + limit
}
