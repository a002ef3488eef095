package render

// DefaultPageSize is the number of history rows per page.
const DefaultPageSize = 8

// Page returns the 1-based page of items and the page count. Out of range
// pages are clamped.
func Page[T any](items []T, page, size int) ([]T, int, int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (len(items) + size - 1) / size
	if pages == 0 {
		return nil, 1, 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	return items[start:end], page, pages
}
