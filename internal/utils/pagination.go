// Package utils holds small helpers shared by the HTTP layer.
package utils

import "strconv"

// AtoiDefault parses s, returning def when s is empty or not an integer.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParams bounds page and page_size query values.
type PageParams struct {
	DefaultSize int
	MaxSize     int
}

// DefaultPageParams is 20 per page, at most 100.
var DefaultPageParams = PageParams{DefaultSize: 20, MaxSize: 100}

// Clamp parses the raw query values. Pages start at 1; sizes fall in
// [1, MaxSize].
func (p PageParams) Clamp(rawPage, rawSize string) (page, size int) {
	page = AtoiDefault(rawPage, 1)
	if page < 1 {
		page = 1
	}
	size = AtoiDefault(rawSize, p.DefaultSize)
	if size < 1 {
		size = 1
	}
	if p.MaxSize > 0 && size > p.MaxSize {
		size = p.MaxSize
	}
	return page, size
}

// TotalPages is ceil(total/size), 0 for an empty set.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
