package util

const (
	DefaultPageSize = 10
	maxPageSize     = 100
)

// Offset turns a 1-based page number and requested page size into an SQL
// offset and a clamped limit. Out-of-range input falls back to the first
// page and the default size rather than erroring.
func Offset(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = DefaultPageSize
	}
	return (page - 1) * size, size
}
