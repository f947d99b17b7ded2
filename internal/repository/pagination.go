package repository

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageWindow normalizes 1-based page parameters into LIMIT/OFFSET values.
func pageWindow(page, pageSize int) (limit, offset, normalizedPage int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return pageSize, (page - 1) * pageSize, page
}
