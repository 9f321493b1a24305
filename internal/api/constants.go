package api

// Paths shared by handlers and tests.
const (
	apiPrefix = "/api/v1"

	// maxPageSize caps page_size on every listing.
	maxPageSize = 100
)

// Cache-Control header values.
const (
	CacheNoStore = "no-store"
)
