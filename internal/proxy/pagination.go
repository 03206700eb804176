package proxy

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	defaultPageSize = 5
	movieSortField  = "releaseDate"
	movieSortOrder  = "desc"
)

// BackendPage converts the 1-based page shown to callers into the backend's
// 0-based page. Absent, non-numeric or non-positive input maps to 0.
func BackendPage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0
	}
	return page - 1
}

// PageSize parses the requested page size, defaulting when it is absent or
// not a positive integer.
func PageSize(raw string) int {
	size, err := strconv.Atoi(raw)
	if err != nil || size < 1 {
		return defaultPageSize
	}
	return size
}

// MoviesQuery builds the catalog query for the movie list: normalized
// pagination, a fixed newest-first order and an optional title filter.
func MoviesQuery(r *http.Request) url.Values {
	in := r.URL.Query()

	out := url.Values{}
	out.Set("page", strconv.Itoa(BackendPage(in.Get("page"))))
	out.Set("size", strconv.Itoa(PageSize(in.Get("size"))))
	out.Set("sortBy", movieSortField)
	out.Set("direction", movieSortOrder)

	if search := in.Get("search"); search != "" {
		out.Set("title", search)
	}

	return out
}
