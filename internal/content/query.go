package content

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Pagination bounds.
const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// ListOptions holds parsed list-endpoint parameters. Sort validation
// happens in the engine, where the type's field set is known.
type ListOptions struct {
	Page    int
	PerPage int
	Status  string // exact match against the status column
	Search  string // substring match against the title column
	Sort    string
	Order   string // "asc" or "desc"
}

// ParseListOptions extracts pagination, filtering, and sorting parameters
// from the request URL.
func ParseListOptions(r *http.Request) (ListOptions, error) {
	opts := ListOptions{
		Page:    1,
		PerPage: defaultPerPage,
		Sort:    "created_at",
		Order:   "desc",
	}

	query := r.URL.Query()

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return opts, fmt.Errorf("page must be a positive integer")
		}
		opts.Page = page
	}

	if v := query.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 {
			return opts, fmt.Errorf("per_page must be a positive integer")
		}
		if perPage > maxPerPage {
			perPage = maxPerPage
		}
		opts.PerPage = perPage
	}

	if v := query.Get("order"); v != "" {
		lower := strings.ToLower(v)
		if lower != "asc" && lower != "desc" {
			return opts, fmt.Errorf("order must be 'asc' or 'desc'")
		}
		opts.Order = lower
	}

	if v := query.Get("sort"); v != "" {
		opts.Sort = v
	}

	opts.Status = query.Get("status")
	opts.Search = query.Get("q")

	return opts, nil
}

// Offset returns the row offset for the current page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.PerPage
}
