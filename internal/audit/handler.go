package audit

import (
	"net/http"
	"strconv"

	"github.com/monkeyscms/monkeys/internal/server"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 100
)

// Handler serves read access to the audit log.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /admin/api/audit-log.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := Filters{
		Action:   r.URL.Query().Get("action"),
		Resource: r.URL.Query().Get("resource"),
	}
	page, perPage := parsePagination(r)

	entries, total, err := h.service.List(r.Context(), filters, page, perPage)
	if err != nil {
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list audit entries", nil)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	server.Paginated(w, entries, server.PaginationMeta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// parsePagination extracts page and per_page from the query string, falling
// back to defaults on anything invalid and capping per_page.
func parsePagination(r *http.Request) (page, perPage int) {
	page = defaultPage
	perPage = defaultPerPage

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perPage = n
		}
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
