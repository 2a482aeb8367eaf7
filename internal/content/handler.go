package content

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/monkeyscms/monkeys/internal/auth"
	"github.com/monkeyscms/monkeys/internal/server"
	"github.com/monkeyscms/monkeys/internal/types"
)

// Handler exposes entry CRUD over HTTP. The {type} URL parameter selects
// the content type; unknown types surface as 404.
type Handler struct {
	engine *Engine
}

// NewHandler creates a content Handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// List handles GET /content/{type}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseListOptions(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}

	result, err := h.engine.List(r.Context(), chi.URLParam(r, "type"), opts)
	if err != nil {
		h.fail(w, err)
		return
	}

	server.Paginated(w, result.Items, server.PaginationMeta{
		Page:       result.Page,
		PerPage:    result.PerPage,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// Get handles GET /content/{type}/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.engine.Get(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, entry)
}

// Create handles POST /content/{type}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_JSON",
			"request body is not valid JSON", nil)
		return
	}

	entry, err := h.engine.Create(r.Context(), chi.URLParam(r, "type"), data,
		auth.AdminIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusCreated, entry)
}

// Update handles PATCH /content/{type}/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_JSON",
			"request body is not valid JSON", nil)
		return
	}

	entry, err := h.engine.Update(r.Context(), chi.URLParam(r, "type"),
		chi.URLParam(r, "id"), data, auth.AdminIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /content/{type}/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.engine.Delete(r.Context(), chi.URLParam(r, "type"),
		chi.URLParam(r, "id"), auth.AdminIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !removed {
		server.Error(w, http.StatusNotFound, "NOT_FOUND", "entry not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps engine errors onto the API error envelope.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var validation *ValidationError
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, ErrNotFound):
		server.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.As(err, &validation):
		server.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"entry data failed validation", validation.Fields)
	default:
		slog.Error("content operation failed", "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"internal server error", nil)
	}
}
