package types

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/monkeyscms/monkeys/internal/audit"
	"github.com/monkeyscms/monkeys/internal/auth"
	"github.com/monkeyscms/monkeys/internal/field"
	"github.com/monkeyscms/monkeys/internal/server"
)

// Handler exposes one Manager's type registry over HTTP. The same handler
// serves both families; the router mounts an instance per kind.
type Handler struct {
	manager *Manager
	audit   *audit.Service
}

// NewHandler creates a Handler for the manager's kind. The audit service
// is optional; if nil, audit events are skipped.
func NewHandler(manager *Manager, auditSvc *audit.Service) *Handler {
	return &Handler{manager: manager, audit: auditSvc}
}

// fieldResponse is the wire form of one attached field.
type fieldResponse struct {
	ID           int64          `json:"id,omitempty"`
	Label        string         `json:"label"`
	Identifier   string         `json:"identifier"`
	Type         string         `json:"type"`
	Category     string         `json:"category"`
	Description  string         `json:"description,omitempty"`
	Widget       string         `json:"widget,omitempty"`
	Required     bool           `json:"required"`
	Multiple     bool           `json:"multiple"`
	Cardinality  int            `json:"cardinality"`
	Default      any            `json:"default,omitempty"`
	Settings     map[string]any `json:"settings,omitempty"`
	Validation   map[string]any `json:"validation,omitempty"`
	Weight       int            `json:"weight"`
	Searchable   bool           `json:"searchable"`
	Translatable bool           `json:"translatable"`
}

// typeResponse is the wire form of one type definition.
type typeResponse struct {
	ID           int64           `json:"id,omitempty"`
	Name         string          `json:"name"`
	Label        string          `json:"label"`
	LabelPlural  string          `json:"label_plural,omitempty"`
	Description  string          `json:"description,omitempty"`
	Icon         string          `json:"icon,omitempty"`
	Source       Source          `json:"source"`
	System       bool            `json:"system"`
	Weight       int             `json:"weight"`
	HasTitle     bool            `json:"has_title"`
	HasSlug      bool            `json:"has_slug"`
	Capabilities Capabilities    `json:"capabilities"`
	Settings     map[string]any  `json:"settings,omitempty"`
	Table        string          `json:"table"`
	Fields       []fieldResponse `json:"fields"`
}

func (h *Handler) toTypeResponse(d *Definition) typeResponse {
	resp := typeResponse{
		ID:           d.ID,
		Name:         d.Name,
		Label:        d.Label,
		LabelPlural:  d.LabelPlural,
		Description:  d.Description,
		Icon:         d.Icon,
		Source:       d.Source,
		System:       d.System,
		Weight:       d.Weight,
		HasTitle:     d.HasTitle,
		HasSlug:      d.HasSlug,
		Capabilities: d.Capabilities,
		Settings:     d.Settings,
		Table:        d.Table(h.manager.Kind()),
		Fields:       make([]fieldResponse, 0, d.Fields.Count()),
	}
	for _, f := range d.Fields.All() {
		resp.Fields = append(resp.Fields, toFieldResponse(f))
	}
	return resp
}

func toFieldResponse(f field.Definition) fieldResponse {
	return fieldResponse{
		ID:           f.ID(),
		Label:        f.Label(),
		Identifier:   f.Identifier(),
		Type:         string(f.FieldType()),
		Category:     string(f.FieldType().CategoryOf()),
		Description:  f.Description(),
		Widget:       f.Widget(),
		Required:     f.Required(),
		Multiple:     f.Multiple(),
		Cardinality:  f.Cardinality(),
		Default:      f.Default(),
		Settings:     f.Settings(),
		Validation:   f.Validation(),
		Weight:       f.Weight(),
		Searchable:   f.Searchable(),
		Translatable: f.Translatable(),
	}
}

// List handles GET /{kinds}. It returns the merged code- and
// database-defined set.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.manager.GetTypes(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	resp := make([]typeResponse, 0, len(defs))
	for _, d := range defs {
		resp = append(resp, h.toTypeResponse(d))
	}
	server.JSON(w, http.StatusOK, resp)
}

// Get handles GET /{kinds}/{name}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.manager.GetType(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, h.toTypeResponse(d))
}

// fieldRequest is the wire form of a field to attach. Cardinality is a
// pointer so "absent" and "explicit zero" can be told apart: zero is
// rejected, absent falls back to the single-value default.
type fieldRequest struct {
	Label        string         `json:"label"`
	Identifier   string         `json:"identifier"`
	Type         string         `json:"type"`
	Description  string         `json:"description"`
	Widget       string         `json:"widget"`
	Required     bool           `json:"required"`
	Multiple     bool           `json:"multiple"`
	Cardinality  *int           `json:"cardinality"`
	Default      any            `json:"default"`
	Settings     map[string]any `json:"settings"`
	Validation   map[string]any `json:"validation"`
	Weight       int            `json:"weight"`
	Searchable   bool           `json:"searchable"`
	Translatable bool           `json:"translatable"`
}

func (fr fieldRequest) toDefinition() (field.Definition, error) {
	d, err := field.New(fr.Label, fr.Identifier, fr.Type)
	if err != nil {
		return field.Definition{}, err
	}
	d = d.
		WithDescription(fr.Description).
		WithWidget(fr.Widget).
		WithRequired(fr.Required).
		WithMultiple(fr.Multiple).
		WithWeight(fr.Weight).
		WithSearchable(fr.Searchable).
		WithTranslatable(fr.Translatable).
		WithSettings(fr.Settings).
		WithValidation(fr.Validation)
	if fr.Cardinality != nil {
		d = d.WithCardinality(*fr.Cardinality)
	}
	if fr.Default != nil {
		d = d.WithDefault(fr.Default)
	}
	return d, nil
}

// validCardinality reports whether a requested cardinality makes sense:
// unlimited (-1) or a positive count.
func validCardinality(c *int) bool {
	return c == nil || *c == field.CardinalityUnlimited || *c > 0
}

// createTypeRequest is the wire form of a new database-defined type.
type createTypeRequest struct {
	Name         string         `json:"name"`
	Label        string         `json:"label"`
	LabelPlural  string         `json:"label_plural"`
	Description  string         `json:"description"`
	Icon         string         `json:"icon"`
	Weight       int            `json:"weight"`
	HasTitle     bool           `json:"has_title"`
	HasSlug      bool           `json:"has_slug"`
	Capabilities Capabilities   `json:"capabilities"`
	Settings     map[string]any `json:"settings"`
	Fields       []fieldRequest `json:"fields"`
}

// Create handles POST /{kinds}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_JSON",
			"request body is not valid JSON", nil)
		return
	}

	fields := field.NewCollection()
	for i, fr := range req.Fields {
		if !validCardinality(fr.Cardinality) {
			server.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"invalid field definition", []server.FieldError{{
					Field:   "fields[" + strconv.Itoa(i) + "].cardinality",
					Message: "must be a positive count or -1 for unlimited",
				}})
			return
		}
		d, err := fr.toDefinition()
		if err != nil {
			server.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"invalid field definition", []server.FieldError{{
					Field:   "fields[" + strconv.Itoa(i) + "]",
					Message: err.Error(),
				}})
			return
		}
		if fields.Has(d.Identifier()) {
			server.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"invalid field definition", []server.FieldError{{
					Field:   "fields[" + strconv.Itoa(i) + "].identifier",
					Message: "duplicate identifier " + d.Identifier(),
				}})
			return
		}
		fields = fields.Add(d)
	}

	created, err := h.manager.CreateDatabaseType(r.Context(), &Definition{
		Name:         req.Name,
		Label:        req.Label,
		LabelPlural:  req.LabelPlural,
		Description:  req.Description,
		Icon:         req.Icon,
		Weight:       req.Weight,
		HasTitle:     req.HasTitle,
		HasSlug:      req.HasSlug,
		Capabilities: req.Capabilities,
		Settings:     req.Settings,
		Fields:       fields,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.log(r, "create", created.Name, map[string]any{"label": created.Label})
	server.JSON(w, http.StatusCreated, h.toTypeResponse(created))
}

// updateTypeRequest carries a partial type update; absent keys leave the
// current value in place.
type updateTypeRequest struct {
	Label       *string        `json:"label"`
	LabelPlural *string        `json:"label_plural"`
	Description *string        `json:"description"`
	Icon        *string        `json:"icon"`
	Weight      *int           `json:"weight"`
	Settings    map[string]any `json:"settings"`
}

// Update handles PATCH /{kinds}/{name}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_JSON",
			"request body is not valid JSON", nil)
		return
	}

	name := chi.URLParam(r, "name")
	updated, err := h.manager.UpdateDatabaseType(r.Context(), name, TypeUpdate{
		Label:       req.Label,
		LabelPlural: req.LabelPlural,
		Description: req.Description,
		Icon:        req.Icon,
		Weight:      req.Weight,
		Settings:    req.Settings,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.log(r, "update", name, nil)
	server.JSON(w, http.StatusOK, h.toTypeResponse(updated))
}

// Delete handles DELETE /{kinds}/{name}. The backing table and its data
// survive unless ?drop_table=true is passed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dropTable := r.URL.Query().Get("drop_table") == "true"

	if err := h.manager.DeleteDatabaseType(r.Context(), name, dropTable); err != nil {
		h.fail(w, err)
		return
	}

	h.log(r, "delete", name, map[string]any{"drop_table": dropTable})
	w.WriteHeader(http.StatusNoContent)
}

// AttachField handles POST /{kinds}/{name}/fields.
func (h *Handler) AttachField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_JSON",
			"request body is not valid JSON", nil)
		return
	}
	if !validCardinality(req.Cardinality) {
		server.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"invalid field definition", []server.FieldError{{
				Field:   "cardinality",
				Message: "must be a positive count or -1 for unlimited",
			}})
		return
	}

	d, err := req.toDefinition()
	if err != nil {
		h.fail(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	attached, err := h.manager.AttachField(r.Context(), name, d)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.log(r, "field_attach", name, map[string]any{"field": attached.Identifier()})
	server.JSON(w, http.StatusCreated, toFieldResponse(attached))
}

// DetachField handles DELETE /{kinds}/{name}/fields/{identifier}. The
// column and its data survive unless ?drop_column=true is passed.
func (h *Handler) DetachField(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	identifier := chi.URLParam(r, "identifier")
	dropColumn := r.URL.Query().Get("drop_column") == "true"

	if err := h.manager.DetachField(r.Context(), name, identifier, dropColumn); err != nil {
		h.fail(w, err)
		return
	}

	h.log(r, "field_detach", name, map[string]any{
		"field":       identifier,
		"drop_column": dropColumn,
	})
	w.WriteHeader(http.StatusNoContent)
}

// fail maps manager errors onto the API error envelope.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var notFound *field.NotFoundError
	switch {
	case errors.Is(err, ErrNotFound):
		server.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.As(err, &notFound):
		server.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrDuplicateType), errors.Is(err, ErrDuplicateField):
		server.Error(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrImmutableType), errors.Is(err, ErrSystemProtected):
		server.Error(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ErrEmptyLabel), errors.Is(err, ErrInvalidName),
		errors.Is(err, field.ErrEmptyLabel), errors.Is(err, field.ErrInvalidIdentifier),
		errors.Is(err, field.ErrUnknownType):
		server.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		slog.Error("type registry operation failed",
			"kind", h.manager.Kind().Name, "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"internal server error", nil)
	}
}

// log records an audit event for a registry mutation.
func (h *Handler) log(r *http.Request, action, name string, payload map[string]any) {
	if h.audit == nil {
		return
	}
	h.audit.Log(r.Context(), audit.Event{
		Action:     h.manager.Kind().Name + "_type." + action,
		ActorID:    auth.AdminIDFromContext(r.Context()),
		Resource:   h.manager.Kind().MetaTable,
		ResourceID: name,
		Payload:    payload,
	})
}
