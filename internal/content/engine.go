package content

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/monkeyscms/monkeys/internal/audit"
	"github.com/monkeyscms/monkeys/internal/field"
	"github.com/monkeyscms/monkeys/internal/server"
	"github.com/monkeyscms/monkeys/internal/slug"
	"github.com/monkeyscms/monkeys/internal/types"
)

// Publication statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// TypeResolver resolves a machine name to its current definition.
// *types.Manager is the production implementation.
type TypeResolver interface {
	GetType(ctx context.Context, name string) (*types.Definition, error)
}

// Store runs the dynamic SQL for one entry table. *Repository is the
// production implementation.
type Store interface {
	Insert(ctx context.Context, table string, row map[string]any, returning []string) (map[string]any, error)
	Update(ctx context.Context, table, id string, values map[string]any, returning []string) (map[string]any, error)
	Delete(ctx context.Context, table, id string) (bool, error)
	Get(ctx context.Context, table string, columns []string, id string) (map[string]any, error)
	List(ctx context.Context, table string, columns []string, q ListQuery) ([]map[string]any, int, error)
}

// ValidationError is returned when entry data fails validation before any
// SQL runs.
type ValidationError struct {
	Fields []server.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field errors", len(e.Fields))
}

// Engine implements entry CRUD for one type family, parameterized over
// each type's resolved field collection at the moment of the call.
type Engine struct {
	kind     types.Kind
	resolver TypeResolver
	store    Store
	audit    *audit.Service
}

// NewEngine creates an Engine for the given kind. The audit service is
// optional; if nil, audit events are skipped.
func NewEngine(kind types.Kind, resolver TypeResolver, store Store, auditSvc *audit.Service) *Engine {
	return &Engine{kind: kind, resolver: resolver, store: store, audit: auditSvc}
}

// columnsFor lists an entry table's columns in their physical order.
func columnsFor(def *types.Definition) []string {
	cols := []string{"id", "uuid"}
	if def.HasTitle {
		cols = append(cols, "title")
	}
	if def.HasSlug {
		cols = append(cols, "slug")
	}
	cols = append(cols, def.Fields.Identifiers()...)
	if def.Capabilities.Publishable {
		cols = append(cols, "status", "published_at")
	}
	if def.Capabilities.HasAuthor {
		cols = append(cols, "author_id")
	}
	if def.Capabilities.Revisionable {
		cols = append(cols, "revision_id")
	}
	if def.Capabilities.Translatable {
		cols = append(cols, "language", "translation_of")
	}
	return append(cols, "created_at", "updated_at")
}

// Create validates, serializes, and inserts a new entry, returning the
// stored row with cast field values.
func (e *Engine) Create(ctx context.Context, typeName string, data map[string]any, actorID string) (map[string]any, error) {
	def, err := e.resolver.GetType(ctx, typeName)
	if err != nil {
		return nil, err
	}

	if errs := missingRequired(def, data); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	now := time.Now().UTC()
	row := map[string]any{
		"uuid":       uuid.NewString(),
		"created_at": now,
		"updated_at": now,
	}

	title, _ := data["title"].(string)
	if def.HasTitle {
		row["title"] = title
	}
	if def.HasSlug {
		if s, ok := data["slug"].(string); ok && s != "" {
			row["slug"] = slug.Make(s)
		} else {
			row["slug"] = slug.Make(title)
		}
	}

	if def.Capabilities.Publishable {
		status := StatusDraft
		if s, ok := data["status"].(string); ok && s != "" {
			status = s
		}
		row["status"] = status
		if status == StatusPublished {
			row["published_at"] = now
		}
	}
	if def.Capabilities.Translatable {
		language := "und"
		if l, ok := data["language"].(string); ok && l != "" {
			language = l
		}
		row["language"] = language
	}
	if def.Capabilities.HasAuthor {
		if id, ok := toInt64(data["author_id"]); ok {
			row["author_id"] = id
		}
	}

	if errs := serializeFields(def, data, row); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	entry, err := e.store.Insert(ctx, def.Table(e.kind), row, columnsFor(def))
	if err != nil {
		return nil, fmt.Errorf("creating %s entry: %w", typeName, err)
	}

	cast, err := e.castRow(def, entry)
	if err != nil {
		return nil, err
	}
	e.log(ctx, "entry.create", actorID, typeName, cast)
	return cast, nil
}

// Update serializes and applies a partial update: keys absent from data
// are left untouched, never nulled.
func (e *Engine) Update(ctx context.Context, typeName, id string, data map[string]any, actorID string) (map[string]any, error) {
	def, err := e.resolver.GetType(ctx, typeName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	values := map[string]any{"updated_at": now}

	if def.HasTitle {
		if t, ok := data["title"].(string); ok {
			values["title"] = t
		}
	}
	if def.HasSlug {
		if s, ok := data["slug"].(string); ok && s != "" {
			values["slug"] = slug.Make(s)
		}
	}
	if def.Capabilities.Publishable {
		if s, ok := data["status"].(string); ok && s != "" {
			values["status"] = s
			// Entering published stamps the timestamp unless the caller
			// supplied one.
			if s == StatusPublished {
				if _, supplied := data["published_at"]; !supplied {
					values["published_at"] = now
				}
			}
		}
		if p, ok := data["published_at"]; ok {
			ts, err := parseTemporal(p, time.RFC3339, "2006-01-02 15:04:05")
			if err != nil {
				return nil, &ValidationError{Fields: []server.FieldError{{
					Field: "published_at", Message: err.Error(),
				}}}
			}
			values["published_at"] = ts.UTC()
		}
	}
	if def.Capabilities.Translatable {
		if l, ok := data["language"].(string); ok && l != "" {
			values["language"] = l
		}
	}

	if errs := serializeFields(def, data, values); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	entry, err := e.store.Update(ctx, def.Table(e.kind), id, values, columnsFor(def))
	if err != nil {
		return nil, err
	}

	cast, err := e.castRow(def, entry)
	if err != nil {
		return nil, err
	}
	e.log(ctx, "entry.update", actorID, typeName, cast)
	return cast, nil
}

// Delete hard-deletes an entry, reporting whether a row was removed.
func (e *Engine) Delete(ctx context.Context, typeName, id string, actorID string) (bool, error) {
	def, err := e.resolver.GetType(ctx, typeName)
	if err != nil {
		return false, err
	}

	removed, err := e.store.Delete(ctx, def.Table(e.kind), id)
	if err != nil {
		return false, err
	}
	if removed {
		e.log(ctx, "entry.delete", actorID, typeName, map[string]any{"uuid": id})
	}
	return removed, nil
}

// Get reads one entry and casts every declared field to its API shape.
func (e *Engine) Get(ctx context.Context, typeName, id string) (map[string]any, error) {
	def, err := e.resolver.GetType(ctx, typeName)
	if err != nil {
		return nil, err
	}

	entry, err := e.store.Get(ctx, def.Table(e.kind), columnsFor(def), id)
	if err != nil {
		return nil, err
	}
	return e.castRow(def, entry)
}

// ListResult is one page of entries plus pagination totals.
type ListResult struct {
	Items      []map[string]any
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// List returns a filtered, sorted page. Search matches the title column
// only and is ignored for types without a title.
func (e *Engine) List(ctx context.Context, typeName string, opts ListOptions) (*ListResult, error) {
	def, err := e.resolver.GetType(ctx, typeName)
	if err != nil {
		return nil, err
	}

	sortCol := opts.Sort
	if sortCol == "" {
		sortCol = "created_at"
	}
	if !sortable(def, sortCol) {
		return nil, &ValidationError{Fields: []server.FieldError{{
			Field: "sort", Message: "unknown sort column " + sortCol,
		}}}
	}

	q := ListQuery{
		Sort:   sortCol,
		Order:  opts.Order,
		Limit:  opts.PerPage,
		Offset: opts.Offset(),
	}
	if def.Capabilities.Publishable {
		q.Status = opts.Status
	}
	if def.HasTitle {
		q.TitleSearch = opts.Search
	}

	items, total, err := e.store.List(ctx, def.Table(e.kind), columnsFor(def), q)
	if err != nil {
		return nil, fmt.Errorf("listing %s entries: %w", typeName, err)
	}

	cast := make([]map[string]any, len(items))
	for i, item := range items {
		if cast[i], err = e.castRow(def, item); err != nil {
			return nil, err
		}
	}

	totalPages := 0
	if opts.PerPage > 0 {
		totalPages = (total + opts.PerPage - 1) / opts.PerPage
	}
	return &ListResult{
		Items:      cast,
		Total:      total,
		Page:       opts.Page,
		PerPage:    opts.PerPage,
		TotalPages: totalPages,
	}, nil
}

// sortable reports whether col exists on the type's table and may be used
// as an ORDER BY target.
func sortable(def *types.Definition, col string) bool {
	for _, c := range columnsFor(def) {
		if c == col {
			return true
		}
	}
	return false
}

// missingRequired reports required fields that are absent or nil in the
// create payload.
func missingRequired(def *types.Definition, data map[string]any) []server.FieldError {
	var errs []server.FieldError
	for _, f := range def.Fields.Required().All() {
		if v, ok := data[f.Identifier()]; !ok || v == nil {
			errs = append(errs, server.FieldError{
				Field:   f.Identifier(),
				Message: "required field is missing",
			})
		}
	}
	return errs
}

// serializeFields serializes each declared field present in data into dst.
// Keys that match no declared field are ignored.
func serializeFields(def *types.Definition, data map[string]any, dst map[string]any) []server.FieldError {
	var errs []server.FieldError
	for _, f := range def.Fields.All() {
		v, ok := data[f.Identifier()]
		if !ok {
			continue
		}
		stored, err := Serialize(f, v)
		if err != nil {
			errs = append(errs, server.FieldError{
				Field:   f.Identifier(),
				Message: err.Error(),
			})
			continue
		}
		dst[f.Identifier()] = stored
	}
	return errs
}

// castRow converts a stored row to its API shape: declared fields through
// their casts, the uuid to its string form.
func (e *Engine) castRow(def *types.Definition, row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row))
	declared := make(map[string]field.Definition, def.Fields.Count())
	for _, f := range def.Fields.All() {
		declared[f.Identifier()] = f
	}

	for k, v := range row {
		if f, ok := declared[k]; ok {
			cast, err := Cast(f, v)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", def.Name, err)
			}
			out[k] = cast
			continue
		}
		if k == "uuid" {
			if raw, ok := v.([16]byte); ok {
				out[k] = uuid.UUID(raw).String()
				continue
			}
		}
		out[k] = v
	}
	return out, nil
}

// log records an audit event for an entry mutation.
func (e *Engine) log(ctx context.Context, action, actorID, typeName string, entry map[string]any) {
	if e.audit == nil {
		return
	}
	id, _ := entry["uuid"].(string)
	e.audit.Log(ctx, audit.Event{
		Action:     action,
		ActorID:    actorID,
		Resource:   e.kind.Table(typeName),
		ResourceID: id,
	})
}
