package content

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/monkeyscms/monkeys/internal/field"
	"github.com/monkeyscms/monkeys/internal/types"
)

// fakeResolver serves definitions from a map.
type fakeResolver struct {
	defs map[string]*types.Definition
}

func (r *fakeResolver) GetType(ctx context.Context, name string) (*types.Definition, error) {
	if d, ok := r.defs[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("content type %q: %w", name, types.ErrNotFound)
}

// fakeEntryStore records calls and echoes rows back.
type fakeEntryStore struct {
	lastTable   string
	lastRow     map[string]any
	lastValues  map[string]any
	lastQuery   ListQuery
	getRow      map[string]any
	listRows    []map[string]any
	listTotal   int
	deleteFound bool
}

func (s *fakeEntryStore) Insert(ctx context.Context, table string, row map[string]any, returning []string) (map[string]any, error) {
	s.lastTable = table
	s.lastRow = row
	out := map[string]any{"id": int64(1)}
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

func (s *fakeEntryStore) Update(ctx context.Context, table, id string, values map[string]any, returning []string) (map[string]any, error) {
	s.lastTable = table
	s.lastValues = values
	out := map[string]any{"id": int64(1), "uuid": id}
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

func (s *fakeEntryStore) Delete(ctx context.Context, table, id string) (bool, error) {
	s.lastTable = table
	return s.deleteFound, nil
}

func (s *fakeEntryStore) Get(ctx context.Context, table string, columns []string, id string) (map[string]any, error) {
	if s.getRow == nil {
		return nil, ErrNotFound
	}
	return s.getRow, nil
}

func (s *fakeEntryStore) List(ctx context.Context, table string, columns []string, q ListQuery) ([]map[string]any, int, error) {
	s.lastQuery = q
	return s.listRows, s.listTotal, nil
}

func articleType(t *testing.T) *types.Definition {
	t.Helper()
	body, err := field.New("Body", "body", "html")
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	body = body.WithRequired(true)
	rating, err := field.New("Rating", "rating", "integer")
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	tags, err := field.New("Tags", "tags", "multiselect")
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}

	return &types.Definition{
		ID:       1,
		Name:     "article",
		Label:    "Article",
		Source:   types.SourceDatabase,
		HasTitle: true,
		HasSlug:  true,
		Capabilities: types.Capabilities{
			Publishable: true,
			HasAuthor:   true,
		},
		Fields: field.NewCollection().Add(body).Add(rating).Add(tags),
	}
}

func testEngine(t *testing.T) (*Engine, *fakeEntryStore) {
	t.Helper()
	store := &fakeEntryStore{}
	resolver := &fakeResolver{defs: map[string]*types.Definition{
		"article": articleType(t),
	}}
	return NewEngine(types.ContentTypes, resolver, store, nil), store
}

func TestCreateEntry(t *testing.T) {
	ctx := context.Background()
	e, store := testEngine(t)

	entry, err := e.Create(ctx, "article", map[string]any{
		"title":      "Hello World",
		"field_body": "<p>hi</p>",
		"rating":     float64(4), // identifier without prefix is not declared
		"bogus":      "ignore me",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if store.lastTable != "ct_article" {
		t.Errorf("table = %q, want ct_article", store.lastTable)
	}
	row := store.lastRow
	if _, err := uuid.Parse(row["uuid"].(string)); err != nil {
		t.Errorf("uuid %v not parseable: %v", row["uuid"], err)
	}
	if row["title"] != "Hello World" {
		t.Errorf("title = %v", row["title"])
	}
	if row["slug"] != "hello-world" {
		t.Errorf("slug = %v, want auto-derived hello-world", row["slug"])
	}
	if row["status"] != StatusDraft {
		t.Errorf("status = %v, want draft default", row["status"])
	}
	if _, stamped := row["published_at"]; stamped {
		t.Error("published_at stamped on a draft")
	}
	if _, ok := row["bogus"]; ok {
		t.Error("unrecognized key reached the row")
	}
	if _, ok := row["rating"]; ok {
		t.Error("undeclared identifier reached the row")
	}
	if row["field_body"] != "<p>hi</p>" {
		t.Errorf("field_body = %v", row["field_body"])
	}
	if _, ok := row["created_at"].(time.Time); !ok {
		t.Error("created_at not stamped")
	}
	if entry["uuid"] != row["uuid"] {
		t.Error("returned entry does not carry the stored uuid")
	}
}

func TestCreatePublishedStampsTimestamp(t *testing.T) {
	e, store := testEngine(t)

	_, err := e.Create(context.Background(), "article", map[string]any{
		"title":      "Live",
		"status":     StatusPublished,
		"field_body": "x",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if store.lastRow["status"] != StatusPublished {
		t.Errorf("status = %v", store.lastRow["status"])
	}
	if _, ok := store.lastRow["published_at"].(time.Time); !ok {
		t.Error("published_at not stamped for published create")
	}
}

func TestCreateEnforcesRequired(t *testing.T) {
	e, _ := testEngine(t)

	_, err := e.Create(context.Background(), "article", map[string]any{
		"title": "No Body",
	}, "admin-1")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Create = %v, want ValidationError", err)
	}
	if len(validation.Fields) != 1 || validation.Fields[0].Field != "field_body" {
		t.Errorf("validation details = %+v", validation.Fields)
	}
}

func TestCreateExplicitSlugAndUntitled(t *testing.T) {
	e, store := testEngine(t)
	ctx := context.Background()

	if _, err := e.Create(ctx, "article", map[string]any{
		"title": "Some Title", "slug": "Custom Slug!", "field_body": "x",
	}, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if store.lastRow["slug"] != "custom-slug" {
		t.Errorf("slug = %v, want custom-slug", store.lastRow["slug"])
	}

	if _, err := e.Create(ctx, "article", map[string]any{"field_body": "x"}, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if store.lastRow["slug"] != "untitled" {
		t.Errorf("slug = %v, want untitled fallback", store.lastRow["slug"])
	}
}

func TestCreateUnknownType(t *testing.T) {
	e, _ := testEngine(t)
	_, err := e.Create(context.Background(), "ghost", map[string]any{}, "")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("Create = %v, want ErrNotFound", err)
	}
}

func TestUpdateIsPartial(t *testing.T) {
	e, store := testEngine(t)

	_, err := e.Update(context.Background(), "article", "some-uuid", map[string]any{
		"rating": "ignored, undeclared",
		"tags":   "ignored too",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Only updated_at: required fields are not re-checked and absent keys
	// stay untouched.
	if len(store.lastValues) != 1 {
		t.Errorf("values = %v, want only updated_at", store.lastValues)
	}
	if _, ok := store.lastValues["updated_at"].(time.Time); !ok {
		t.Error("updated_at not re-stamped")
	}
}

func TestUpdatePublishTransition(t *testing.T) {
	e, store := testEngine(t)

	_, err := e.Update(context.Background(), "article", "some-uuid", map[string]any{
		"status": StatusPublished,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, ok := store.lastValues["published_at"].(time.Time); !ok {
		t.Error("published_at not stamped on publish transition")
	}

	// A supplied timestamp wins over the stamp.
	supplied := "2024-01-15T08:00:00Z"
	_, err = e.Update(context.Background(), "article", "some-uuid", map[string]any{
		"status":       StatusPublished,
		"published_at": supplied,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Update with published_at: %v", err)
	}
	want, _ := time.Parse(time.RFC3339, supplied)
	if got := store.lastValues["published_at"].(time.Time); !got.Equal(want) {
		t.Errorf("published_at = %v, want supplied %v", got, want)
	}
}

func TestDeleteEntry(t *testing.T) {
	e, store := testEngine(t)
	ctx := context.Background()

	store.deleteFound = true
	removed, err := e.Delete(ctx, "article", "some-uuid", "admin-1")
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}

	store.deleteFound = false
	removed, err = e.Delete(ctx, "article", "some-uuid", "admin-1")
	if err != nil || removed {
		t.Fatalf("Delete missing = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestGetCastsRow(t *testing.T) {
	e, store := testEngine(t)

	rawUUID := uuid.New()
	store.getRow = map[string]any{
		"id":           int64(1),
		"uuid":         [16]byte(rawUUID),
		"title":        "Hello",
		"field_body":   "<p>hi</p>",
		"field_rating": nil,
		"field_tags":   []byte(`["a","b"]`),
		"created_at":   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	entry, err := e.Get(context.Background(), "article", rawUUID.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry["uuid"] != rawUUID.String() {
		t.Errorf("uuid = %v, want string form", entry["uuid"])
	}
	if tags, ok := entry["field_tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("field_tags = %#v, want decoded array", entry["field_tags"])
	}
	if entry["field_rating"] != nil {
		t.Errorf("field_rating = %v, want nil preserved", entry["field_rating"])
	}
}

func TestListValidatesAndPaginates(t *testing.T) {
	e, store := testEngine(t)
	ctx := context.Background()

	store.listTotal = 45
	result, err := e.List(ctx, "article", ListOptions{
		Page: 2, PerPage: 20, Status: StatusPublished, Search: "hello",
		Sort: "title", Order: "asc",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", result.TotalPages)
	}
	if store.lastQuery.Status != StatusPublished || store.lastQuery.TitleSearch != "hello" {
		t.Errorf("query filters = %+v", store.lastQuery)
	}
	if store.lastQuery.Offset != 20 || store.lastQuery.Limit != 20 {
		t.Errorf("pagination = offset %d limit %d", store.lastQuery.Offset, store.lastQuery.Limit)
	}

	// Unknown sort column is rejected before touching the store.
	_, err = e.List(ctx, "article", ListOptions{Page: 1, PerPage: 20, Sort: "evil; DROP"})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("List bad sort = %v, want ValidationError", err)
	}

	// Declared field identifiers are valid sort targets.
	if _, err := e.List(ctx, "article", ListOptions{Page: 1, PerPage: 20, Sort: "field_rating"}); err != nil {
		t.Fatalf("List field sort: %v", err)
	}
}

func TestEngineColumns(t *testing.T) {
	def := articleType(t)
	cols := columnsFor(def)

	want := []string{"id", "uuid", "title", "slug",
		"field_body", "field_rating", "field_tags",
		"status", "published_at", "author_id", "created_at", "updated_at"}
	if !slices.Equal(cols, want) {
		t.Errorf("columns = %v, want %v", cols, want)
	}
}
