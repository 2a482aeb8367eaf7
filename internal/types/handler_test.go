package types

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func testServer(t *testing.T) (*httptest.Server, *fakeStore, *fakeDDL) {
	t.Helper()
	store := newFakeStore()
	ddl := &fakeDDL{}
	m := NewManager(ContentTypes, store, ddl, nil)
	if err := m.RegisterCode(codeType("page", "Page")); err != nil {
		t.Fatalf("RegisterCode: %v", err)
	}
	h := NewHandler(m, nil)

	r := chi.NewRouter()
	r.Get("/content-types", h.List)
	r.Post("/content-types", h.Create)
	r.Get("/content-types/{name}", h.Get)
	r.Patch("/content-types/{name}", h.Update)
	r.Delete("/content-types/{name}", h.Delete)
	r.Post("/content-types/{name}/fields", h.AttachField)
	r.Delete("/content-types/{name}/fields/{identifier}", h.DetachField)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store, ddl
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode == http.StatusNoContent {
		return resp, nil
	}
	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, envelope
}

func errorCode(t *testing.T, envelope map[string]any) string {
	t.Helper()
	e, ok := envelope["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error body in %v", envelope)
	}
	code, _ := e["code"].(string)
	return code
}

func TestHandlerCreateAndGet(t *testing.T) {
	srv, _, ddl := testServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/content-types", `{
		"label": "Blog Post",
		"has_title": true,
		"has_slug": true,
		"capabilities": {"publishable": true},
		"fields": [
			{"label": "Body", "identifier": "body", "type": "html", "required": true}
		]
	}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%v)", resp.StatusCode, body)
	}

	data := body["data"].(map[string]any)
	if data["name"] != "blog_post" {
		t.Errorf("name = %v, want blog_post", data["name"])
	}
	if data["table"] != "ct_blog_post" {
		t.Errorf("table = %v, want ct_blog_post", data["table"])
	}
	fields := data["fields"].([]any)
	if len(fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(fields))
	}
	if fields[0].(map[string]any)["identifier"] != "field_body" {
		t.Errorf("field identifier = %v, want field_body", fields[0].(map[string]any)["identifier"])
	}
	if fields[0].(map[string]any)["category"] != "Text" {
		t.Errorf("field category = %v, want Text", fields[0].(map[string]any)["category"])
	}
	if len(ddl.createdTables) != 1 {
		t.Errorf("created tables = %v, want one", ddl.createdTables)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/content-types/blog_post", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", resp.StatusCode)
	}
	if body["data"].(map[string]any)["source"] != "database" {
		t.Errorf("source = %v, want database", body["data"].(map[string]any)["source"])
	}
}

func TestHandlerList(t *testing.T) {
	srv, store, _ := testServer(t)
	store.types = append(store.types, Record{ID: 1, Name: "article", Label: "Article"})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/content-types", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("got %d types, want 2 (code page + db article)", len(data))
	}
}

func TestHandlerValidationErrors(t *testing.T) {
	srv, _, _ := testServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed JSON", http.MethodPost, "/content-types", "{nope", http.StatusBadRequest, "INVALID_JSON"},
		{"missing label", http.MethodPost, "/content-types", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"zero cardinality", http.MethodPost, "/content-types",
			`{"label":"X","fields":[{"label":"A","identifier":"a","type":"string","cardinality":0}]}`,
			http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field type", http.MethodPost, "/content-types",
			`{"label":"X","fields":[{"label":"A","identifier":"a","type":"hologram"}]}`,
			http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate of code type", http.MethodPost, "/content-types", `{"label":"Page"}`,
			http.StatusConflict, "CONFLICT"},
		{"get missing", http.MethodGet, "/content-types/ghost", "", http.StatusNotFound, "NOT_FOUND"},
		{"update code-defined", http.MethodPatch, "/content-types/page", `{"label":"New"}`,
			http.StatusForbidden, "FORBIDDEN"},
		{"delete code-defined", http.MethodDelete, "/content-types/page", "",
			http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, tt.method, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, tt.status, body)
			}
			if got := errorCode(t, body); got != tt.code {
				t.Errorf("error code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestHandlerFieldLifecycle(t *testing.T) {
	srv, store, ddl := testServer(t)
	store.types = append(store.types, Record{ID: 1, Name: "article", Label: "Article"})
	store.nextTypeID = 1

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/content-types/article/fields",
		`{"label": "Subtitle", "identifier": "subtitle", "type": "string"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("attach status = %d, want 201 (%v)", resp.StatusCode, body)
	}
	if body["data"].(map[string]any)["identifier"] != "field_subtitle" {
		t.Errorf("identifier = %v, want field_subtitle", body["data"].(map[string]any)["identifier"])
	}

	// Duplicate attach conflicts.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/content-types/article/fields",
		`{"label": "Subtitle", "identifier": "subtitle", "type": "string"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate attach status = %d, want 409", resp.StatusCode)
	}

	// Detach with column drop.
	resp, _ = doJSON(t, http.MethodDelete,
		srv.URL+"/content-types/article/fields/field_subtitle?drop_column=true", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("detach status = %d, want 204", resp.StatusCode)
	}
	if len(ddl.droppedColumns) != 1 {
		t.Errorf("dropped columns = %v, want one", ddl.droppedColumns)
	}

	// Detach again: the field is gone.
	resp, body = doJSON(t, http.MethodDelete,
		srv.URL+"/content-types/article/fields/field_subtitle", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("re-detach status = %d, want 404 (%v)", resp.StatusCode, body)
	}
}
