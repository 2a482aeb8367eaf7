package content

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/monkeyscms/monkeys/internal/types"
)

func testContentServer(t *testing.T) (*httptest.Server, *fakeEntryStore) {
	t.Helper()
	store := &fakeEntryStore{}
	resolver := &fakeResolver{defs: map[string]*types.Definition{
		"article": articleType(t),
	}}
	h := NewHandler(NewEngine(types.ContentTypes, resolver, store, nil))

	r := chi.NewRouter()
	r.Get("/content/{type}", h.List)
	r.Post("/content/{type}", h.Create)
	r.Get("/content/{type}/{id}", h.Get)
	r.Patch("/content/{type}/{id}", h.Update)
	r.Delete("/content/{type}/{id}", h.Delete)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestHandlerCreateEntry(t *testing.T) {
	srv, store := testContentServer(t)

	resp, err := http.Post(srv.URL+"/content/article", "application/json",
		strings.NewReader(`{"title":"Hello","field_body":"<p>x</p>"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	data := body["data"].(map[string]any)
	if data["slug"] != "hello" {
		t.Errorf("slug = %v, want hello", data["slug"])
	}
	if store.lastTable != "ct_article" {
		t.Errorf("table = %q", store.lastTable)
	}
}

func TestHandlerCreateValidation(t *testing.T) {
	srv, _ := testContentServer(t)

	resp, err := http.Post(srv.URL+"/content/article", "application/json",
		strings.NewReader(`{"title":"No Body"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	details := body["error"].(map[string]any)["details"].([]any)
	if details[0].(map[string]any)["field"] != "field_body" {
		t.Errorf("details = %v", details)
	}
}

func TestHandlerUnknownType(t *testing.T) {
	srv, _ := testContentServer(t)

	resp, err := http.Get(srv.URL + "/content/ghost/some-id")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandlerListPagination(t *testing.T) {
	srv, store := testContentServer(t)
	store.listRows = []map[string]any{{"id": int64(1), "title": "A"}}
	store.listTotal = 1

	resp, err := http.Get(srv.URL + "/content/article?status=published&q=a")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	meta := body["meta"].(map[string]any)
	if meta["total"] != float64(1) || meta["total_pages"] != float64(1) {
		t.Errorf("meta = %v", meta)
	}
}

func TestHandlerDelete(t *testing.T) {
	srv, store := testContentServer(t)

	store.deleteFound = true
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/content/article/some-id", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	store.deleteFound = false
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/content/article/some-id", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
