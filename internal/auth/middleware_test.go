package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func protectedHandler(t *testing.T) http.Handler {
	t.Helper()
	return Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if AdminIDFromContext(r.Context()) == "" {
			t.Error("admin ID missing from context")
		}
		if EmailFromContext(r.Context()) == "" {
			t.Error("email missing from context")
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddlewareValidToken(t *testing.T) {
	token, err := CreateAccessToken("admin-123", "admin@example.com", testSecret)
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	r := httptest.NewRequest("GET", "/admin/api/content-types", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	protectedHandler(t).ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	badToken, err := CreateAccessToken("admin-123", "admin@example.com", "wrong-secret")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"malformed value", "Bearer"},
		{"garbage token", "Bearer garbage"},
		{"wrong signature", "Bearer " + badToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mw := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			r := httptest.NewRequest("GET", "/admin/api/content-types", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			mw.ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if called {
				t.Error("protected handler ran without valid auth")
			}
		})
	}
}

func TestContextHelpersEmpty(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if AdminIDFromContext(r.Context()) != "" || EmailFromContext(r.Context()) != "" {
		t.Error("context helpers should be empty without middleware")
	}
}
