package audit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLogNonBlocking(t *testing.T) {
	s := &Service{
		eventCh: make(chan Event, 2),
		done:    make(chan struct{}),
	}
	// No consumer goroutine: the first two events fill the buffer, the rest
	// must drop instead of blocking.
	for i := 0; i < 5; i++ {
		done := make(chan struct{})
		go func() {
			s.Log(context.Background(), Event{Action: "entry.create"})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("Log blocked on event %d", i)
		}
	}

	if got := s.DroppedCount(); got != 3 {
		t.Errorf("DroppedCount() = %d, want 3", got)
	}
}

func TestShutdownWaitsForDrain(t *testing.T) {
	s := &Service{
		eventCh: make(chan Event, 1),
		done:    make(chan struct{}),
	}
	go func() {
		time.Sleep(200 * time.Millisecond)
		close(s.done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	start := time.Now()
	s.Shutdown(ctx)
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Shutdown returned after %v, want it to wait for the drain", elapsed)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if got := nullIfEmpty(""); got != nil {
		t.Errorf("nullIfEmpty(\"\") = %v, want nil", got)
	}
	got := nullIfEmpty("admin-1")
	if got == nil || *got != "admin-1" {
		t.Errorf("nullIfEmpty(\"admin-1\") = %v, want pointer to \"admin-1\"", got)
	}
}

func TestNullableJSON(t *testing.T) {
	if got, err := nullableJSON(nil); err != nil || got != nil {
		t.Errorf("nullableJSON(nil) = (%v, %v), want (nil, nil)", got, err)
	}
	if got, err := nullableJSON(map[string]any{}); err != nil || got != nil {
		t.Errorf("nullableJSON(empty) = (%v, %v), want (nil, nil)", got, err)
	}

	got, err := nullableJSON(map[string]any{"name": "article"})
	if err != nil {
		t.Fatalf("nullableJSON() error = %v", err)
	}
	raw, ok := got.([]byte)
	if !ok {
		t.Fatalf("nullableJSON() returned %T, want []byte", got)
	}
	if string(raw) != `{"name":"article"}` {
		t.Errorf("nullableJSON() = %s", raw)
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantPage    int
		wantPerPage int
	}{
		{"defaults", "/audit-log", 1, 20},
		{"explicit", "/audit-log?page=3&per_page=50", 3, 50},
		{"capped", "/audit-log?per_page=500", 1, 100},
		{"invalid page", "/audit-log?page=zero", 1, 20},
		{"negative", "/audit-log?page=-1&per_page=-5", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			page, perPage := parsePagination(r)
			if page != tt.wantPage || perPage != tt.wantPerPage {
				t.Errorf("parsePagination() = (%d, %d), want (%d, %d)",
					page, perPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}
