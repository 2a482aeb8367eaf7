package content

import (
	"net/http/httptest"
	"testing"
)

func TestParseListOptions(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    ListOptions
		wantErr bool
	}{
		{
			name: "defaults",
			url:  "/content/article",
			want: ListOptions{Page: 1, PerPage: 20, Sort: "created_at", Order: "desc"},
		},
		{
			name: "full set",
			url:  "/content/article?page=3&per_page=10&status=published&q=hello&sort=title&order=asc",
			want: ListOptions{Page: 3, PerPage: 10, Status: "published",
				Search: "hello", Sort: "title", Order: "asc"},
		},
		{
			name: "per_page capped",
			url:  "/content/article?per_page=500",
			want: ListOptions{Page: 1, PerPage: 100, Sort: "created_at", Order: "desc"},
		},
		{name: "bad page", url: "/content/article?page=0", wantErr: true},
		{name: "bad per_page", url: "/content/article?per_page=x", wantErr: true},
		{name: "bad order", url: "/content/article?order=sideways", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got, err := ParseListOptions(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseListOptions: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListOptionsOffset(t *testing.T) {
	o := ListOptions{Page: 3, PerPage: 25}
	if o.Offset() != 50 {
		t.Errorf("Offset = %d, want 50", o.Offset())
	}
}
