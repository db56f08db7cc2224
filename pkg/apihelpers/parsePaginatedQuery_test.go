package apihelpers

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParsePaginatedQueryFromCtx(t *testing.T) {
	tests := []struct {
		query        string
		defaultLimit int64
		wantPage     int64
		wantLimit    int64
		wantErr      bool
	}{
		{"", DEFAULT_PAGE_LIMIT, 1, 10, false},
		{"", 20, 1, 20, false},
		{"?page=3&limit=5", DEFAULT_PAGE_LIMIT, 3, 5, false},
		{"?page=0&limit=0", DEFAULT_PAGE_LIMIT, 1, 10, false},
		{"?limit=1000", DEFAULT_PAGE_LIMIT, 1, MAX_PAGE_LIMIT, false},
		{"?page=abc", DEFAULT_PAGE_LIMIT, 0, 0, true},
		{"?limit=x", DEFAULT_PAGE_LIMIT, 0, 0, true},
		{"?page=9223372036854775807&limit=10", DEFAULT_PAGE_LIMIT, math.MaxInt64 / 10, 10, false},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)

		q, err := ParsePaginatedQueryFromCtx(c, tt.defaultLimit)
		if tt.wantErr {
			if err == nil {
				t.Errorf("query %q: expected error", tt.query)
			}
			continue
		}
		if err != nil {
			t.Errorf("query %q: unexpected error: %v", tt.query, err)
			continue
		}
		if q.Page != tt.wantPage || q.Limit != tt.wantLimit {
			t.Errorf("query %q: got page=%d limit=%d, want page=%d limit=%d", tt.query, q.Page, q.Limit, tt.wantPage, tt.wantLimit)
		}
	}
}

func TestPaginatedQuerySkip(t *testing.T) {
	q := PaginatedQuery{Page: 3, Limit: 20}
	if q.Skip() != 40 {
		t.Errorf("expected skip 40, got %d", q.Skip())
	}
}

func TestPaginatedQuerySkipDoesNotOverflow(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=9223372036854775807&limit=7", nil)

	q, err := ParsePaginatedQueryFromCtx(c, DEFAULT_PAGE_LIMIT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Skip() < 0 {
		t.Errorf("skip overflowed: page=%d limit=%d skip=%d", q.Page, q.Limit, q.Skip())
	}
}
