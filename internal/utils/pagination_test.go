package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func pageCtx(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "page=3&limit=50", 3, 50},
		{"page below one clamps", "page=0", 1, 20},
		{"negative page clamps", "page=-5", 1, 20},
		{"limit above max clamps", "limit=500", 1, 100},
		{"limit below one falls back", "limit=0", 1, 20},
		{"garbage falls back", "page=abc&limit=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePageRequest(pageCtx(t, tt.query), 20, 100)
			if got.Page != tt.wantPage || got.Limit != tt.wantLimit {
				t.Fatalf("ParsePageRequest(%q) = {%d %d}, want {%d %d}",
					tt.query, got.Page, got.Limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestPageRequestInfo(t *testing.T) {
	tests := []struct {
		name       string
		req        PageRequest
		totalItems int
		wantPages  int
	}{
		{"exact multiple", PageRequest{Page: 1, Limit: 10}, 30, 3},
		{"partial last page", PageRequest{Page: 2, Limit: 10}, 31, 4},
		{"empty result keeps one page", PageRequest{Page: 1, Limit: 20}, 0, 1},
		{"single item", PageRequest{Page: 1, Limit: 20}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.req.Info(tt.totalItems)
			if info.TotalPages != tt.wantPages {
				t.Fatalf("Info(%d).TotalPages = %d, want %d", tt.totalItems, info.TotalPages, tt.wantPages)
			}
			if info.TotalItems != tt.totalItems {
				t.Fatalf("Info(%d).TotalItems = %d", tt.totalItems, info.TotalItems)
			}
			if info.Page != tt.req.Page || info.PerPage != tt.req.Limit {
				t.Fatalf("Info window = {page %d per_page %d}, want {%d %d}",
					info.Page, info.PerPage, tt.req.Page, tt.req.Limit)
			}
		})
	}
}
