package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func paginationFor(t *testing.T, query string) Pagination {
	t.Helper()

	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParsePagination(c)
		return nil
	})

	req := httptest.NewRequest("GET", "/?"+query, nil)
	if _, err := app.Test(req, -1); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return got
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name       string
		query      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 1, 20, 0},
		{"explicit", "page=3&limit=10", 3, 10, 20},
		{"zero limit falls back", "limit=0", 1, 20, 0},
		{"negative page falls back", "page=-2", 1, 20, 0},
		{"oversized limit is capped", "limit=5000", 1, 100, 0},
		{"garbage falls back", "page=abc&limit=xyz", 1, 20, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := paginationFor(t, tc.query)
			if got.Page != tc.wantPage || got.Limit != tc.wantLimit || got.Offset != tc.wantOffset {
				t.Errorf("ParsePagination(%q) = %+v, want page=%d limit=%d offset=%d",
					tc.query, got, tc.wantPage, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}
