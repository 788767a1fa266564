package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query  string
		page   int
		limit  int
		offset int
	}{
		{"", DefaultPage, DefaultLimit, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=-1&limit=0", DefaultPage, DefaultLimit, 0},
		{"?page=abc&limit=500", DefaultPage, MaxLimit, 0},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/items"+tt.query, nil)
		p := Parse(c)
		if p.Page != tt.page || p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("Parse(%q) = %+v", tt.query, p)
		}
	}
}

func TestMeta(t *testing.T) {
	p := New(2, 10)
	if m := p.Meta(21); m.TotalPages != 3 || m.Total != 21 || m.Page != 2 {
		t.Fatalf("meta = %+v", m)
	}
	if m := p.Meta(0); m.TotalPages != 0 {
		t.Fatalf("empty meta = %+v", m)
	}
}
