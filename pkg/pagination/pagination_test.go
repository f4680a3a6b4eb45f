package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxFor(target string) echo.Context {
	e := echo.New()
	return e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		target      string
		limit, offs int
	}{
		{"/", DefaultLimit, 0},
		{"/?limit=10&offset=30", 10, 30},
		{"/?limit=1000", MaxLimit, 0},
		{"/?offset=-4", DefaultLimit, 0},
		{"/?limit=20&page=3", 20, 40},
		{"/?limit=abc", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := FromContext(ctxFor(tt.target))
		if p.Limit != tt.limit || p.Offset != tt.offs {
			t.Errorf("%s: got %+v, want limit=%d offset=%d", tt.target, p, tt.limit, tt.offs)
		}
	}
}

func TestNewPage_Envelope(t *testing.T) {
	pg := NewPage([]string{"a", "b"}, 5, Params{Limit: 2, Offset: 0})
	b, err := json.Marshal(pg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"error":null`) || !strings.Contains(s, `"has_more":true`) {
		t.Errorf("unexpected envelope %s", s)
	}
}

func TestLinks_KeepFilters(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	q := url.Values{"status": {"waiting"}, "offset": {"10"}}
	links := p.Links("/api/v1/visits", q, 35)

	next, err := url.Parse(links["next"])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if next.Query().Get("status") != "waiting" || next.Query().Get("offset") != "20" {
		t.Errorf("unexpected next link %s", links["next"])
	}
	if !strings.Contains(links["previous"], "offset=0") {
		t.Errorf("unexpected previous link %s", links["previous"])
	}
}

func TestLinks_LastPage(t *testing.T) {
	links := Params{Limit: 10, Offset: 30}.Links("/x", nil, 35)
	if _, ok := links["next"]; ok {
		t.Error("last page must not link forward")
	}
	if links["self"] == "" {
		t.Error("expected self link")
	}
}
