// Package pagination reads limit/offset query parameters and wraps list
// results in the {data, error} envelope with paging metadata.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=, or ?page= with 1-based pages.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 1 && offset == 0 {
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

func (p Params) HasNext(total int) bool { return p.Offset+p.Limit < total }

func (p Params) HasPrevious() bool { return p.Offset > 0 }

// Links builds next/previous URLs for path, carrying over the filters in
// query.
func (p Params) Links(path string, query url.Values, total int) map[string]string {
	links := map[string]string{"self": p.link(path, query, p.Offset)}
	if p.HasNext(total) {
		links["next"] = p.link(path, query, p.Offset+p.Limit)
	}
	if p.HasPrevious() {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		links["previous"] = p.link(path, query, prev)
	}
	return links
}

func (p Params) link(path string, query url.Values, offset int) string {
	q := url.Values{}
	for k, v := range query {
		if k == "limit" || k == "offset" || k == "page" {
			continue
		}
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("offset", strconv.Itoa(offset))
	return fmt.Sprintf("%s?%s", path, q.Encode())
}

// Page is a list response.
type Page struct {
	Data    interface{}       `json:"data"`
	Error   *string           `json:"error"`
	Total   int               `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"has_more"`
	Links   map[string]string `json:"links,omitempty"`
}

func NewPage(data interface{}, total int, p Params) *Page {
	return &Page{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
}

// WithLinks attaches navigation links derived from the request URL.
func (pg *Page) WithLinks(c echo.Context, p Params) *Page {
	pg.Links = p.Links(c.Request().URL.Path, c.QueryParams(), pg.Total)
	return pg
}
