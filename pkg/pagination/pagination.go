// Package pagination provides page-based pagination and sort parsing for
// list endpoints, plus the JSON envelope they return.
package pagination

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// FromContext extracts pagination parameters from the echo context.
// Invalid or missing values fall back to defaults; limit is clamped to
// [1, MaxPageSize]. Both "limit" and the legacy "pagesize" query
// parameter are accepted.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("pagesize"))
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return Params{Page: page, Limit: limit}
}

// Offset returns the number of records to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// SortField is one element of a sort specification.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSort parses a comma-separated sort expression in the
// "campo" / "-campo" convention ("-createdAt,fechaEmision"). Fields not
// present in allowed are dropped. When nothing usable remains the
// fallback is returned, so malformed input never silently changes the
// ordering contract.
func ParseSort(expr string, allowed map[string]bool, fallback []SortField) []SortField {
	var fields []SortField
	for _, part := range strings.Split(expr, ",") {
		f := strings.TrimSpace(part)
		if f == "" {
			continue
		}
		desc := false
		if strings.HasPrefix(f, "-") {
			desc = true
			f = f[1:]
		}
		if !allowed[f] {
			continue
		}
		fields = append(fields, SortField{Field: f, Descending: desc})
	}
	if len(fields) == 0 {
		return fallback
	}
	return fields
}

// Response wraps a paginated API response.
type Response struct {
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int         `json:"total"`
	Items interface{} `json:"items"`
}

func NewResponse(items interface{}, total int, p Params) *Response {
	return &Response{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Items: items,
	}
}
