package pagination

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit within int for any allowed limit.
	MaxPage = math.MaxInt / MaxLimit
)

// Options is a normalized page request. Skip is always derived from Page and Limit.
type Options struct {
	Page  int
	Limit int
	Skip  int
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

type Page[T any] struct {
	Items      []T  `json:"items"`
	Pagination Meta `json:"pagination"`
}

// Response is the envelope returned by every paginated endpoint.
type Response[T any] struct {
	Success bool     `json:"success"`
	Data    *Page[T] `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Parse normalizes raw page/limit query values. It never fails: missing or
// non-numeric values fall back to defaults and out-of-range values are clamped.
func Parse(rawPage, rawLimit string) Options {
	page := parseInt(rawPage, DefaultPage)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit := parseInt(rawLimit, DefaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return New(page, limit)
}

// New builds Options from already validated values.
func New(page, limit int) Options {
	return Options{
		Page:  page,
		Limit: limit,
		Skip:  (page - 1) * limit,
	}
}

// parseInt reads the leading integer of s, the way the web client's query
// strings have always been read ("2abc" is page 2). A zero parse counts as
// missing and yields def.
func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		ch := s[end]
		if (ch == '-' || ch == '+') && end == 0 {
			end++
			continue
		}
		if ch < '0' || ch > '9' {
			break
		}
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n == 0 {
		return def
	}
	return n
}

// Envelope wraps one page of items with its metadata.
func Envelope[T any](items []T, totalItems int64, page, limit int) Response[T] {
	if items == nil {
		items = []T{}
	}

	var totalPages int64
	if limit > 0 {
		totalPages = (totalItems + int64(limit) - 1) / int64(limit)
	}

	return Response[T]{
		Success: true,
		Data: &Page[T]{
			Items: items,
			Pagination: Meta{
				Page:       page,
				Limit:      limit,
				TotalItems: totalItems,
				TotalPages: totalPages,
				HasNext:    int64(page) < totalPages,
				HasPrev:    page > 1,
			},
		},
	}
}

func Failure[T any](msg string) Response[T] {
	return Response[T]{Success: false, Error: msg}
}
