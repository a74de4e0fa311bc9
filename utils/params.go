package utils

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"storefront/apperr"
)

const maxBodyBytes = 1 << 20

// maxPage bounds the page number so Skip cannot overflow.
const maxPage = 1_000_000

type Page struct {
	Page    int
	PerPage int
	Order   int
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 { return int64(p.Page-1) * int64(p.PerPage) }

// ParsePage reads page, perpage and order from the query string. order is
// 1 for oldest first and -1 (the default) for newest first.
func ParsePage(r *http.Request, defaultPerPage, maxPerPage int) Page {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	perPage, _ := strconv.Atoi(q.Get("perpage"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if maxPerPage > 0 && perPage > maxPerPage {
		perPage = maxPerPage
	}
	order := -1
	if q.Get("order") == "1" {
		order = 1
	}
	return Page{Page: page, PerPage: perPage, Order: order}
}

// Pages returns ceil(count / perPage).
func Pages(count int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(count) / float64(perPage)))
}

// DecodeJSON reads a size-limited JSON body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return apperr.New(apperr.Validation, "Request body is required")
	}
	return apperr.Wrap(apperr.Validation, "Invalid request body", err)
}
