package types

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultPerPage is used when the client does not specify a page size.
const DefaultPerPage = 20

// PageMeta describes one page of an offset-paginated listing.
type PageMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PagedResponse wraps listing data with its pagination metadata.
type PagedResponse struct {
	Data       interface{} `json:"data"`
	Pagination PageMeta    `json:"pagination"`
}

// NewPagedResponse builds the standard paged envelope.
func NewPagedResponse(data interface{}, page, perPage, total int) PagedResponse {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return PagedResponse{
		Data: data,
		Pagination: PageMeta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// ParsePagination reads page and perPage from the query string. Malformed or
// non-positive values are a validation error; perPage above maxPerPage is
// clamped rather than rejected, keeping scans bounded.
func ParsePagination(c *gin.Context, maxPerPage int) (page, perPage int, err error) {
	page, err = positiveQueryInt(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	perPage, err = positiveQueryInt(c, "perPage", DefaultPerPage)
	if err != nil {
		return 0, 0, err
	}
	if maxPerPage > 0 && perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage, nil
}

func positiveQueryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return v, nil
}
