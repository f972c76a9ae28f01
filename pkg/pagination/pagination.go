package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one validated page window
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads page and limit from the query string. per_page is accepted as
// an alias of limit. Out of range values fall back to the defaults and limit
// is capped at MaxLimit.
func Parse(c *gin.Context) Params {
	raw := c.Query("limit")
	if raw == "" {
		raw = c.Query("per_page")
	}
	return New(atoi(c.Query("page")), atoi(raw))
}

// New normalizes page and limit.
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// TotalPages is the number of pages needed for total rows.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
