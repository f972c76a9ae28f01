package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ListOptions carries the search, ordering and window of a list query.
type ListOptions struct {
	Search    string
	OrderBy   string
	Direction string
	Offset    int
	Limit     int
}

// notFound maps gorm's sentinel onto ErrNotFound and passes anything else through.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// orderClause whitelists the requested column; anything else falls back to
// created_at desc.
func orderClause(opts ListOptions, allowed ...string) string {
	dir := "desc"
	if strings.EqualFold(opts.Direction, "asc") {
		dir = "asc"
	}
	for _, col := range allowed {
		if col == opts.OrderBy {
			return col + " " + dir
		}
	}
	return "created_at desc"
}

func paginate(db *gorm.DB, opts ListOptions) *gorm.DB {
	if opts.Limit > 0 {
		db = db.Offset(opts.Offset).Limit(opts.Limit)
	}
	return db
}

func likePattern(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}
