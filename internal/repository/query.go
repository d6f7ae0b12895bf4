package repository

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageWindow converts 1-based page numbers into LIMIT/OFFSET values.
func pageWindow(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return pageSize, (page - 1) * pageSize
}

// orderBy whitelists the sort column and direction.
func orderBy(sortBy, sortOrder, fallback string, allowed map[string]bool) string {
	if !allowed[sortBy] {
		sortBy = fallback
	}
	dir := strings.ToUpper(sortOrder)
	if dir != "ASC" && dir != "DESC" {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", sortBy, dir)
}

// whereBuilder accumulates positional conditions.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) add(format string, value interface{}) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func pick(exec sqlx.ExtContext, db *sqlx.DB) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}
