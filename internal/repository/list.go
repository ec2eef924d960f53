package repository

import (
	"fmt"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps (page-1)*size well inside a Postgres bigint OFFSET.
	maxPage = 1 << 30
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// whereBuilder accumulates positional predicates for list and count queries.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func (w *whereBuilder) eq(column string, value interface{}) {
	w.conditions = append(w.conditions, fmt.Sprintf("%s = %s", column, w.next()))
	w.args = append(w.args, value)
}

// search matches term as a case-insensitive substring of any column. LIKE
// wildcards in term match literally.
func (w *whereBuilder) search(term string, columns ...string) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return
	}
	placeholder := w.next()
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, col, placeholder)
	}
	w.conditions = append(w.conditions, "("+strings.Join(parts, " OR ")+")")
	w.args = append(w.args, "%"+likeEscaper.Replace(strings.ToLower(term))+"%")
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return "WHERE 1=1"
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// orderBy resolves a whitelisted sort column, falling back to fallback.
func orderBy(allowed map[string]string, sortBy, sortOrder, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		return fallback
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	return fmt.Sprintf("%s %s, id ASC", column, order)
}

// pageWindow normalises page and size into LIMIT and OFFSET values.
func pageWindow(page, size int) (limit, offset int) {
	page = clampPage(page)
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size, (page - 1) * size
}

// NormalizePage mirrors the window applied to list queries so callers can
// report the effective page and size.
func NormalizePage(page, size int) (int, int) {
	limit, _ := pageWindow(page, size)
	return clampPage(page), limit
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > maxPage {
		return maxPage
	}
	return page
}
