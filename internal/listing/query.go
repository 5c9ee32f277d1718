// Package listing builds filtered, sorted and paginated list queries from
// the search wire parameters.
package listing

import (
	"strings"
)

// Query accumulates the FROM, JOIN and WHERE parts shared by the count and
// data statements of one listing.
type Query struct {
	from  string
	joins []string
	where []string
	args  []any
}

func New(from string, joins ...string) *Query {
	return &Query{from: from, joins: joins}
}

// Where appends a predicate; all predicates are AND'd.
func (q *Query) Where(clause string, args ...any) *Query {
	q.where = append(q.where, clause)
	q.args = append(q.args, args...)
	return q
}

// Clone returns an independent copy so a caller can branch off the filtered base.
func (q *Query) Clone() *Query {
	return &Query{
		from:  q.from,
		joins: append([]string(nil), q.joins...),
		where: append([]string(nil), q.where...),
		args:  append([]any(nil), q.args...),
	}
}

// Args returns the bound arguments of the WHERE clause.
func (q *Query) Args() []any { return append([]any(nil), q.args...) }

func (q *Query) body() string {
	var b strings.Builder
	b.WriteString(" FROM ")
	b.WriteString(q.from)
	for _, j := range q.joins {
		b.WriteByte(' ')
		b.WriteString(j)
	}
	if len(q.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	return b.String()
}

func (q *Query) CountSQL() (string, []any) {
	return "SELECT COUNT(*)" + q.body(), q.Args()
}

func (q *Query) SelectSQL(columns string, o Order, p Page) (string, []any) {
	sqlStr := "SELECT " + columns + q.body()
	if ord := o.SQL(); ord != "" {
		sqlStr += " " + ord
	}
	sqlStr += " LIMIT ? OFFSET ?"
	return sqlStr, append(q.Args(), p.Size, p.Offset())
}
