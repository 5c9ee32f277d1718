package listing

import "strings"

// SortSpec is the allow-list of sortable columns for one resource.
type SortSpec struct {
	Columns  map[string]string // sort name -> SQL expression
	Default  string
	Tiebreak string // primary id column, always appended ascending
}

type Order struct {
	Name     string
	Column   string
	Desc     bool
	Tiebreak string
}

// Resolve maps the requested sort and order onto the allow-list. Unknown sort
// names fall back to the default; order is asc or desc, default desc.
func (s SortSpec) Resolve(sort, order string) Order {
	name := strings.ToLower(strings.TrimSpace(sort))
	col, ok := s.Columns[name]
	if !ok {
		name = s.Default
		col = s.Columns[s.Default]
	}
	return Order{
		Name:     name,
		Column:   col,
		Desc:     strings.ToLower(strings.TrimSpace(order)) != "asc",
		Tiebreak: s.Tiebreak,
	}
}

func (o Order) Direction() string {
	if o.Desc {
		return "desc"
	}
	return "asc"
}

func (o Order) SQL() string {
	var parts []string
	if o.Column != "" {
		parts = append(parts, o.Column+" "+strings.ToUpper(o.Direction()))
	}
	if o.Tiebreak != "" {
		parts = append(parts, o.Tiebreak+" ASC")
	}
	if len(parts) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
