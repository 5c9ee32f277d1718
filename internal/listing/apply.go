package listing

import (
	"net/url"
	"strconv"
	"strings"

	"medialib/pkg/search"
)

// Field maps one search key onto SQL.
//
// Column is the compared expression. When Exists is set the key is a relation
// test instead: Exists is a correlated subquery with a single placeholder for
// the value. Like selects substring matching; otherwise matching is exact and
// case-insensitive. Normalize, when set, rewrites each value before binding.
type Field struct {
	Column    string
	Like      bool
	Exists    string
	Normalize func(string) string
}

type Fields map[search.Key]Field

// Apply adds a predicate to q for every filter parameter in v that has a
// field mapping, and returns the keys it used. Missing, unmapped or
// unparsable parameters are ignored.
func Apply(q *Query, v url.Values, fields Fields) []search.Key {
	var applied []search.Key
	for _, k := range search.Keys() {
		f, ok := fields[k]
		if !ok {
			continue
		}
		var used bool
		if k.Kind() == search.KindList {
			used = applyList(q, f, listValues(v, k.Param()), false)
			if k.Excludable() && applyList(q, f, listValues(v, k.ExcludeParam()), true) {
				used = true
			}
		} else {
			used = applyNumber(q, f, v, k)
		}
		if used {
			applied = append(applied, k)
		}
	}
	return applied
}

// listValues accepts both a=x,y and a=x&a=y.
func listValues(v url.Values, param string) []string {
	var out []string
	for _, raw := range v[param] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (f Field) bind(val string) string {
	if f.Normalize != nil {
		val = f.Normalize(val)
	}
	val = strings.ToLower(val)
	if f.Like {
		return "%" + escapeLike(val) + "%"
	}
	return val
}

func (f Field) cmp() string {
	if f.Like {
		return `LIKE ? ESCAPE '\'`
	}
	return "= ?"
}

func applyList(q *Query, f Field, vals []string, exclude bool) bool {
	if len(vals) == 0 {
		return false
	}

	if exclude {
		// one predicate per value, AND'd
		for _, val := range vals {
			switch {
			case f.Exists != "":
				q.Where("NOT EXISTS ("+f.Exists+")", f.bind(val))
			case f.Like:
				q.Where("("+f.Column+" IS NULL OR LOWER("+f.Column+`) NOT LIKE ? ESCAPE '\')`, f.bind(val))
			default:
				q.Where("("+f.Column+" IS NULL OR LOWER("+f.Column+") NOT IN (?))", f.bind(val))
			}
		}
		return true
	}

	args := make([]any, len(vals))
	for i, val := range vals {
		args[i] = f.bind(val)
	}

	switch {
	case f.Exists != "":
		q.Where(orJoin("EXISTS ("+f.Exists+")", len(vals)), args...)
	case f.Like:
		q.Where(orJoin("LOWER("+f.Column+") "+f.cmp(), len(vals)), args...)
	case len(vals) == 1:
		q.Where("LOWER("+f.Column+") = ?", args...)
	default:
		q.Where("LOWER("+f.Column+") IN ("+placeholders(len(vals))+")", args...)
	}
	return true
}

func applyNumber(q *Query, f Field, v url.Values, k search.Key) bool {
	used := false

	// exact > gt > lt; exclusions below combine with any of them
	if n, ok := intParam(v, k.Param()); ok && k.Kind() != search.KindRange {
		q.Where(f.Column+" = ?", n)
		used = true
	} else if n, ok := intParam(v, k.Param()+"_gt"); ok {
		q.Where(f.Column+" > ?", n)
		used = true
	} else if n, ok := intParam(v, k.Param()+"_lt"); ok {
		q.Where(f.Column+" < ?", n)
		used = true
	}

	if !k.Excludable() {
		return used
	}
	ex := k.ExcludeParam()
	if n, ok := intParam(v, ex); ok {
		q.Where("("+f.Column+" IS NULL OR "+f.Column+" <> ?)", n)
		used = true
	}
	if n, ok := intParam(v, ex+"_gt"); ok {
		q.Where("("+f.Column+" IS NULL OR "+f.Column+" <= ?)", n)
		used = true
	}
	if n, ok := intParam(v, ex+"_lt"); ok {
		q.Where("("+f.Column+" IS NULL OR "+f.Column+" >= ?)", n)
		used = true
	}
	return used
}

func intParam(v url.Values, param string) (int, bool) {
	s := strings.TrimSpace(v.Get(param))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func orJoin(pred string, n int) string {
	if n == 1 {
		return pred
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = pred
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
