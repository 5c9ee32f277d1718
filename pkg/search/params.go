package search

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Pagination and sort parameters that carry no filter meaning.
const (
	ParamPage     = "page"
	ParamPageSize = "page_size"
	ParamSort     = "sort"
	ParamOrder    = "order"
)

const (
	suffixGT = "_gt"
	suffixLT = "_lt"
)

// Sort is the optional sort setting passed through to the wire verbatim.
type Sort struct {
	Field string
	Order string
}

// ToParams projects filters onto wire parameters. Keys without data are omitted.
func ToParams(f Filters, s *Sort) url.Values {
	v := url.Values{}
	for _, k := range Keys() {
		if vals := f.Include[k]; len(vals) > 0 {
			v.Set(k.Param(), strings.Join(vals, ","))
		}
		if vals := f.Exclude[k]; len(vals) > 0 {
			v.Set(k.ExcludeParam(), strings.Join(vals, ","))
		}
		if b, ok := f.Number[k]; ok {
			v.Set(boundParam(k.Param(), b.Op), strconv.Itoa(b.Value))
		}
		if b, ok := f.ExcludeNumber[k]; ok {
			v.Set(boundParam(k.ExcludeParam(), b.Op), strconv.Itoa(b.Value))
		}
	}
	if s != nil {
		if s.Field != "" {
			v.Set(ParamSort, s.Field)
		}
		if s.Order != "" {
			v.Set(ParamOrder, s.Order)
		}
	}
	return v
}

func boundParam(base string, op Op) string {
	switch op {
	case OpGT:
		return base + suffixGT
	case OpLT:
		return base + suffixLT
	}
	return base
}

// ToQuery rebuilds a display query from wire parameters. It only recovers
// keyed tokens; plain text that was folded into title or name comes back as
// a title:/name: token.
func ToQuery(v url.Values) string {
	var tokens []string
	seen := map[string]bool{
		ParamPage: true, ParamPageSize: true, ParamSort: true, ParamOrder: true,
	}

	emit := func(param string) {
		if seen[param] {
			return
		}
		seen[param] = true
		tokens = append(tokens, paramTokens(param, v[param])...)
	}

	for _, k := range Keys() {
		for _, base := range []string{k.Param(), k.ExcludeParam()} {
			for _, p := range []string{base, base + suffixGT, base + suffixLT} {
				if _, ok := v[p]; ok {
					emit(p)
				}
			}
		}
	}

	var rest []string
	for p := range v {
		if !seen[p] {
			rest = append(rest, p)
		}
	}
	sort.Strings(rest)
	for _, p := range rest {
		emit(p)
	}
	return strings.Join(tokens, " ")
}

func paramTokens(param string, values []string) []string {
	prefix := ""
	name := param
	if strings.HasPrefix(name, excludePrefix) {
		prefix = "-"
		name = strings.TrimPrefix(name, excludePrefix)
	}
	op := ""
	switch {
	case strings.HasSuffix(name, suffixGT):
		op, name = ">", strings.TrimSuffix(name, suffixGT)
	case strings.HasSuffix(name, suffixLT):
		op, name = "<", strings.TrimSuffix(name, suffixLT)
	}

	var out []string
	for _, raw := range values {
		if op != "" {
			if raw != "" {
				out = append(out, prefix+name+":"+op+raw)
			}
			continue
		}
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, prefix+name+":"+quoteValue(part))
		}
	}
	return out
}
