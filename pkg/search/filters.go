package search

import (
	"encoding/json"
	"strconv"
)

// Op is the comparison carried by a numeric filter.
type Op int

const (
	OpEq Op = iota
	OpGT
	OpLT
)

// Bound is a numeric filter value: an exact match or one exclusive bound.
type Bound struct {
	Op    Op
	Value int
}

// String renders the bound the way chips and the query language show it.
func (b Bound) String() string {
	v := strconv.Itoa(b.Value)
	switch b.Op {
	case OpGT:
		return ">" + v
	case OpLT:
		return "<" + v
	default:
		return v
	}
}

// MarshalJSON renders exact values as a bare number and bounds as {"gt":n} / {"lt":n}.
func (b Bound) MarshalJSON() ([]byte, error) {
	switch b.Op {
	case OpGT:
		return json.Marshal(map[string]int{"gt": b.Value})
	case OpLT:
		return json.Marshal(map[string]int{"lt": b.Value})
	default:
		return json.Marshal(b.Value)
	}
}

// Filters is the structured form of a search query. The zero value is an
// empty filter set; maps are created on first write so that a key is present
// only when it carries data.
type Filters struct {
	Include       map[Key][]string
	Exclude       map[Key][]string
	Number        map[Key]Bound
	ExcludeNumber map[Key]Bound
}

func (f *Filters) add(k Key, exclude bool, v string) {
	if exclude {
		if f.Exclude == nil {
			f.Exclude = make(map[Key][]string)
		}
		f.Exclude[k] = append(f.Exclude[k], v)
		return
	}
	if f.Include == nil {
		f.Include = make(map[Key][]string)
	}
	f.Include[k] = append(f.Include[k], v)
}

// set overwrites any earlier value for k; the last occurrence wins.
func (f *Filters) set(k Key, exclude bool, b Bound) {
	if exclude {
		if f.ExcludeNumber == nil {
			f.ExcludeNumber = make(map[Key]Bound)
		}
		f.ExcludeNumber[k] = b
		return
	}
	if f.Number == nil {
		f.Number = make(map[Key]Bound)
	}
	f.Number[k] = b
}

// List returns the inclusion values for k.
func (f Filters) List(k Key) []string { return f.Include[k] }

// Excluded returns the exclusion values for k.
func (f Filters) Excluded(k Key) []string { return f.Exclude[k] }

// Bound returns the numeric value for k, if set.
func (f Filters) Bound(k Key) (Bound, bool) {
	b, ok := f.Number[k]
	return b, ok
}

// ExcludedBound returns the numeric exclusion for k, if set.
func (f Filters) ExcludedBound(k Key) (Bound, bool) {
	b, ok := f.ExcludeNumber[k]
	return b, ok
}

func (f Filters) IsEmpty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0 && len(f.Number) == 0 && len(f.ExcludeNumber) == 0
}

// MarshalJSON emits the camelCase record shape, e.g.
// {"title":["Naruto"],"excludeStatus":["completed"],"year":{"gt":2010}}.
func (f Filters) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{})
	for _, k := range Keys() {
		if v := f.Include[k]; len(v) > 0 {
			out[k.filterName(false)] = v
		}
		if v := f.Exclude[k]; len(v) > 0 {
			out[k.filterName(true)] = v
		}
		if b, ok := f.Number[k]; ok {
			out[k.filterName(false)] = b
		}
		if b, ok := f.ExcludeNumber[k]; ok {
			out[k.filterName(true)] = b
		}
	}
	return json.Marshal(out)
}
