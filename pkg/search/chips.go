package search

import "strings"

// Chip is one removable filter entry as shown to the user.
type Chip struct {
	Key     Key    `json:"-"`
	Exclude bool   `json:"-"`
	Label   string `json:"label"`
	Value   string `json:"value"`

	// Set by Result.Chips: the index of the token that produced the chip,
	// or plain when it came from unkeyed text.
	token  int
	linked bool
	plain  bool
}

// Name is the camelCase filter name the chip belongs to, e.g. "excludeStatus".
func (c Chip) Name() string { return c.Key.filterName(c.Exclude) }

func (c Chip) String() string { return c.Label + ":" + c.Value }

func newChip(k Key, exclude bool, value string) Chip {
	label := k.String()
	if exclude {
		label = "-" + label
	}
	return Chip{Key: k, Exclude: exclude, Label: label, Value: value}
}

// Chips lists every filter entry in the fixed key order, inclusions before
// exclusions within a key.
func Chips(f Filters) []Chip {
	var out []Chip
	for _, k := range Keys() {
		for _, v := range f.Include[k] {
			out = append(out, newChip(k, false, v))
		}
		if b, ok := f.Number[k]; ok {
			out = append(out, newChip(k, false, b.String()))
		}
		for _, v := range f.Exclude[k] {
			out = append(out, newChip(k, true, v))
		}
		if b, ok := f.ExcludeNumber[k]; ok {
			out = append(out, newChip(k, true, b.String()))
		}
	}
	return out
}

type chipSlot struct {
	key     Key
	exclude bool
}

// Chips is like the package-level Chips but links each chip to its source so
// that Remove can delete exactly that occurrence.
func (r Result) Chips() []Chip {
	chips := Chips(r.Filters)

	// List values are pushed in token order, so the n-th list chip for a
	// key/sign is produced by the n-th applied token for that key/sign.
	sources := make(map[chipSlot][]int)
	for i, t := range r.Tokens {
		if !t.Applied {
			continue
		}
		s := chipSlot{t.Key, t.Exclude}
		sources[s] = append(sources[s], i)
	}
	used := make(map[chipSlot]int)

	plainKey, hasPlain := r.Context.plainKey()
	for i := range chips {
		c := &chips[i]
		s := chipSlot{c.Key, c.Exclude}
		idx := sources[s]
		if c.Key.Kind() != KindList {
			if len(idx) > 0 {
				c.token, c.linked = idx[len(idx)-1], true
			}
			continue
		}
		n := used[s]
		if n < len(idx) {
			c.token, c.linked = idx[n], true
			used[s] = n + 1
			continue
		}
		if hasPlain && !c.Exclude && c.Key == plainKey && r.Plain != "" && c.Value == r.Plain {
			c.plain = true
		}
	}
	return chips
}

// Remove drops the chip's source from the query, rebuilds a canonical query
// string from what is left and parses it again.
func (r Result) Remove(c Chip) Result {
	drop := make(map[int]bool)
	keepPlain := true

	switch {
	case c.plain:
		keepPlain = false
	case c.Key.Kind() != KindList:
		for i, t := range r.Tokens {
			if t.Key == c.Key && t.Exclude == c.Exclude {
				drop[i] = true
			}
		}
	case c.linked && c.token < len(r.Tokens):
		drop[c.token] = true
	default:
		// Chip built without Result.Chips: match on content.
		found := false
		for i, t := range r.Tokens {
			if t.Applied && t.Key == c.Key && t.Exclude == c.Exclude && t.Value == c.Value {
				drop[i] = true
				found = true
				break
			}
		}
		if !found && !c.Exclude && c.Value == r.Plain {
			if k, ok := r.Context.plainKey(); ok && k == c.Key {
				keepPlain = false
			}
		}
	}

	// Plain text goes last so a stray quote in it cannot swallow a token.
	var parts []string
	for i, t := range r.Tokens {
		if !drop[i] {
			parts = append(parts, t.Text())
		}
	}
	if keepPlain && r.Plain != "" {
		parts = append(parts, r.Plain)
	}
	return Parse(strings.Join(parts, " "), r.Context)
}

// RemoveChip parses query, removes chip and returns the new query string.
func RemoveChip(query string, ctx Context, c Chip) string {
	return Parse(query, ctx).Remove(c).Query
}
