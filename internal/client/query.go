package client

import (
	"fmt"
	"sort"

	"medialib/pkg/search"
)

// PrepareQuery parses query and drops the chips at the given 1-based
// indexes, numbered as Result.Chips lists them for the original query.
func PrepareQuery(query string, ctx search.Context, remove []int) (search.Result, error) {
	r := search.Parse(query, ctx)
	if len(remove) == 0 {
		return r, nil
	}

	n := len(r.Chips())
	idx := make([]int, 0, len(remove))
	seen := make(map[int]bool)
	for _, i := range remove {
		if i < 1 || i > n {
			return r, fmt.Errorf("no chip %d (query has %d)", i, n)
		}
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}

	// Removing a chip never renumbers the chips before it.
	sort.Sort(sort.Reverse(sort.IntSlice(idx)))
	for _, i := range idx {
		r = r.Remove(r.Chips()[i-1])
	}
	return r, nil
}
