package listing

import (
	"net/url"
	"strconv"
	"strings"

	"medialib/pkg/search"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Number int
	Size   int
}

// ParsePage reads page and page_size; out-of-range values use the defaults.
func ParsePage(v url.Values) Page {
	p := Page{
		Number: parseInt(v.Get(search.ParamPage), 1),
		Size:   parseInt(v.Get(search.ParamPageSize), DefaultPageSize),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		p.Size = DefaultPageSize
	}
	return p
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages is ceil(total/size), 0 for an empty result.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
