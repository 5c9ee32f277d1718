package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chipStrings(chips []Chip) []string {
	out := make([]string, len(chips))
	for i, c := range chips {
		out[i] = c.String()
	}
	return out
}

func TestChipsFixedOrder(t *testing.T) {
	r := Parse("user_score:5 -type:tv tag:b title:x type:movie year:<2000 Foo", ContextMedia)

	assert.Equal(t, []string{
		"title:x",
		"title:Foo",
		"year:<2000",
		"type:movie",
		"-type:tv",
		"tag:b",
		"user_score:5",
	}, chipStrings(Chips(r.Filters)))
}

func TestChipName(t *testing.T) {
	chips := Chips(Parse("-user_status:dropped", ContextLibrary).Filters)
	require.Len(t, chips, 1)
	assert.Equal(t, "excludeUserStatus", chips[0].Name())
	assert.Equal(t, "-user_status", chips[0].Label)
}

func TestRemovePlainTextChip(t *testing.T) {
	r := Parse("Naruto tag:action -status:completed", ContextMedia)
	chips := r.Chips()
	require.Equal(t, "title:Naruto", chips[0].String())

	next := r.Remove(chips[0])
	assert.Equal(t, "tag:action -status:completed", next.Query)
	assert.Nil(t, next.Filters.List(KeyTitle))
}

func TestRemoveOneOfDuplicateValues(t *testing.T) {
	r := Parse("tag:drama x tag:drama", ContextMedia)
	chips := r.Chips()
	require.Equal(t, []string{"title:x", "tag:drama", "tag:drama"}, chipStrings(chips))

	next := r.Remove(chips[2])
	assert.Equal(t, "tag:drama x", next.Query)
	assert.Equal(t, []string{"drama"}, next.Filters.List(KeyTag))
}

func TestRemoveQuotedChip(t *testing.T) {
	r := Parse(`title:"Breaking Bad" year:2008 tag:"a:b"`, ContextMedia)
	chips := r.Chips()
	require.Equal(t, "title:Breaking Bad", chips[0].String())

	next := r.Remove(chips[0])
	assert.Equal(t, `year:2008 tag:a:b`, next.Query)
	assert.Equal(t, []string{"a:b"}, next.Filters.List(KeyTag))
}

func TestRemoveKeepsOtherTokensIntact(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		query string
		key   Key
		want  []string
	}{
		{"quote and colon", `title:a"b:c type:tv`, `title:a"b:c`, KeyTitle, []string{`a"b:c`}},
		{"colon only", `tag:a:b type:tv`, `tag:a:b`, KeyTag, []string{"a:b"}},
		{"quoted with colon", `tag:"a b:c" type:tv`, `tag:"a b:c"`, KeyTag, []string{"a b:c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Parse(tt.in, ContextMedia)
			chips := r.Chips()
			idx := -1
			for i, c := range chips {
				if c.Key == KeyType {
					idx = i
				}
			}
			require.NotEqual(t, -1, idx)

			next := r.Remove(chips[idx])
			assert.Equal(t, tt.query, next.Query)
			assert.Equal(t, tt.want, next.Filters.List(tt.key))
			assert.Nil(t, next.Filters.List(KeyType))
		})
	}
}

func TestRemoveKeepsPlainTextSpacing(t *testing.T) {
	r := Parse("Dexter   Morgan year:2006", ContextMedia)
	chips := r.Chips()
	require.Equal(t, []string{"title:Dexter   Morgan", "year:2006"}, chipStrings(chips))

	next := r.Remove(chips[1])
	assert.Equal(t, "Dexter   Morgan", next.Query)
	assert.Equal(t, []string{"Dexter   Morgan"}, next.Filters.List(KeyTitle))
}

func TestRemoveNumericChipDropsAllOccurrences(t *testing.T) {
	r := Parse("year:2000 Dexter year:2010", ContextMedia)
	chips := r.Chips()
	require.Equal(t, []string{"title:Dexter", "year:2010"}, chipStrings(chips))

	next := r.Remove(chips[1])
	assert.Equal(t, "Dexter", next.Query)
	_, ok := next.Filters.Bound(KeyYear)
	assert.False(t, ok)
}

func TestRemoveKeepsRejectedTokens(t *testing.T) {
	r := Parse("year:soon tag:x", ContextMedia)
	chips := r.Chips()
	require.Len(t, chips, 1)

	assert.Equal(t, "year:soon", r.Remove(chips[0]).Query)
}

func TestRemoveChipByContent(t *testing.T) {
	got := RemoveChip("type:movie -type:movie", ContextMedia, newChip(KeyType, true, "movie"))
	assert.Equal(t, "type:movie", got)

	got = RemoveChip("Itachi media:Naruto", ContextCharacter, newChip(KeyName, false, "Itachi"))
	assert.Equal(t, "media:Naruto", got)
}

func TestRemoveEveryChipEmptiesQuery(t *testing.T) {
	r := Parse(`Naruto -status:completed year:>2010 tag:"slice of life"`, ContextMedia)
	for len(r.Chips()) > 0 {
		r = r.Remove(r.Chips()[0])
	}
	assert.Equal(t, "", r.Query)
	assert.True(t, r.Filters.IsEmpty())
}
