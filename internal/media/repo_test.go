package media

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialib/internal/dbtest"
	"medialib/pkg/models"
	"medialib/pkg/search"
)

func seedCatalog(t *testing.T) *sql.DB {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.User(t, db, "u1")
	dbtest.User(t, db, "u2")

	naruto := dbtest.Media(t, db, "Naruto", "tv", "completed", 2002, "action", "ninja")
	dbtest.Media(t, db, "Naruto Shippuden", "tv", "completed", 2007, "action", "ninja")
	dbtest.Media(t, db, "Boruto: Naruto Next Generations", "tv", "airing", 2017, "ninja")
	dbtest.Media(t, db, "Road to Ninja: Naruto the Movie", "movie", "completed", 2012, "action")
	dbtest.Media(t, db, "Naruto Gaiden", "ova", "upcoming", 2023)
	bleach := dbtest.Media(t, db, "Bleach", "tv", "completed", 2004, "action")
	dbtest.Media(t, db, "100% Orange Juice", "game", "released", 2008)
	dbtest.Media(t, db, "1000 Nights", "movie", "released", 0, "drama")

	dbtest.Entry(t, db, "u1", naruto, "completed", 8)
	dbtest.Entry(t, db, "u2", naruto, "completed", 7)
	dbtest.Entry(t, db, "u1", bleach, "watching", 6)
	return db
}

func list(t *testing.T, repo *Repo, query string, sort *search.Sort) *ListResult {
	t.Helper()
	v := search.ToParams(search.Parse(query, search.ContextMedia).Filters, sort)
	if v.Get(search.ParamPageSize) == "" {
		v.Set(search.ParamPageSize, "100")
	}
	res, err := repo.List(context.Background(), v)
	require.NoError(t, err)
	return res
}

func titles(items []models.Media) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.Title
	}
	return out
}

var byTitle = &search.Sort{Field: "title", Order: "asc"}

func TestListNarutoScenario(t *testing.T) {
	repo := NewRepo(seedCatalog(t))

	res := list(t, repo, "Naruto -status:completed year:>2010", byTitle)
	assert.Equal(t, []string{"Boruto: Naruto Next Generations", "Naruto Gaiden"}, titles(res.Items))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []search.Key{search.KeyTitle, search.KeyYear, search.KeyStatus}, res.Applied)
}

func TestListFilters(t *testing.T) {
	repo := NewRepo(seedCatalog(t))

	tests := []struct {
		query string
		want  []string
	}{
		{"type:movie type:ova", []string{"1000 Nights", "Naruto Gaiden", "Road to Ninja: Naruto the Movie"}},
		{"-type:tv -type:movie -type:ova", []string{"100% Orange Juice"}},
		{"tag:ninja -tag:action", []string{"Boruto: Naruto Next Generations"}},
		{"tag:drama tag:ninja", []string{"1000 Nights", "Boruto: Naruto Next Generations", "Naruto", "Naruto Shippuden"}},
		{"score:8", []string{"Naruto"}},
		{"score:<8", []string{"Bleach"}},
		{"year:2002", []string{"Naruto"}},
		{"100%", []string{"100% Orange Juice"}},
		{"title:_", nil},
		{"-year:<2010 type:movie", []string{"1000 Nights", "Road to Ninja: Naruto the Movie"}},
		{"Naruto Bleach", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := list(t, repo, tt.query, byTitle)
			got := titles(res.Items)
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, len(res.Items), res.Total)
		})
	}
}

func TestListCountMatchesEveryPage(t *testing.T) {
	repo := NewRepo(seedCatalog(t))

	for _, q := range []string{"", "Naruto", "-tag:action", "year:>2005", "type:tv -status:airing"} {
		t.Run(q, func(t *testing.T) {
			full := list(t, repo, q, byTitle)

			var seen []string
			for page := 1; ; page++ {
				v := search.ToParams(search.Parse(q, search.ContextMedia).Filters, byTitle)
				v.Set(search.ParamPage, strconv.Itoa(page))
				v.Set(search.ParamPageSize, "3")
				res, err := repo.List(context.Background(), v)
				require.NoError(t, err)
				assert.Equal(t, full.Total, res.Total)
				if len(res.Items) == 0 {
					break
				}
				seen = append(seen, titles(res.Items)...)
			}
			assert.Equal(t, titles(full.Items), seen)
		})
	}
}

func TestListSortAndDefaults(t *testing.T) {
	repo := NewRepo(seedCatalog(t))

	res := list(t, repo, "Naruto", &search.Sort{Field: "release_year", Order: "asc"})
	assert.Equal(t, []string{
		"Naruto",
		"Naruto Shippuden",
		"Road to Ninja: Naruto the Movie",
		"Boruto: Naruto Next Generations",
		"Naruto Gaiden",
	}, titles(res.Items))

	// unknown sort falls back to created_at desc, ties broken by id
	res = list(t, repo, "Naruto", &search.Sort{Field: "rating; DROP TABLE media"})
	assert.Equal(t, "created_at", res.Order.Name)
	assert.Len(t, res.Items, 5)
}

func TestListIgnoresJunkParams(t *testing.T) {
	repo := NewRepo(seedCatalog(t))

	res, err := repo.List(context.Background(), url.Values{
		"year_gt":   {"soon"},
		"score":     {"x"},
		"bogus":     {"1"},
		"page_size": {"1000"},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Total)
	assert.Equal(t, 8, len(res.Items))
	assert.Empty(t, res.Applied)
}

func TestScoreIsAverage(t *testing.T) {
	repo := NewRepo(seedCatalog(t))
	res := list(t, repo, "title:Naruto", byTitle)
	require.NotEmpty(t, res.Items)
	require.NotNil(t, res.Items[0].Score)
	assert.InDelta(t, 7.5, *res.Items[0].Score, 0.001)
	assert.Equal(t, []string{"action", "ninja"}, res.Items[0].Tags)
}

func TestCreateUpdateDelete(t *testing.T) {
	repo := NewRepo(dbtest.Open(t))
	ctx := context.Background()
	year := 1998

	m, err := repo.Create(ctx, Input{Title: "Cowboy Bebop", Type: "tv", Status: "completed", ReleaseYear: &year, Tags: []string{"space", " ", "Jazz"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Jazz", "space"}, m.Tags)
	require.NotNil(t, m.ReleaseYear)
	assert.Equal(t, 1998, *m.ReleaseYear)

	m, err = repo.Update(ctx, m.ID, Input{Title: "Cowboy Bebop", Type: "tv", Status: "completed", Tags: []string{"western"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"western"}, m.Tags)
	assert.Nil(t, m.ReleaseYear)

	_, err = repo.Update(ctx, 999, Input{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, m.ID))
	assert.ErrorIs(t, repo.Delete(ctx, m.ID), ErrNotFound)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
