package library

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialib/internal/dbtest"
	"medialib/internal/listing"
	"medialib/internal/progress"
	"medialib/pkg/search"
)

type fixture struct {
	db                               *sql.DB
	naruto, shippuden, bleach, akira int64
}

func seed(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.User(t, db, "u1")
	dbtest.User(t, db, "u2")

	f := fixture{db: db}
	f.naruto = dbtest.Media(t, db, "Naruto", "tv", "completed", 2002, "action")
	f.shippuden = dbtest.Media(t, db, "Naruto Shippuden", "tv", "completed", 2007, "action", "drama")
	f.bleach = dbtest.Media(t, db, "Bleach", "tv", "completed", 2004, "action")
	f.akira = dbtest.Media(t, db, "Akira", "movie", "completed", 1988)

	dbtest.Entry(t, db, "u1", f.naruto, StatusWatching, 8)
	dbtest.Entry(t, db, "u1", f.shippuden, StatusCompleted, 9)
	dbtest.Entry(t, db, "u1", f.akira, StatusDropped, 0)
	dbtest.Entry(t, db, "u1", f.bleach, StatusPlanned, 0)
	dbtest.Entry(t, db, "u2", f.bleach, StatusWatching, 6)
	return f
}

func titles(res *ListResult) []string {
	out := make([]string, len(res.Items))
	for i, e := range res.Items {
		out[i] = e.Media.Title
	}
	return out
}

func TestListFromParsedQuery(t *testing.T) {
	f := seed(t)
	repo := NewRepo(f.db)

	r := search.Parse("Naruto -user_status:dropped", search.ContextLibrary)
	v := search.ToParams(r.Filters, &search.Sort{Field: "title", Order: "asc"})

	res, err := repo.List(context.Background(), "u1", v)
	require.NoError(t, err)
	assert.Equal(t, []string{"Naruto", "Naruto Shippuden"}, titles(res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []search.Key{search.KeyTitle, search.KeyUserStatus}, res.Applied)
}

func TestListFilters(t *testing.T) {
	f := seed(t)
	repo := NewRepo(f.db)

	tests := []struct {
		query string
		want  []string
	}{
		{"user_score:>8", []string{"Naruto Shippuden"}},
		{"user_score:8", []string{"Naruto"}},
		{"user_status:ptw", []string{"Bleach"}},
		{"user_status:watching user_status:completed", []string{"Naruto", "Naruto Shippuden"}},
		{"tag:drama", []string{"Naruto Shippuden"}},
		{"-tag:action", []string{"Akira"}},
		{"type:movie", []string{"Akira"}},
		{"year:<2003", []string{"Akira", "Naruto"}},
		{"-year:>2003", []string{"Akira", "Naruto"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			v := search.ToParams(search.Parse(tt.query, search.ContextLibrary).Filters, &search.Sort{Field: "title", Order: "asc"})
			res, err := repo.List(context.Background(), "u1", v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(res))
			assert.Equal(t, len(tt.want), res.Total)
		})
	}
}

func TestListOnlyOwnEntries(t *testing.T) {
	f := seed(t)
	res, err := NewRepo(f.db).List(context.Background(), "u2", nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Bleach", res.Items[0].Media.Title)
	require.NotNil(t, res.Items[0].Score)
	assert.Equal(t, 6, *res.Items[0].Score)
}

func TestListSortByUserScoreWithTiebreak(t *testing.T) {
	f := seed(t)
	v := search.ToParams(search.Filters{}, &search.Sort{Field: "user_score", Order: "asc"})

	res, err := NewRepo(f.db).List(context.Background(), "u1", v)
	require.NoError(t, err)
	// unscored entries sort first and fall back to id order
	assert.Equal(t, []string{"Bleach", "Akira", "Naruto", "Naruto Shippuden"}, titles(res))
	assert.Equal(t, "user_score", res.Order.Name)
}

func TestListPagination(t *testing.T) {
	f := seed(t)
	v := search.ToParams(search.Filters{}, &search.Sort{Field: "title", Order: "asc"})
	v.Set(search.ParamPage, "2")
	v.Set(search.ParamPageSize, "3")

	res, err := NewRepo(f.db).List(context.Background(), "u1", v)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, []string{"Naruto Shippuden"}, titles(res))
	assert.Equal(t, 2, listing.TotalPages(res.Total, res.Page.Size))
}

func TestUpsertRecordsProgressChanges(t *testing.T) {
	f := seed(t)
	repo := NewRepo(f.db)
	ctx := context.Background()

	e, err := repo.Upsert(ctx, "u2", f.akira, Input{Status: StatusWatching, Progress: 3})
	require.NoError(t, err)
	assert.Equal(t, StatusWatching, e.Status)
	assert.Equal(t, "Akira", e.Media.Title)

	_, err = repo.Upsert(ctx, "u2", f.akira, Input{Status: StatusOnHold, Progress: 3})
	require.NoError(t, err)
	score := 7
	e, err = repo.Upsert(ctx, "u2", f.akira, Input{Status: StatusCompleted, Progress: 5, Score: &score})
	require.NoError(t, err)
	require.NotNil(t, e.Score)
	assert.Equal(t, 7, *e.Score)

	hist, total, err := progress.NewRepo(f.db).List(ctx, "u2", f.akira, listing.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 5, hist[0].Progress)
	assert.Equal(t, 3, hist[1].Progress)
}

func TestUpsertUnknownMedia(t *testing.T) {
	f := seed(t)
	_, err := NewRepo(f.db).Upsert(context.Background(), "u1", 999, Input{Status: StatusPlanned})
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestUpsertUnknownMediaSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM media WHERE id = ?")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectRollback()

	_, err = NewRepo(db).Upsert(context.Background(), "u1", 42, Input{Status: StatusPlanned})
	assert.ErrorIs(t, err, ErrMediaNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_media")).
		WithArgs("u1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewRepo(db).Delete(context.Background(), "u1", 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"Plan to Watch": StatusPlanned,
		"reading":       StatusWatching,
		"done":          StatusCompleted,
		"on-hold":       StatusOnHold,
		"DROPPED":       StatusDropped,
		"later":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeStatus(in), in)
	}
}
