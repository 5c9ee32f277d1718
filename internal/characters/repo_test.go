package characters

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialib/internal/dbtest"
	"medialib/pkg/models"
	"medialib/pkg/search"
)

type cast struct {
	db                    *sql.DB
	naruto, boruto        int64
	itachi, sasuke, ichigo int64
}

func seedCast(t *testing.T) cast {
	t.Helper()
	db := dbtest.Open(t)
	c := cast{db: db}
	c.naruto = dbtest.Media(t, db, "Naruto", "tv", "completed", 2002)
	shippuden := dbtest.Media(t, db, "Naruto Shippuden", "tv", "completed", 2007)
	c.boruto = dbtest.Media(t, db, "Boruto", "tv", "airing", 2017)
	bleach := dbtest.Media(t, db, "Bleach", "tv", "completed", 2004)

	c.itachi = dbtest.Character(t, db, "Itachi Uchiha", c.naruto, shippuden)
	c.sasuke = dbtest.Character(t, db, "Sasuke Uchiha", c.naruto, shippuden, c.boruto)
	c.ichigo = dbtest.Character(t, db, "Ichigo Kurosaki", bleach)
	return c
}

func names(items []models.Character) []string {
	out := make([]string, len(items))
	for i, ch := range items {
		out[i] = ch.Name
	}
	return out
}

func TestListCharacters(t *testing.T) {
	c := seedCast(t)
	repo := NewRepo(c.db)

	tests := []struct {
		query string
		want  []string
	}{
		{"media:Naruto", []string{"Itachi Uchiha", "Sasuke Uchiha"}},
		{"Itachi media:Naruto", []string{"Itachi Uchiha"}},
		{"uchiha", []string{"Itachi Uchiha", "Sasuke Uchiha"}},
		{"appearances:>2", []string{"Sasuke Uchiha"}},
		{"appearances:<2", []string{"Ichigo Kurosaki"}},
		{"-media:Boruto", []string{"Ichigo Kurosaki", "Itachi Uchiha"}},
		{"media:Bleach media:Boruto", []string{"Ichigo Kurosaki", "Sasuke Uchiha"}},
		{"-name:uchiha", []string{"Ichigo Kurosaki"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			v := search.ToParams(search.Parse(tt.query, search.ContextCharacter).Filters, &search.Sort{Field: "name", Order: "asc"})
			res, err := repo.List(context.Background(), v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res.Items))
			assert.Equal(t, len(tt.want), res.Total)
		})
	}
}

func TestListSortByAppearances(t *testing.T) {
	c := seedCast(t)
	v := search.ToParams(search.Filters{}, &search.Sort{Field: "appearances"})

	res, err := NewRepo(c.db).List(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sasuke Uchiha", "Itachi Uchiha", "Ichigo Kurosaki"}, names(res.Items))
	assert.Equal(t, 3, res.Items[0].Appearances)
}

func TestGetByIDWithRoles(t *testing.T) {
	c := seedCast(t)
	repo := NewRepo(c.db)
	ctx := context.Background()

	require.NoError(t, repo.AddRole(ctx, c.boruto, c.itachi, "cameo"))
	ch, err := repo.GetByID(ctx, c.itachi)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, 3, ch.Appearances)
	require.Len(t, ch.Roles, 3)
	assert.Equal(t, models.Role{MediaID: c.boruto, MediaTitle: "Boruto", Role: "cameo"}, ch.Roles[0])

	ch, err = repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, ch)
}

func TestAddRoleMissingRefs(t *testing.T) {
	c := seedCast(t)
	repo := NewRepo(c.db)

	assert.ErrorIs(t, repo.AddRole(context.Background(), 999, c.itachi, ""), ErrNotFound)
	assert.ErrorIs(t, repo.AddRole(context.Background(), c.naruto, 999, ""), ErrNotFound)
}

func TestCreateCharacter(t *testing.T) {
	c := seedCast(t)
	ch, err := NewRepo(c.db).Create(context.Background(), Input{Name: "Rukia Kuchiki"})
	require.NoError(t, err)
	assert.Equal(t, "Rukia Kuchiki", ch.Name)
	assert.Equal(t, 0, ch.Appearances)
	assert.Empty(t, ch.Roles)
}
