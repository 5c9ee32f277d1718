package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialib/internal/dbtest"
	"medialib/internal/media"
)

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestImportCatalogThenWrite(t *testing.T) {
	db := dbtest.Open(t)
	repo := media.NewRepo(db)
	ctx := context.Background()

	in := strings.Join([]string{
		"title,type,status,release_year,tags",
		"Naruto,Anime,Completed,2002,action|ninja",
		",anime,airing,2020,",
		`"Cowboy Bebop",anime,completed,1998,"space| noir"`,
	}, "\n")
	stats, err := ImportCatalog(ctx, repo, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Created: 2, Skipped: 1}, stats)

	var buf bytes.Buffer
	n, err := WriteCatalog(ctx, db, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records := readCSV(t, buf.String())
	require.Len(t, records, 3)
	assert.Equal(t, CatalogHeader, records[0])
	assert.Equal(t, "Cowboy Bebop", records[1][1])
	assert.Equal(t, "noir|space", records[1][5])
	assert.Equal(t, []string{"Naruto", "anime", "completed", "2002", "action|ninja"}, records[2][1:6])
}

func TestImportCatalogUpdatesByID(t *testing.T) {
	db := dbtest.Open(t)
	repo := media.NewRepo(db)
	ctx := context.Background()
	id := dbtest.Media(t, db, "Akira", "movie", "completed", 1988)

	in := "id,title,type,status,release_year\n" +
		itoa(id) + ",Akira (1988),movie,completed,1988\n" +
		"999,Bleach,anime,completed,\n"
	stats, err := ImportCatalog(ctx, repo, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Created: 1, Updated: 1}, stats)

	m, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Akira (1988)", m.Title)
}

func TestImportCatalogBadYear(t *testing.T) {
	db := dbtest.Open(t)
	_, err := ImportCatalog(context.Background(), media.NewRepo(db),
		strings.NewReader("title,release_year\nX,soon\n"))
	assert.ErrorContains(t, err, `line 2: parse release_year "soon"`)
}

func TestWriteLibrary(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	dbtest.User(t, db, "u1")
	dbtest.User(t, db, "u2")
	naruto := dbtest.Media(t, db, "Naruto", "anime", "completed", 2002)
	akira := dbtest.Media(t, db, "Akira", "movie", "completed", 1988)
	dbtest.Entry(t, db, "u1", naruto, "watching", 8)
	dbtest.Entry(t, db, "u1", akira, "completed", 0)
	dbtest.Entry(t, db, "u2", naruto, "dropped", 3)

	var buf bytes.Buffer
	n, err := WriteLibrary(ctx, db, "u1", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records := readCSV(t, buf.String())
	require.Len(t, records, 3)
	assert.Equal(t, LibraryHeader, records[0])
	assert.Equal(t, []string{"u1", "u1", itoa(akira), "Akira", "completed", ""}, records[1][:6])
	assert.Equal(t, []string{"u1", "u1", itoa(naruto), "Naruto", "watching", "8"}, records[2][:6])

	buf.Reset()
	n, err = WriteLibrary(ctx, db, "", &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFileDestination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	loc, err := FileDestination{Dir: dir}.Write(context.Background(), "library.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "library.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Destination(t *testing.T) {
	fp := &fakePutter{}
	d := NewS3DestinationWithClient(fp, "backups", "exports/")

	loc, err := d.Write(context.Background(), "library.csv", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "s3://backups/exports/library.csv", loc)
	assert.Equal(t, "backups", *fp.in.Bucket)
	assert.Equal(t, "exports/library.csv", *fp.in.Key)
	assert.Equal(t, "text/csv", *fp.in.ContentType)
	assert.Equal(t, "x", fp.body)

	fp.err = errors.New("denied")
	_, err = d.Write(context.Background(), "library.csv", nil)
	assert.EqualError(t, err, "s3 put object: denied")
}

func TestNewS3DestinationNeedsBucket(t *testing.T) {
	_, err := NewS3Destination(context.Background(), "", "", "us-east-1", "")
	assert.EqualError(t, err, "s3 bucket is required")
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
