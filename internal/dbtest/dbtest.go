// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"database/sql"
	"testing"

	"medialib/pkg/database"
)

// Open returns a migrated private in-memory database closed at test cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Exec runs a statement and returns the last insert id.
func Exec(t testing.TB, db *sql.DB, query string, args ...any) int64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
	id, _ := res.LastInsertId()
	return id
}

func User(t testing.TB, db *sql.DB, id string) {
	t.Helper()
	Exec(t, db, `INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, 'x')`,
		id, id, id+"@example.com")
}

// Media inserts a catalog row; year 0 stores NULL.
func Media(t testing.TB, db *sql.DB, title, typ, status string, year int, tags ...string) int64 {
	t.Helper()
	var y any
	if year != 0 {
		y = year
	}
	id := Exec(t, db, `INSERT INTO media (title, type, status, release_year) VALUES (?, ?, ?, ?)`,
		title, typ, status, y)
	for _, tag := range tags {
		Exec(t, db, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, tag)
		Exec(t, db, `INSERT INTO media_tags (media_id, tag_id) SELECT ?, id FROM tags WHERE name = ?`, id, tag)
	}
	return id
}

func Character(t testing.TB, db *sql.DB, name string, mediaIDs ...int64) int64 {
	t.Helper()
	id := Exec(t, db, `INSERT INTO characters (name) VALUES (?)`, name)
	for _, m := range mediaIDs {
		Exec(t, db, `INSERT INTO media_characters (media_id, character_id, role) VALUES (?, ?, 'main')`, m, id)
	}
	return id
}

// Entry puts media on a user's library; score 0 stores NULL.
func Entry(t testing.TB, db *sql.DB, userID string, mediaID int64, status string, score int) {
	t.Helper()
	var s any
	if score != 0 {
		s = score
	}
	Exec(t, db, `INSERT INTO user_media (user_id, media_id, status, score) VALUES (?, ?, ?, ?)`,
		userID, mediaID, status, s)
}
