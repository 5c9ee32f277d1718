//go:build !purego

package database

// Default build: cgo sqlite via github.com/mattn/go-sqlite3.

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver registered for this build.
	DriverName = "sqlite3"

	BuildMode = "cgo"
)

func migrationDriver(db *sql.DB) (database.Driver, error) {
	return sqlite3.WithInstance(db, &sqlite3.Config{})
}
