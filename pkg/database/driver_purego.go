//go:build purego

package database

// Pure Go build without a C toolchain:
//
//	CGO_ENABLED=0 go build -tags purego ./...
//
// Driver used: modernc.org/sqlite

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver registered for this build.
	DriverName = "sqlite"

	BuildMode = "purego"
)

func migrationDriver(db *sql.DB) (database.Driver, error) {
	return sqlite.WithInstance(db, &sqlite.Config{})
}
