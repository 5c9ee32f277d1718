// Command import-csv loads catalog entries from CSV into the database.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"medialib/internal/export"
	"medialib/internal/logging"
	"medialib/internal/media"
	"medialib/pkg/database"
)

var log = logging.New("import")

func main() {
	var (
		catalogIn = flag.String("catalog", "data/catalog.csv", "input CSV path (id,title,type,status,release_year,tags,description,cover_url)")
		timeout   = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Open(database.DefaultConfig())
	if err != nil {
		log.Fatal("open db: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed: %v", err)
	}

	f, err := os.Open(*catalogIn)
	if err != nil {
		log.Fatal("open %s: %v", *catalogIn, err)
	}
	defer f.Close()

	stats, err := export.ImportCatalog(ctx, media.NewRepo(db), f)
	if err != nil {
		log.Fatal("import catalog failed: %v", err)
	}
	log.Info("imported %s: %d created, %d updated, %d skipped",
		*catalogIn, stats.Created, stats.Updated, stats.Skipped)
}
