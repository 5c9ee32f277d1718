// Command export-csv writes the catalog or library as CSV to a local
// directory or the configured S3 bucket.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"time"

	"medialib/internal/export"
	"medialib/internal/logging"
	"medialib/pkg/database"
	"medialib/pkg/utils"
)

var log = logging.New("export")

func main() {
	var (
		what    = flag.String("what", "library", "catalog or library")
		userID  = flag.String("user", "", "export only this user's library")
		outDir  = flag.String("out", "data", "output directory for local exports")
		toS3    = flag.Bool("s3", false, "upload to the bucket from [export] config instead of writing locally")
		name    = flag.String("name", "", "file or object name (default <what>-<date>.csv)")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg, err := utils.Load()
	if err != nil {
		log.Fatal("load config: %v", err)
	}

	dest, err := destination(ctx, cfg.Export, *toS3, *outDir)
	if err != nil {
		log.Fatal("%v", err)
	}

	db, err := database.Open(database.DefaultConfig())
	if err != nil {
		log.Fatal("open db: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed: %v", err)
	}

	var (
		buf bytes.Buffer
		n   int
	)
	switch *what {
	case "catalog":
		n, err = export.WriteCatalog(ctx, db, &buf)
	case "library":
		n, err = export.WriteLibrary(ctx, db, *userID, &buf)
	default:
		log.Fatal("unknown -what %q (want catalog or library)", *what)
	}
	if err != nil {
		log.Fatal("export %s failed: %v", *what, err)
	}

	if *name == "" {
		*name = fmt.Sprintf("%s-%s.csv", *what, time.Now().UTC().Format("20060102-150405"))
	}
	loc, err := dest.Write(ctx, *name, buf.Bytes())
	if err != nil {
		log.Fatal("write export: %v", err)
	}
	log.Info("exported %d %s rows to %s", n, *what, loc)
}

func destination(ctx context.Context, cfg utils.ExportConfig, toS3 bool, dir string) (export.Destination, error) {
	if !toS3 {
		return export.FileDestination{Dir: dir}, nil
	}
	return export.NewS3Destination(ctx, cfg.Bucket, cfg.Prefix, cfg.Region, cfg.Endpoint)
}
