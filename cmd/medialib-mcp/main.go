package main

import (
	"context"
	"os/signal"
	"syscall"

	"medialib/internal/characters"
	"medialib/internal/logging"
	"medialib/internal/mcp"
	"medialib/internal/media"
	"medialib/pkg/database"
)

var log = logging.New("mcp")

// Logs go to stderr; stdout carries the protocol.
func main() {
	cfg := database.DefaultConfig()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("open db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(media.NewRepo(db), characters.NewRepo(db))
	log.Info("serving %s on stdio (db %s)", mcp.ServerName, cfg.Path)
	if err := srv.Serve(ctx); err != nil {
		log.Error("serve: %v", err)
	}
}
