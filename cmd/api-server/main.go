package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"medialib/internal/auth"
	"medialib/internal/characters"
	"medialib/internal/events"
	"medialib/internal/grpcserver"
	"medialib/internal/library"
	"medialib/internal/logging"
	"medialib/internal/media"
	synchub "medialib/internal/sync"
	"medialib/pkg/database"
	"medialib/pkg/utils"
)

var log = logging.New("api-server")

func main() {
	cfg, err := utils.Load()
	if err != nil {
		log.Fatal("config: %v", err)
	}

	dbCfg := database.DefaultConfig()
	if err := database.EnsureDataDir(dbCfg); err != nil {
		log.Fatal("data dir: %v", err)
	}
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed: %v", err)
	}

	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	verifier := auth.Verifier{Tokens: tokenSvc, Repo: auth.NewRepo(db)}

	hub := synchub.NewHub()
	publishers := events.Fanout{hub}
	if cfg.Events.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.Events.NATSURL)
		if err != nil {
			log.Warn("nats unavailable, live events stay local: %v", err)
		} else {
			log.Info("publishing library events to %s", cfg.Events.NATSURL)
			publishers = append(publishers, nc)
		}
	}
	defer publishers.Close()

	router := newRouter(deps{
		DB:      db,
		DBPath:  dbCfg.Path,
		Tokens:  tokenSvc,
		Hub:     hub,
		Events:  publishers,
		Metrics: cfg.Server.Metrics,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tcpSrv := synchub.NewServer(cfg.Server.TCPAddr, hub, verifier)
	grpcSrv := grpcserver.NewGRPCServer(grpcserver.NewServer(
		media.NewRepo(db), characters.NewRepo(db), library.NewRepo(db), verifier,
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("TCP sync listening on %s", cfg.Server.TCPAddr)
		return tcpSrv.Run(gctx)
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		log.Info("gRPC search listening on %s", cfg.Server.GRPCAddr)
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		log.Info("HTTP API listening on %s", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown error: %v", err)
		}
		grpcSrv.GracefulStop()
		if err := tcpSrv.Close(); err != nil {
			log.Warn("tcp shutdown error: %v", err)
		}
		_ = hub.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error: %v", err)
		os.Exit(1)
	}
	log.Info("servers stopped")
}
