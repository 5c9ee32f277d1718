package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medialib/internal/auth"
	"medialib/internal/characters"
	"medialib/internal/events"
	"medialib/internal/library"
	"medialib/internal/media"
	"medialib/internal/middleware"
	"medialib/internal/progress"
	synchub "medialib/internal/sync"
)

type deps struct {
	DB      *sql.DB
	DBPath  string
	Tokens  auth.TokenService
	Hub     *synchub.Hub
	Events  events.Publisher
	Metrics bool
}

func newRouter(d deps) *gin.Engine {
	router := gin.New()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	quiet := []string{"/health", "/ready", "/metrics"}
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Metrics(quiet...), middleware.RequestLogger(quiet...))

	authRepo := auth.NewRepo(d.DB)
	verifier := auth.Verifier{Tokens: d.Tokens, Repo: authRepo}

	router.GET("/ws", synchub.WSHandler(d.Hub, verifier))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": d.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := d.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	if d.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api")
	protected := api.Group("")
	protected.Use(auth.AuthMiddleware(d.Tokens, authRepo))

	auth.NewHandler(authRepo, d.Tokens).RegisterRoutes(api)
	media.NewHandler(media.NewRepo(d.DB)).RegisterRoutes(api, protected)
	characters.NewHandler(characters.NewRepo(d.DB)).RegisterRoutes(api, protected)
	library.NewHandler(library.NewRepo(d.DB), d.Events).RegisterRoutes(protected)
	progress.NewHandler(progress.NewRepo(d.DB)).RegisterRoutes(protected)

	return router
}
