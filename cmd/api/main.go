package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"campusevents/internal/activity"
	"campusevents/internal/catalog"
	"campusevents/internal/config"
	"campusevents/internal/handler"
	"campusevents/internal/httpmiddleware"
	"campusevents/internal/identity"
	"campusevents/internal/kv"
	"campusevents/internal/metrics"
	"campusevents/internal/queue"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg := config.Load()
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.WithError(err).Fatal("http server failed")
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	var (
		store      kv.Store
		redisStore *kv.RedisStore
	)
	switch cfg.KVBackend {
	case "redis":
		redisStore = kv.NewRedisStore(cfg.RedisAddr)
		store = redisStore
	case "postgres":
		pg, err := kv.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		store = pg
	default:
		fs, err := kv.NewFileStore(cfg.KVPath)
		if err != nil {
			return err
		}
		store = fs
	}
	log.WithField("backend", cfg.KVBackend).Info("durable storage ready")

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		if redisStore == nil {
			redisStore = kv.NewRedisStore(cfg.RedisAddr)
		}
		q = queue.NewRedisQueue(redisStore.Client(), "campusevents:activity")
	} else {
		q = queue.NewInMemory(64)
	}

	// Activity archive is optional; the registration flow never depends on it.
	var archive *activity.Repository
	if cfg.DatabaseURL != "" {
		var err error
		archive, err = activity.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("activity archive not reachable")
			archive = nil
		} else {
			defer archive.Close()
		}
	}

	identityStore := identity.NewStore(ctx, store, identity.DefaultDirectory())
	catalogStore := catalog.NewStore(ctx, store)
	if cfg.SeedDemo {
		catalog.SeedDemo(catalogStore)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	h := handler.New(handler.Config{
		Identity:      identityStore,
		Catalog:       catalogStore,
		Queue:         q,
		Metrics:       m,
		Archive:       archive,
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		redisHealthy := true
		if redisStore != nil {
			redisHealthy = redisStore.Healthy(c.Request.Context())
			if !redisHealthy {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{
			"status":  "ok",
			"kv":      cfg.KVBackend,
			"redis":   redisHealthy,
			"archive": archive != nil,
		})
	})

	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced shutdown")
	}

	log.Info("server exited")
	return nil
}

// corsMiddleware allows browser requests from any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
