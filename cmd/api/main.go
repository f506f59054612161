package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"mediflow.org/internal/config"
	"mediflow.org/internal/httpapi"
	"mediflow.org/internal/obs"
	"mediflow.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := obs.Logger()
		l.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		l := obs.Logger()
		l.Fatal().Err(err).Msg("invalid config")
	}

	obs.InitLogger(cfg.LogLevel, cfg.LogFormat)
	obs.Init()
	obs.InitBuildInfo(version, commit)
	logger := obs.Logger()

	if cfg.PostgresDSN == "" {
		logger.Fatal().Msg("MEDIFLOW_PG_DSN is required")
	}
	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("open postgres")
	}
	defer store.Close()

	var limiter httpapi.Limiter = httpapi.NewLocalLimiter(cfg.RateBurst, cfg.RatePerSec)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		limiter = httpapi.NewRedisLimiter(rdb, cfg.RatePerSec*60, time.Minute)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis rate limiter")
	}

	api := httpapi.New(httpapi.Config{
		Version:        version,
		ReadyProbe:     httpapi.ReadyProbe{DB: store.DB()},
		Identities:     store.Identities(),
		Memberships:    store.Memberships(),
		Clinics:        store.Clinics(),
		Records:        store.Records(),
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info().Str("addr", cfg.ListenAddr).Str("version", version).Msg("starting mediflow-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()
	obs.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	logger.Info().Msg("stopped")
}
