// Command blacklistd exposes the blacklist Index over HTTP: unauthenticated
// read routes and JWT-protected mutation routes, backed by a SQLite durable
// store and an in-memory tiered index.
package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	chiserver "github.com/PhilipKram/blacklist-index/pkg/server/chi"

	"github.com/PhilipKram/blacklist-index/pkg/coordinator"
	"github.com/PhilipKram/blacklist-index/pkg/durablestore"
	"github.com/PhilipKram/blacklist-index/pkg/envconfig"
	"github.com/PhilipKram/blacklist-index/pkg/healthcheck"
	"github.com/PhilipKram/blacklist-index/pkg/logger"
	mw "github.com/PhilipKram/blacklist-index/pkg/middleware"
	"github.com/PhilipKram/blacklist-index/pkg/notifier"
	"github.com/PhilipKram/blacklist-index/pkg/passwords"
	blacklistprom "github.com/PhilipKram/blacklist-index/pkg/prometheus"
	"github.com/PhilipKram/blacklist-index/pkg/redis"
)

func main() {
	cfg := loadConfig()
	log := logger.New(logger.Config{Level: cfg.LogLevel})

	if err := verifyAdminBootstrap(cfg); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap verification failed")
	}

	dbPath, err := envconfig.ResolveAbsPath(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving database path")
	}

	store, err := durablestore.Open(dbPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("opening durable store")
	}
	defer store.Close()

	var notify coordinator.Notifier
	if cfg.RedisEnabled {
		notify = connectNotifier(cfg, log)
	}

	coord, err := coordinator.New(coordinator.Config{
		HotDomainSources: cfg.HotDomainSources,
		HotURLSources:    cfg.HotURLSources,
		HotIPSources:     cfg.HotIPSources,
	}, store, log, prometheus.DefaultRegisterer, notify)
	if err != nil {
		log.Fatal().Err(err).Msg("constructing coordinator")
	}

	readTimeout, writeTimeout, idleTimeout := readTimeouts()
	srv, router := chiserver.Setup(chiserver.Config{
		Port:         cfg.HTTPPort,
		AccessLog:    false, // superseded by mw.RequestLoggerWithSkip below
		Production:   cfg.HTTPProduction,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	})

	router.Use(mw.CORS(mw.DefaultCORSConfig()))
	router.Use(mw.Recovery(log))
	router.Use(mw.Timeout(writeTimeout))
	if cfg.HTTPAccessLog {
		router.Use(mw.RequestLoggerWithSkip(log, []string{"/healthz/readiness", "/healthz/liveness", "/metrics"}))
	}

	healthcheck.RegisterChiWithChecks(router, func() error {
		_, err := store.CountEntries()
		return err
	}, nil)
	blacklistprom.RegisterChi(router)

	a := &api{coord: coord}
	registerReadRoutes(router, a)
	registerWriteRoutes(router, a, cfg, log)

	chiserver.Start(srv)
}

func registerReadRoutes(router chi.Router, a *api) {
	router.Get("/v1/check", a.handleCheck)
	router.Get("/v1/domains/{domain}", a.handleIsDomain)
	router.Get("/v1/urls", a.handleIsURL)
	router.Get("/v1/ips/{addr}", a.handleIsIP)
	router.Get("/v1/stats/count", a.handleCountEntries)
	router.Get("/v1/stats/sources", a.handleSourceCounts)
	router.Get("/v1/stats/sources/types", a.handleSourceTypeCounts)
	router.Get("/v1/stats/sources/active", a.handleActiveSources)
	router.Get("/v1/sample", a.handleSample)
	router.Get("/v1/updates", a.handleUpdateHistory)
	router.Get("/v1/metrics", a.handleMetrics)
}

func registerWriteRoutes(router chi.Router, a *api, cfg appConfig, log zerolog.Logger) {
	router.Group(func(r chi.Router) {
		r.Use(mw.JWTAuth([]byte(cfg.JWTSecret), log))

		r.Post("/v1/domains", a.addHandler(a.coord.AddDomain))
		r.Post("/v1/urls", a.addHandler(a.coord.AddURL))
		r.Post("/v1/ips", a.addHandler(a.coord.AddIP))
		r.Post("/v1/batch", a.handleAddBatch)
		r.Post("/v1/remove", a.handleRemove)
		r.Post("/v1/reload", a.handleReload)
		r.Post("/v1/updates", a.handleLogUpdate)
	})
}

// connectNotifier attempts a Redis connection for update notifications.
// A failure here is logged and treated as "notifications disabled" rather
// than fatal — the Index functions correctly without a broker.
func connectNotifier(cfg appConfig, log zerolog.Logger) coordinator.Notifier {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redis.Connect(ctx, redis.Config{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, update notifications disabled")
		return nil
	}
	return notifier.New(client, cfg.UpdateChannel, log)
}

// verifyAdminBootstrap checks the configured bootstrap key against its
// bcrypt hash once at startup; with no hash configured it accepts any key.
// The bootstrap key is separate from cfg.JWTSecret, which JWTAuth uses to
// verify mutation-route tokens.
func verifyAdminBootstrap(cfg appConfig) error {
	if cfg.AdminSecretHash == "" {
		return nil
	}
	return passwords.Check(cfg.AdminSecretHash, cfg.AdminBootstrapKey)
}
