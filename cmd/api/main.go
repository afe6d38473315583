package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "parkspot/internal/adapters/http_server"
	"parkspot/internal/adapters/identity"
	"parkspot/internal/adapters/observability"
	redisad "parkspot/internal/adapters/redis"
	"parkspot/internal/app"
	"parkspot/internal/shared"
	mysqlrepo "parkspot/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	resolver, err := identity.New(cfg.IdentityBase, cfg.IdentityKey, 20)
	if err != nil {
		log.Fatal().Err(err).Msg("identity client init failed")
	}
	spots := app.NewSpotService(repo, cache, cfg.CacheTTL)
	bookings := app.NewBookingService(repo, repo, cache)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Spots: spots, Bookings: bookings, Resolver: resolver})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
