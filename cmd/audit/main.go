package main

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"parkspot/internal/adapters/observability"
	"parkspot/internal/app"
	"parkspot/internal/shared"
	mysqlrepo "parkspot/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.AuditWorkers).
		Bool("fix", cfg.AuditFix).
		Msg("availability audit starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	audit := app.NewAuditService(mysqlrepo.New(db))
	rep, err := audit.Run(ctx, cfg.AuditWorkers, cfg.AuditFix)
	if err != nil {
		log.Fatal().Err(err).Msg("audit failed")
	}

	log.Info().
		Int("checked", rep.Checked).
		Int("mismatched", rep.Mismatched).
		Int("repaired", rep.Repaired).
		Int("failed", rep.Failed).
		Msg("audit completed")
}
