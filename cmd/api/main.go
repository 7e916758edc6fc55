package main

import (
	"context"
	"os"

	"savemyfoods-backend/internal/config"
	"savemyfoods-backend/internal/interfaces/router"
	"savemyfoods-backend/internal/pkg/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	logger.Setup(cfg.LogLevel, cfg.Env)

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	if db != nil {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			log.Error().Err(err).Msg("database ping failed")
		} else {
			log.Info().Msg("database connected")
		}
	}
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Error().Err(err).Msg("redis ping failed")
		} else {
			log.Info().Msg("redis connected")
		}
	}
	if cfg.EstimatorEndpoint == "" {
		log.Info().Msg("AI_EXPIRY_ENDPOINT not set: listings without expires_on get no expiry date")
	}

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
