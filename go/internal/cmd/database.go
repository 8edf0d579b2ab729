package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/dbconfig"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

func setupDatabase(dbCfg dbconfig.Config) (*sql.DB, error) {
	database, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("user", dbCfg.User).
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("connected to database")
	return database, nil
}

// setupStore opens the configured shared-state backend. The returned cleanup
// closes everything the store depends on.
func setupStore(ctx context.Context, config *Config) (store.Store, func(), error) {
	switch config.Store.Backend {
	case BackendNATS:
		natsCfg := store.DefaultNATSConfig()
		natsCfg.URL = config.Store.NATS.URL
		natsCfg.Bucket = config.Store.NATS.Bucket
		s, err := store.NewNATSStore(ctx, natsCfg)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case BackendPostgres:
		dbCfg := dbconfig.NewConfigFromEnv()
		database, err := setupDatabase(dbCfg)
		if err != nil {
			return nil, nil, err
		}
		pgCfg := store.DefaultPostgresConfig()
		pgCfg.DatabaseURL = dbCfg.DSN()
		pgCfg.NotifyChannel = config.Store.Postgres.NotifyChannel
		pgCfg.FallbackInterval = config.Store.Postgres.FallbackInterval
		s, err := store.NewPostgresStore(database, pgCfg)
		if err != nil {
			database.Close()
			return nil, nil, err
		}
		return s, func() {
			_ = s.Close()
			database.Close()
		}, nil

	default:
		log.Warn().Msg("using in-memory store, room state is lost on restart")
		s := store.NewMemoryStore()
		return s, func() { _ = s.Close() }, nil
	}
}
