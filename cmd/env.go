package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/config"
	"github.com/tindralencia/barrio-match/internal/db"
	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/geospatial"
	"github.com/tindralencia/barrio-match/internal/matcher"
	"github.com/tindralencia/barrio-match/internal/resilience"
)

// matchEnv holds everything the match and serve commands need.
type matchEnv struct {
	Pool     *pgxpool.Pool
	Cache    *geospatial.CachedStore
	Recorder demand.Recorder
	Breaker  *resilience.Breaker
	Service  *matcher.Service
}

// Close releases resources held by the environment.
func (e *matchEnv) Close() {
	if e.Recorder != nil {
		if err := e.Recorder.Close(); err != nil {
			zap.L().Warn("close demand recorder", zap.Error(err))
		}
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// initMatchEnv connects to the store, applies demand migrations when demand
// goes to Postgres and builds the service. Callers should defer env.Close().
func initMatchEnv(ctx context.Context, mode string) (*matchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	schema, err := loadSchema(cfg.Datasets)
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	if err != nil {
		return nil, eris.Wrap(err, "connect store")
	}
	env := &matchEnv{Pool: pool}

	rec, err := initRecorder(ctx, cfg.Recorder, pool)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Recorder = rec

	env.Cache = geospatial.NewCachedStore(geospatial.NewPostgresStore(pool, schema), cfg.Cache.TTL)
	env.Breaker = resilience.NewBreaker("store", cfg.Retry.BreakerThreshold, cfg.Retry.BreakerCooldown)

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Retry.MaxAttempts
	retry.InitialBackoff = cfg.Retry.InitialBackoff
	retry.MaxBackoff = cfg.Retry.MaxBackoff

	env.Service = matcher.NewService(env.Cache, rec,
		matcher.WithRetry(retry),
		matcher.WithBreaker(env.Breaker),
	)
	return env, nil
}

func loadSchema(c config.DatasetsConfig) (*geospatial.Schema, error) {
	if c.SchemaPath == "" {
		return geospatial.DefaultSchema()
	}
	return geospatial.LoadSchema(c.SchemaPath)
}

// initRecorder opens the configured demand recorder. pool may be nil when
// the driver does not need Postgres.
func initRecorder(ctx context.Context, c config.RecorderConfig, pool *pgxpool.Pool) (demand.Recorder, error) {
	switch c.Driver {
	case "none":
		return demand.NopRecorder{}, nil
	case "sqlite":
		rec, err := demand.NewSQLiteRecorder(ctx, c.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite recorder")
		}
		return rec, nil
	case "postgres":
		if pool == nil {
			return nil, eris.New("postgres recorder needs a database pool")
		}
		if err := demand.Migrate(ctx, pool); err != nil {
			return nil, eris.Wrap(err, "migrate demand")
		}
		return demand.NewPostgresRecorder(pool), nil
	}
	return nil, eris.Errorf("unknown recorder driver %q", c.Driver)
}
