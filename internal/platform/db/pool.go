package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

const (
	poolMaxConnIdleTime   = 5 * time.Minute
	poolHealthCheckPeriod = time.Minute
)

// NewPool opens and pings a pgx pool. Failed queries are logged through
// logger; with logQueries every query is, at debug level.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32, logger zerolog.Logger, logQueries bool) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnIdleTime = poolMaxConnIdleTime
	cfg.HealthCheckPeriod = poolHealthCheckPeriod

	level := tracelog.LogLevelWarn
	if logQueries {
		level = tracelog.LogLevelDebug
	}
	cfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   queryLogger(logger),
		LogLevel: level,
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// queryLogger forwards pgx trace events to zerolog.
func queryLogger(logger zerolog.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
		var evt *zerolog.Event
		switch level {
		case tracelog.LogLevelError:
			evt = logger.Error()
		case tracelog.LogLevelWarn:
			evt = logger.Warn()
		case tracelog.LogLevelInfo:
			evt = logger.Info()
		default:
			evt = logger.Debug()
		}
		evt.Fields(data).Msg("pgx: " + msg)
	})
}
