package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	Driver          string `json:"driver"`
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// Checker is what the health endpoint needs from a store.
type Checker interface {
	Ping(ctx context.Context) error
	Stats() *PoolStats
}

type pgChecker struct {
	pool *pgxpool.Pool
}

func NewPGChecker(pool *pgxpool.Pool) Checker {
	return &pgChecker{pool: pool}
}

func (c *pgChecker) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgChecker) Stats() *PoolStats {
	stat := c.pool.Stat()
	return &PoolStats{
		Driver:          "postgres",
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

type sqlChecker struct {
	db *sql.DB
}

func NewSQLChecker(db *sql.DB) Checker {
	return &sqlChecker{db: db}
}

func (c *sqlChecker) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *sqlChecker) Stats() *PoolStats {
	return sqlStats(c.db.Stats())
}

func sqlStats(s sql.DBStats) *PoolStats {
	return &PoolStats{
		Driver:          "sqlite",
		TotalConns:      int32(s.OpenConnections),
		IdleConns:       int32(s.Idle),
		AcquiredConns:   int32(s.InUse),
		MaxConns:        int32(s.MaxOpenConnections),
		AcquireCount:    s.WaitCount,
		AcquireDuration: s.WaitDuration.String(),
		Healthy:         s.OpenConnections > 0,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(checker Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := checker.Ping(ctx)
		stats := checker.Stats()

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
