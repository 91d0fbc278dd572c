package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nutriplan/nutriplan/internal/config"
	"github.com/nutriplan/nutriplan/internal/domain/dietplan"
	"github.com/nutriplan/nutriplan/internal/domain/integrity"
	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/nutrition"
	"github.com/nutriplan/nutriplan/internal/platform/db"
	"github.com/nutriplan/nutriplan/internal/platform/mcptools"
	"github.com/nutriplan/nutriplan/internal/platform/middleware"
)

const version = "0.1.0"

func runServer(migrationsDir string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	rules, err := cfg.NutritionRules()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load nutrition rules")
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg, migrationsDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer st.close()
	logger.Info().Str("driver", st.driver).Msg("connected to database")

	e := newServer(cfg, st, nutrition.NewDeriver(rules), logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and every route onto a fresh echo instance.
func newServer(cfg *config.Config, st *store, deriver *nutrition.Deriver, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/health"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(st.health))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 || rateLimitCfg.BurstSize < 1 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	patientSvc := patient.NewService(st.patients)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	planSvc := dietplan.NewService(st.plans, patientSvc, deriver, st.tx)
	dietplan.NewHandler(planSvc).RegisterRoutes(apiV1)
	dietplan.NewNutritionHandler(deriver).RegisterRoutes(apiV1)

	mcptools.NewServer(deriver).RegisterRoutes(apiV1)

	admin := apiV1.Group("/admin")
	checker := integrity.NewChecker(st.patients, st.plans, deriver, st.tx, logger)
	integrity.NewHandler(checker).RegisterRoutes(admin)

	return e
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
