package main

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nutriplan/nutriplan/internal/config"
	"github.com/nutriplan/nutriplan/internal/domain/dietplan"
	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/platform/db"
)

// store bundles the repositories and plumbing for one backing database.
type store struct {
	driver   string
	patients patient.Repository
	plans    dietplan.Repository
	tx       db.TxRunner
	health   db.Checker
	migrator *db.Migrator
	close    func()
}

// openStore connects to the database selected by STORE_DRIVER. Migrations
// are read from <migrationsDir>/<driver>.
func openStore(ctx context.Context, cfg *config.Config, migrationsDir string, logger zerolog.Logger) (*store, error) {
	dir := filepath.Join(migrationsDir, cfg.StoreDriver)

	if cfg.StoreDriver == config.DriverSQLite {
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &store{
			driver:   config.DriverSQLite,
			patients: patient.NewRepoSQLite(conn),
			plans:    dietplan.NewRepoSQLite(conn),
			tx:       db.NewSQLTxRunner(conn),
			health:   db.NewSQLChecker(conn),
			migrator: db.NewMigrator(db.NewSQLiteExecutor(conn), dir),
			close:    func() { conn.Close() },
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger, cfg.IsDev())
	if err != nil {
		return nil, err
	}
	return &store{
		driver:   config.DriverPostgres,
		patients: patient.NewRepoPG(pool),
		plans:    dietplan.NewRepoPG(pool),
		tx:       db.NewPGTxRunner(pool),
		health:   db.NewPGChecker(pool),
		migrator: db.NewMigrator(db.NewPGExecutor(pool), dir),
		close:    pool.Close,
	}, nil
}
