package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	repo "github.com/joseph-ayodele/pantry-receipts/internal/repository"
)

// ConnectDB opens the configured database. With AutoMigrate set the schema
// is created and the category table seeded.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	logger.Info("connecting to database", "driver", cfg.Driver)
	db, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			logger.Error("failed to migrate database", "error", err)
			return nil, err
		}
		if err := db.Queries().SeedCategories(ctx); err != nil {
			db.Close()
			logger.Error("failed to seed categories", "error", err)
			return nil, err
		}
	}

	logger.Info("successfully connected to database")
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging database")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// CloseDB closes the database connections gracefully
func CloseDB(db *repo.DB, logger *slog.Logger) {
	logger.Info("closing database connections")
	if db != nil {
		db.Close()
	}
	logger.Info("database connections closed")
}
