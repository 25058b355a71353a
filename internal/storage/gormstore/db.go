// Package gormstore persists API keys and requests with gorm. Postgres is the
// production dialect; sqlite backs local runs and tests.
package gormstore

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			return nil, fmt.Errorf("failed to access sqlite handle: %w", dbErr)
		}
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Store implements domain.APIKeyStore and domain.RequestStore.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on top of an open connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RunInTransaction executes fn inside a single database transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
