package gormstore

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/davidbz/promptdesk/internal/domain"
)

// migrations are applied in order and recorded in the gormigrate table.
//
//nolint:gochecknoglobals // Static migration list
var migrations = []*gormigrate.Migration{
	{
		ID: "0001_create_api_keys",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&domain.APIKey{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("api_keys")
		},
	},
	{
		ID: "0002_create_requests",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&domain.Request{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("requests")
		},
	},
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations)
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
