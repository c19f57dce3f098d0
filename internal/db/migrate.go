package db

import (
	"context" // Context for seeding
	"time"    // Slow query threshold

	"tap_system/internal/domain" // Importing domain models
	"tap_system/internal/store"  // Preset get-or-create

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger
)

// Open connects to MySQL. Driver errors are translated so duplicate keys surface as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true, // Map driver errors to gorm errors
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond, // Log slow queries
			LogLevel:                  logger.Warn,            // Only warnings and errors
			IgnoreRecordNotFoundError: true,                   // Missing rows are expected
		}),
	})
}

// Migrate performs automatic migration for the database schema and seeds the preset users
func Migrate(ctx context.Context, db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(&domain.Product{}, &domain.User{}, &domain.Order{}, &domain.OrderItem{}); err != nil {
		return err
	}
	s := store.New(db)
	if _, err := s.Koelkast(ctx); err != nil {
		return err // Seed the shared fridge account
	}
	if _, err := s.Guest(ctx); err != nil {
		return err // Seed the guest account
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
