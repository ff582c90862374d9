// Package repository contains the repository layer for the quote collector
package repository

import (
	"fmt"

	"github.com/nsvirk/nsequotes/internal/config"
	"github.com/nsvirk/nsequotes/internal/models"
	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the configured database and migrates the collector tables
func ConnectDatabase(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing Database")
	zaplogger.Info(config.SingleLine)

	var logLevel logger.LogLevel
	switch cfg.DBLogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDsn)
	default:
		dialector = postgres.Open(cfg.DBDsn)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DBDriver, err)
	}
	zaplogger.Info("  * connected", zaplogger.Fields{"driver": cfg.DBDriver})

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the collector tables
func AutoMigrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{models.CycleRunsTableName, &models.CycleRunModel{}},
	}

	zaplogger.Info("  * migrating tables")
	for _, table := range tables {
		if err := db.AutoMigrate(table.model); err != nil {
			return fmt.Errorf("failed to auto migrate table: %s, err: %w", table.name, err)
		}
		zaplogger.Info("    - \"" + table.name + "\"")
	}
	return nil
}
