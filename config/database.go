package config

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQL opens the gorm connection for the sql backend. It returns nil, nil
// when no DSN is configured.
func OpenSQL(cfg *Config) (*gorm.DB, error) {
	if cfg.SQLDSN == "" {
		return nil, nil
	}

	var dialector gorm.Dialector
	switch cfg.SQLDriver {
	case "mysql":
		dialector = mysql.Open(cfg.SQLDSN)
	default:
		dialector = sqlite.Open(cfg.SQLDSN)
	}

	logLevel := logger.Warn
	if cfg.GinMode == "release" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.SQLDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}
