package config

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB creates a new database connection using configuration settings.
// The driver is selected by configuration: sqlite (default) keeps the
// single-file deployment of the original bot, postgres is available for
// deployments that already run one.
func NewDB() (*gorm.DB, error) {
	cfg := Get()

	// TranslateError maps driver duplicate-key errors onto
	// gorm.ErrDuplicatedKey, which the repository relies on.
	gormConfig := &gorm.Config{TranslateError: true}

	if cfg.Server.Env == "development" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Error)
	}

	var db *gorm.DB
	var err error

	switch cfg.Database.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
			cfg.Database.SSLMode,
		)

		// Retry while the database comes up
		retries := 5
		delay := 5 * time.Second
		for i := 0; i < retries; i++ {
			db, err = gorm.Open(postgres.Open(dsn), gormConfig)
			if err == nil {
				break
			}
			time.Sleep(delay)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database after %d retries: %w", retries, err)
		}
	default:
		db, err = gorm.Open(sqlite.Open(cfg.Database.Path), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database %s: %w", cfg.Database.Path, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		// Serialize writes through a single connection; sqlite does
		// not benefit from a larger pool and this avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// TestConnection checks if the database connection is working
func TestConnection(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
