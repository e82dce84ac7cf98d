package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/logger"
)

var DB *gorm.DB

// Initialize sets up the database connection based on the application config
func Initialize(cfg *config.DatabaseConfig) error {
	var err error

	switch cfg.Type {
	case "postgres":
		DB, err = connectPostgres(cfg)
	case "sqlite":
		DB, err = connectSQLite(cfg)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("✅ Database initialized", "type", cfg.Type)
	return nil
}

func gormConfig(cfg *config.DatabaseConfig) *gorm.Config {
	logMode := gormlogger.Warn
	if cfg.LogQueries {
		logMode = gormlogger.Info
	}
	return &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logMode),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func connectPostgres(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port)
	return gorm.Open(postgres.Open(dsn), gormConfig(cfg))
}

func connectSQLite(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(cfg.SQLitePath), gormConfig(cfg))
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB overrides the database instance; used by tests.
func SetDB(db *gorm.DB) {
	DB = db
}
