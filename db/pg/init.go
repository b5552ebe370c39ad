package pg

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tripledger/config"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// CreateDSN resolves the Postgres connection string. DATABASE_URL wins
// outright; otherwise the pieces are read individually with local defaults.
// The search_path is always pinned to the application schema so the store
// and the migrations agree on where the tables live.
func CreateDSN() string {
	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		slog.Info("database dsn resolved", slog.String("source", "DATABASE_URL"))
	} else {
		parts := []string{
			"host=" + envOr("DATABASE_HOST", "127.0.0.1"),
			"user=" + envOr("DATABASE_USER", "postgres"),
			"dbname=" + envOr("DATABASE_NAME", "postgres"),
			"port=" + envOr("DATABASE_PORT", "5432"),
			"sslmode=disable",
			"TimeZone=UTC",
		}
		if pw := os.Getenv("DATABASE_PASSWORD"); pw != "" {
			parts = append(parts, "password="+pw)
		}
		dsn = strings.Join(parts, " ")
		slog.Info("database dsn resolved", slog.String("source", "env parts"))
	}
	return dsn + " search_path=" + config.AppName
}

// InitPostgresGORM opens a GORM connection and verifies it with a ping.
// Query logging routes through slog; only slow queries surface.
func InitPostgresGORM(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// CloseGORM releases the underlying connection pool.
func CloseGORM(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
