package config

import (
	"context"
	"database/sql"
	"fmt"

	appconfig "github.com/crucial707/webdemo/internal/config"
	"github.com/crucial707/webdemo/internal/db"
	"github.com/crucial707/webdemo/internal/logger"
)

// Load reads the same DEMO_-prefixed environment (and .env) as the server and
// installs the configured logger.
func Load() (appconfig.Config, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return appconfig.Config{}, fmt.Errorf("load config: %w", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// LoadDatabase is Load plus a check of the database connection settings.
func LoadDatabase() (appconfig.Config, error) {
	cfg, err := Load()
	if err != nil {
		return cfg, err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// OpenDB loads the configuration and connects to the database.
func OpenDB(ctx context.Context) (*sql.DB, appconfig.Config, error) {
	cfg, err := LoadDatabase()
	if err != nil {
		return nil, cfg, err
	}
	database, err := db.Connect(ctx, cfg.DSN(), db.Options{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return nil, cfg, fmt.Errorf("connect to database: %w", err)
	}
	return database, cfg, nil
}
