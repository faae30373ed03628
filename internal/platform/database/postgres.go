package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// NewPostgresDB keeps dialing until the server answers or MaxRetries is spent.
func NewPostgresDB(cfg Config, log *zap.Logger) (*sql.DB, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	var db *sql.DB
	var err error

	for i := 1; i <= maxRetries; i++ {
		log.Info("connecting to database", zap.Int("attempt", i), zap.Int("max_attempts", maxRetries))
		db, err = sql.Open("postgres", cfg.DSN)
		if err == nil {
			err = db.Ping()
		}

		if err == nil {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

			log.Info("database connected")
			return db, nil
		}

		if db != nil {
			_ = db.Close()
		}

		if i == maxRetries {
			break
		}

		log.Warn("database not ready yet", zap.Duration("retry_in", retryDelay), zap.Error(err))
		time.Sleep(retryDelay)
	}

	return nil, fmt.Errorf("connect database after %d attempts: %w", maxRetries, err)
}
