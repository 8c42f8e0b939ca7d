// Package database manages the Postgres connection used by the audit
// trail, plus schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// Config holds database connection settings.
type Config struct {
	Host        string
	Port        int
	Database    string
	Username    string
	Password    string
	SSLMode     string
	MaxOpen     int
	MaxIdle     int
	MaxConnLife time.Duration
}

// DB wraps database/sql with health checks. The pgx stdlib driver
// backs the pool.
type DB struct {
	SQL *sql.DB
	log *logrus.Logger
}

// NewConnection opens a connection pool and verifies connectivity.
func NewConnection(ctx context.Context, config Config, logger *logrus.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database, config.Username, config.Password, config.SSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpen)
	db.SetMaxIdleConns(config.MaxIdle)
	db.SetConnMaxLifetime(config.MaxConnLife)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      config.Host,
		"port":      config.Port,
		"database":  config.Database,
		"max_open":  config.MaxOpen,
		"max_idle":  config.MaxIdle,
	}).Info("Database connection pool established")

	return &DB{SQL: db, log: logger}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.SQL != nil {
		db.SQL.Close()
		db.log.Info("Database connection pool closed")
	}
}

// Health checks database connectivity.
func (db *DB) Health(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

// Stats returns connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.SQL.Stats()
}
