package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DbUri string
}

// Enabled reports whether a database connection string was configured.
func (c Config) Enabled() bool {
	return c.DbUri != ""
}

type DB struct {
	*sql.DB
	logger *logrus.Logger
}

func NewConnection(ctx context.Context, dbUri string, logger *logrus.Logger) (*DB, error) {
	db, err := sql.Open("postgres", dbUri)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully")

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}

func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}

// Migrate creates the tables used by the collector and the trading engine.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	db.logger.WithField("statements", len(schema)).Debug("Database schema applied")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS candles (
		exchange  TEXT NOT NULL,
		symbol    TEXT NOT NULL,
		interval  TEXT NOT NULL,
		open_time TIMESTAMPTZ NOT NULL,
		open      DOUBLE PRECISION NOT NULL,
		high      DOUBLE PRECISION NOT NULL,
		low       DOUBLE PRECISION NOT NULL,
		close     DOUBLE PRECISION NOT NULL,
		volume    DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (exchange, symbol, interval, open_time)
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		id           UUID PRIMARY KEY,
		bot          TEXT NOT NULL,
		symbol       TEXT NOT NULL,
		side         TEXT NOT NULL,
		quantity     NUMERIC NOT NULL,
		entry_price  NUMERIC NOT NULL,
		exit_price   NUMERIC,
		stop_price   NUMERIC NOT NULL,
		realized_pnl NUMERIC NOT NULL DEFAULT 0,
		status       TEXT NOT NULL,
		exit_reason  TEXT NOT NULL DEFAULT '',
		order_id     TEXT NOT NULL,
		opened_at    TIMESTAMPTZ NOT NULL,
		closed_at    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                UUID PRIMARY KEY,
		position_id       UUID REFERENCES positions(id),
		bot               TEXT NOT NULL,
		symbol            TEXT NOT NULL,
		exchange_order_id TEXT NOT NULL,
		side              TEXT NOT NULL,
		quantity          NUMERIC NOT NULL,
		price             NUMERIC NOT NULL,
		fee               NUMERIC NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
}
