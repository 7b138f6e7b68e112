package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Supported DATABASE_DRIVER values.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured database and verifies the connection.
// SQLite connections are limited to one so in-memory databases stay shared.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	pool, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == DriverSQLite {
		pool.SetMaxOpenConns(1)
	}
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	slog.InfoContext(ctx, "Connected to database", "db.driver", driver)
	return pool, nil
}

var schemas = map[string][]string{
	DriverSQLite: {
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
	},
}

const gamesSchema = `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		white TEXT NOT NULL,
		black TEXT NOT NULL,
		result TEXT NOT NULL,
		termination TEXT NOT NULL,
		final_fen TEXT NOT NULL,
		pgn TEXT NOT NULL,
		moves INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL
	)`

const gamesIndex = `CREATE INDEX IF NOT EXISTS games_room_ended ON games (room_id, ended_at)`

// Migrate creates the users and games tables if they do not exist.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	statements := append([]string{}, schemas[conn.DriverName()]...)
	statements = append(statements, gamesSchema, gamesIndex)
	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	slog.InfoContext(ctx, "DB schema verified.")
	return nil
}
