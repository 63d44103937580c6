package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// RunMigrations creates the bot's tables if they do not exist.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bb_admins (
			group_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (group_id, user_id)
		);
		CREATE TABLE IF NOT EXISTS bb_locations (
			group_id TEXT NOT NULL,
			location TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (group_id, location)
		);
		CREATE TABLE IF NOT EXISTS bb_members (
			id BIGSERIAL PRIMARY KEY,
			group_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			location TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (group_id, user_id, location)
		);
		CREATE INDEX IF NOT EXISTS idx_bb_members_group_location ON bb_members(group_id, location);
		CREATE TABLE IF NOT EXISTS bb_sessions (
			group_id TEXT PRIMARY KEY,
			location TEXT NOT NULL,
			day TEXT NOT NULL,
			time TEXT NOT NULL,
			capacity INTEGER NOT NULL,
			min_members INTEGER NOT NULL DEFAULT 0,
			created_by TEXT NOT NULL,
			label TEXT NOT NULL,
			players JSONB NOT NULL DEFAULT '[]',
			waitlist JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
