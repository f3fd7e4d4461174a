package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/skillswap/internal/config"
)

// Connect opens a pool against Postgres and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Connected to Postgres successfully (%s:%d/%s)", cfg.Host, cfg.Port, cfg.Name)
	return pool, nil
}

// EnsureSchema creates the engine's tables and indexes if they are missing.
// Every statement is idempotent so it runs on each start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("ensure %s: %w", stmt.name, err)
		}
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			// indexes only affect speed
			log.Printf("warning: failed to create index: %v", err)
		}
	}
	return nil
}

var schema = []struct {
	name string
	sql  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'member',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			skills_offered JSONB NOT NULL DEFAULT '[]',
			skills_wanted JSONB NOT NULL DEFAULT '[]',
			rating DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
			token_balance BIGINT NOT NULL DEFAULT 0 CHECK (token_balance >= 0),
			total_exchanges INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"user_badges", `
		CREATE TABLE IF NOT EXISTS user_badges (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			badge TEXT NOT NULL,
			granted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, badge)
		)`},
	{"exchanges", `
		CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			requester_id TEXT NOT NULL REFERENCES users(id),
			provider_id TEXT NOT NULL REFERENCES users(id),
			requested_skill TEXT NOT NULL,
			offered_skill TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending','active','completed','cancelled','rejected')),
			accepted_at TIMESTAMPTZ NULL,
			completed_at TIMESTAMPTZ NULL,
			rating SMALLINT NULL CHECK (rating BETWEEN 1 AND 5),
			review TEXT NOT NULL DEFAULT '',
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (requester_id <> provider_id)
		)`},
	{"exchange_messages", `
		CREATE TABLE IF NOT EXISTS exchange_messages (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			exchange_id TEXT NOT NULL REFERENCES exchanges(id) ON DELETE CASCADE,
			sender_id TEXT NOT NULL REFERENCES users(id),
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"token_ledger", `
		CREATE TABLE IF NOT EXISTS token_ledger (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			user_id TEXT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount <> 0),
			kind TEXT NOT NULL CHECK (kind IN ('earned','spent','bonus','penalty')),
			reason TEXT NOT NULL DEFAULT '',
			exchange_id TEXT NULL,
			balance_after BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"notifications", `
		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			payload JSONB NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read_at TIMESTAMPTZ NULL
		)`},
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_exchanges_requester ON exchanges(requester_id)`,
	`CREATE INDEX IF NOT EXISTS idx_exchanges_provider_rated ON exchanges(provider_id) WHERE rating IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_exchange_messages_exchange ON exchange_messages(exchange_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_token_ledger_user ON token_ledger(user_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at)`,
}
