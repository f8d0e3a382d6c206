package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// migrations are applied in order on every start. Each is idempotent; there is
// no version table.
var migrations = []struct {
	name string
	sql  string
}{
	{"wallets", `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0,
			total_earned BIGINT NOT NULL DEFAULT 0,
			total_spent BIGINT NOT NULL DEFAULT 0,
			last_hourly TIMESTAMPTZ,
			last_daily TIMESTAMPTZ,
			last_weekly TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_wallets_balance ON wallets(balance DESC);
	`},
	{"transactions", `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES wallets(user_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
	`},
	{"tickets", `
		CREATE TABLE IF NOT EXISTS ticket_counters (
			guild_id TEXT PRIMARY KEY,
			last_number INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS tickets (
			id BIGSERIAL PRIMARY KEY,
			guild_id TEXT NOT NULL,
			number INT NOT NULL,
			owner_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			category VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'open',
			message_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMPTZ,
			closed_by TEXT,
			close_reason TEXT,
			UNIQUE (guild_id, number)
		);
		CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(guild_id, owner_id, status);
		CREATE INDEX IF NOT EXISTS idx_tickets_channel ON tickets(channel_id);
	`},
	{"conversions", `
		CREATE TABLE IF NOT EXISTS conversions (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			coins BIGINT NOT NULL,
			euro_value NUMERIC(14,2) NOT NULL,
			commission NUMERIC(14,2) NOT NULL,
			net_value NUMERIC(14,2) NOT NULL,
			destination TEXT NOT NULL,
			status VARCHAR(16) NOT NULL,
			failure_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_conversions_user ON conversions(user_id, created_at DESC);
	`},
	{"profiles", `
		CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			style VARCHAR(32) NOT NULL DEFAULT 'normal',
			bio TEXT NOT NULL DEFAULT '',
			accent_color VARCHAR(7) NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
}

// Migrate creates every table the bot needs if it does not exist yet.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
