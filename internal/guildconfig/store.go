package guildconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"arsenal-bot/internal/pkg/lock"
)

// Store persists guild settings in their own SQLite file. Nothing spans this
// file and the Postgres ledger, so no operation can update both atomically.
// Writes to one guild are serialized.
type Store struct {
	db             *sql.DB
	locks          *lock.KeyLock[string]
	defaultMaxOpen int
	now            func() time.Time
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path string, defaultMaxOpen int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create guild store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open guild store: %w", err)
	}
	db.SetMaxOpenConns(5)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(initCtx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS guild_configs (
			guild_id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.ExecContext(initCtx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create guild_configs table: %w", err)
	}

	log.Info().Str("path", path).Msg("Guild config store opened")

	return &Store{db: db, locks: lock.New[string](), defaultMaxOpen: defaultMaxOpen, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the guild's settings, or the defaults if none were saved.
func (s *Store) Get(ctx context.Context, guildID string) (*Config, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM guild_configs WHERE guild_id = ?`, guildID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Default(guildID, s.defaultMaxOpen), nil
		}
		return nil, fmt.Errorf("failed to get guild config: %w", err)
	}

	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	// The row key wins over whatever the document claims
	cfg.GuildID = guildID
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Msg("Stored guild config is invalid, using defaults")
		return Default(guildID, s.defaultMaxOpen), nil
	}
	return cfg, nil
}

// Save validates and writes the guild's settings.
func (s *Store) Save(ctx context.Context, cfg *Config) error {
	s.locks.Lock(cfg.GuildID)
	defer s.locks.Unlock(cfg.GuildID)
	return s.save(ctx, cfg)
}

func (s *Store) save(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode guild config: %w", err)
	}

	const query = `
		INSERT INTO guild_configs (guild_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, cfg.GuildID, string(data), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save guild config: %w", err)
	}
	return nil
}

// Update loads the guild's settings, applies fn, and saves the result. No
// other write to the guild runs in between.
func (s *Store) Update(ctx context.Context, guildID string, fn func(*Config) error) (*Config, error) {
	s.locks.Lock(guildID)
	defer s.locks.Unlock(guildID)

	cfg, err := s.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if err := fn(cfg); err != nil {
		return nil, err
	}
	if err := s.save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Delete removes a guild's settings. Deleting a missing guild is not an error.
func (s *Store) Delete(ctx context.Context, guildID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM guild_configs WHERE guild_id = ?`, guildID); err != nil {
		return fmt.Errorf("failed to delete guild config: %w", err)
	}
	return nil
}

// List returns every saved guild config ordered by guild id. Rows that fail
// to decode are skipped with a warning.
func (s *Store) List(ctx context.Context) ([]*Config, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, data FROM guild_configs ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild configs: %w", err)
	}
	defer rows.Close()

	var out []*Config
	for rows.Next() {
		var guildID, data string
		if err := rows.Scan(&guildID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan guild config: %w", err)
		}
		cfg, err := decode(data)
		if err != nil {
			log.Warn().Err(err).Str("guild_id", guildID).Msg("Skipping undecodable guild config")
			continue
		}
		cfg.GuildID = guildID
		out = append(out, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guild configs: %w", err)
	}
	return out, nil
}

func decode(data string) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode guild config: %w", err)
	}
	return &cfg, nil
}
