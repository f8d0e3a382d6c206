package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arsenal-bot/internal/model"
)

// ErrTicketNotFound is returned when no ticket matches the lookup.
var ErrTicketNotFound = errors.New("ticket not found")

const ticketColumns = `id, guild_id, number, owner_id, channel_id, category, status, message_count, created_at, closed_at, closed_by, close_reason`

// TicketRepository persists ticket records. Nothing ties a record to the
// Discord channel's real lifecycle: a channel deleted out of band leaves a
// stale open record.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository creates a new TicketRepository instance.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(
		&t.ID,
		&t.GuildID,
		&t.Number,
		&t.OwnerID,
		&t.ChannelID,
		&t.Category,
		&t.Status,
		&t.MessageCount,
		&t.CreatedAt,
		&t.ClosedAt,
		&t.ClosedBy,
		&t.CloseReason,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NextNumber returns the next per-guild ticket number, starting at 1.
func (r *TicketRepository) NextNumber(ctx context.Context, guildID string) (int, error) {
	const query = `
		INSERT INTO ticket_counters (guild_id, last_number) VALUES ($1, 1)
		ON CONFLICT (guild_id) DO UPDATE SET last_number = ticket_counters.last_number + 1
		RETURNING last_number
	`

	var n int
	if err := r.pool.QueryRow(ctx, query, guildID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to allocate ticket number: %w", err)
	}
	return n, nil
}

// Create inserts an open ticket and fills in its ID and creation time.
func (r *TicketRepository) Create(ctx context.Context, t *model.Ticket) error {
	const query = `
		INSERT INTO tickets (guild_id, number, owner_id, channel_id, category, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, query,
		t.GuildID, t.Number, t.OwnerID, t.ChannelID, t.Category, t.Status, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// Get retrieves a ticket by guild and number.
func (r *TicketRepository) Get(ctx context.Context, guildID string, number int) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE guild_id = $1 AND number = $2`

	t, err := scanTicket(r.pool.QueryRow(ctx, query, guildID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// GetByChannel retrieves the most recent ticket bound to a channel.
func (r *TicketRepository) GetByChannel(ctx context.Context, channelID string) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE channel_id = $1 ORDER BY id DESC LIMIT 1`

	t, err := scanTicket(r.pool.QueryRow(ctx, query, channelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket by channel: %w", err)
	}
	return t, nil
}

// CountOpenByOwner counts a user's open tickets in a guild.
func (r *TicketRepository) CountOpenByOwner(ctx context.Context, guildID, ownerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE guild_id = $1 AND owner_id = $2 AND status = 'open'`

	var n int
	if err := r.pool.QueryRow(ctx, query, guildID, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count open tickets: %w", err)
	}
	return n, nil
}

// MarkClosed flips an open ticket to closed. Returns ErrTicketNotFound if the
// ticket does not exist or is already closed.
func (r *TicketRepository) MarkClosed(ctx context.Context, id int64, closedBy, reason string, at time.Time) error {
	const query = `
		UPDATE tickets
		SET status = 'closed', closed_at = $2, closed_by = $3, close_reason = $4
		WHERE id = $1 AND status = 'open'
	`

	result, err := r.pool.Exec(ctx, query, id, at, closedBy, reason)
	if err != nil {
		return fmt.Errorf("failed to close ticket: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// IncrementMessages bumps the message counter of the open ticket on a channel.
func (r *TicketRepository) IncrementMessages(ctx context.Context, channelID string) error {
	const query = `UPDATE tickets SET message_count = message_count + 1 WHERE channel_id = $1 AND status = 'open'`

	if _, err := r.pool.Exec(ctx, query, channelID); err != nil {
		return fmt.Errorf("failed to count ticket message: %w", err)
	}
	return nil
}

// Stats aggregates a guild's tickets by status and category.
func (r *TicketRepository) Stats(ctx context.Context, guildID string) (*model.TicketStats, error) {
	const query = `
		SELECT category, status, COUNT(*)
		FROM tickets
		WHERE guild_id = $1
		GROUP BY category, status
	`

	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket stats: %w", err)
	}
	defer rows.Close()

	stats := &model.TicketStats{ByCategory: make(map[string]int)}
	for rows.Next() {
		var (
			category string
			status   model.TicketStatus
			count    int
		)
		if err := rows.Scan(&category, &status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan ticket stats: %w", err)
		}
		switch status {
		case model.TicketOpen:
			stats.Open += count
		case model.TicketClosed:
			stats.Closed += count
		}
		stats.Total += count
		stats.ByCategory[category] += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket stats: %w", err)
	}

	return stats, nil
}
