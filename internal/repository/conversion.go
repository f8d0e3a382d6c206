package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arsenal-bot/internal/model"
)

// ErrConversionNotFound is returned when a conversion id is unknown.
var ErrConversionNotFound = errors.New("conversion not found")

const conversionColumns = `id, user_id, coins, euro_value, commission, net_value, destination, status, failure_reason, created_at, updated_at`

// ConversionRepository persists coin conversion requests.
type ConversionRepository struct {
	pool *pgxpool.Pool
}

// NewConversionRepository creates a new ConversionRepository instance.
func NewConversionRepository(pool *pgxpool.Pool) *ConversionRepository {
	return &ConversionRepository{pool: pool}
}

func scanConversion(row pgx.Row) (*model.Conversion, error) {
	var c model.Conversion
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Coins,
		&c.EuroValue,
		&c.Commission,
		&c.NetValue,
		&c.Destination,
		&c.Status,
		&c.FailureReason,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create records a new conversion.
func (r *ConversionRepository) Create(ctx context.Context, c *model.Conversion) error {
	const query = `
		INSERT INTO conversions (id, user_id, coins, euro_value, commission, net_value, destination, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Coins, c.EuroValue, c.Commission, c.NetValue, c.Destination, c.Status, c.FailureReason,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversion: %w", err)
	}
	return nil
}

// UpdateStatus moves a conversion to a new status.
func (r *ConversionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ConversionStatus, reason string) error {
	const query = `UPDATE conversions SET status = $2, failure_reason = $3, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, status, reason)
	if err != nil {
		return fmt.Errorf("failed to update conversion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrConversionNotFound
	}
	return nil
}

// Get retrieves a conversion by id.
func (r *ConversionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1`

	c, err := scanConversion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversionNotFound
		}
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}
	return c, nil
}

// ListByUser retrieves a user's conversions, newest first.
func (r *ConversionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	var out []*model.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversions: %w", err)
	}

	return out, nil
}
