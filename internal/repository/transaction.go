package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arsenal-bot/internal/model"
)

const transactionColumns = `id, user_id, amount, type, description, created_at`

// TransactionRepository is the append-only transaction log. Rows are never
// updated or deleted.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a TransactionRepository on pool.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create appends one record and returns it with its id and timestamp.
func (r *TransactionRepository) Create(ctx context.Context, userID string, amount int64, txType string, description *string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + transactionColumns

	rows, err := r.pool.Query(ctx, query, userID, amount, txType, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	tx, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.Transaction])
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// ListByUser returns up to limit of a user's records, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Transaction])
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return txs, nil
}
