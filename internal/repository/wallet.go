// Package repository provides data access layer implementations.
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

// Common errors for repository operations.
var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInvalidRewardKind = errors.New("invalid reward kind")
)

const walletColumns = `user_id, balance, total_earned, total_spent, last_hourly, last_daily, last_weekly, created_at, updated_at`

// WalletRepository handles wallet persistence.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(
		&w.UserID,
		&w.Balance,
		&w.TotalEarned,
		&w.TotalSpent,
		&w.LastHourly,
		&w.LastDaily,
		&w.LastWeekly,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByID retrieves a wallet by user ID.
// Returns ErrWalletNotFound if the wallet does not exist.
func (r *WalletRepository) GetByID(ctx context.Context, userID string) (*model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// Ensure returns the user's wallet, creating it at zero balance if absent.
func (r *WalletRepository) Ensure(ctx context.Context, userID string) (*model.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return w, nil
}

// ApplyDelta upserts the wallet and adds delta to its balance, accumulating
// positive deltas into total_earned and negative ones into total_spent.
// There is no floor: the balance may become negative.
func (r *WalletRepository) ApplyDelta(ctx context.Context, userID string, delta int64) (*model.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id, balance, total_earned, total_spent)
		VALUES ($1, $2::BIGINT, GREATEST($2::BIGINT, 0), GREATEST(-$2::BIGINT, 0))
		ON CONFLICT (user_id) DO UPDATE SET
			balance = wallets.balance + EXCLUDED.balance,
			total_earned = wallets.total_earned + EXCLUDED.total_earned,
			total_spent = wallets.total_spent + EXCLUDED.total_spent,
			updated_at = NOW()
		RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID, delta))
	if err != nil {
		return nil, fmt.Errorf("failed to apply balance delta: %w", err)
	}
	return w, nil
}

// SetClaim stamps the last claim time for a reward kind.
func (r *WalletRepository) SetClaim(ctx context.Context, userID string, kind model.RewardKind, at time.Time) (*model.Wallet, error) {
	var column string
	switch kind {
	case model.RewardHourly:
		column = "last_hourly"
	case model.RewardDaily:
		column = "last_daily"
	case model.RewardWeekly:
		column = "last_weekly"
	default:
		return nil, ErrInvalidRewardKind
	}

	query := `UPDATE wallets SET ` + column + ` = $2, updated_at = NOW() WHERE user_id = $1 RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to update claim time: %w", err)
	}
	return w, nil
}

// Top retrieves the top N wallets by balance.
func (r *WalletRepository) Top(ctx context.Context, limit int) ([]*model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY balance DESC, user_id LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*model.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return wallets, nil
}
