// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/pkg/lock"
	"arsenal-bot/internal/repository"
)

// Ledger errors.
var (
	ErrAlreadyClaimed      = errors.New("reward already claimed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
)

// WalletRepository is the wallet storage the ledger needs.
type WalletRepository interface {
	GetByID(ctx context.Context, userID string) (*model.Wallet, error)
	Ensure(ctx context.Context, userID string) (*model.Wallet, error)
	ApplyDelta(ctx context.Context, userID string, delta int64) (*model.Wallet, error)
	SetClaim(ctx context.Context, userID string, kind model.RewardKind, at time.Time) (*model.Wallet, error)
	Top(ctx context.Context, limit int) ([]*model.Wallet, error)
}

// TransactionRepository is the append-only balance log.
type TransactionRepository interface {
	Create(ctx context.Context, userID string, amount int64, txType string, description *string) (*model.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
}

// CooldownError reports how long until a timed reward can be claimed again.
type CooldownError struct {
	Kind      model.RewardKind
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s reward already claimed, available in %s", e.Kind, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrAlreadyClaimed
}

// Rewards holds the coin amount of each timed reward.
type Rewards struct {
	Hourly int64
	Daily  int64
	Weekly int64
}

func (r Rewards) amount(kind model.RewardKind) int64 {
	switch kind {
	case model.RewardHourly:
		return r.Hourly
	case model.RewardDaily:
		return r.Daily
	case model.RewardWeekly:
		return r.Weekly
	}
	return 0
}

// EconomyService is the ArsenalCoin ledger. Every balance change for a user
// runs under that user's lock, so read-check-write sequences do not
// interleave within one process.
type EconomyService struct {
	wallets WalletRepository
	txs     TransactionRepository
	rewards Rewards
	locks   *lock.KeyLock[string]
	now     func() time.Time
}

// NewEconomyService creates a new EconomyService instance.
func NewEconomyService(wallets WalletRepository, txs TransactionRepository, rewards Rewards, locks *lock.KeyLock[string]) *EconomyService {
	return &EconomyService{
		wallets: wallets,
		txs:     txs,
		rewards: rewards,
		locks:   locks,
		now:     time.Now,
	}
}

// AdjustBalance adds delta to the user's balance, creating the wallet if
// needed, and appends one transaction row. There is no floor: a balance of
// 30 adjusted by -50 becomes -20.
//
// The balance update and the log insert are separate statements. If the
// insert fails the adjusted wallet is still returned with the error.
func (s *EconomyService) AdjustBalance(ctx context.Context, userID string, delta int64, txType, description string) (*model.Wallet, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)
	return s.adjust(ctx, userID, delta, txType, description)
}

func (s *EconomyService) adjust(ctx context.Context, userID string, delta int64, txType, description string) (*model.Wallet, error) {
	w, err := s.wallets.ApplyDelta(ctx, userID, delta)
	if err != nil {
		return nil, apperr.Infra("economy.adjust", err)
	}

	var desc *string
	if description != "" {
		desc = &description
	}
	if _, err := s.txs.Create(ctx, userID, delta, txType, desc); err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Int64("delta", delta).
			Str("type", txType).
			Msg("Balance changed but transaction log insert failed")
		return w, apperr.Infra("economy.adjust", fmt.Errorf("failed to record transaction: %w", err))
	}

	log.Debug().Str("user_id", userID).Int64("delta", delta).Int64("balance", w.Balance).Str("type", txType).Msg("Balance adjusted")
	return w, nil
}

// Debit removes amount from the user's balance only if the balance covers it.
func (s *EconomyService) Debit(ctx context.Context, userID string, amount int64, txType, description string) (*model.Wallet, error) {
	if amount <= 0 {
		return nil, apperr.Precondition("economy.debit", ErrInvalidAmount)
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	w, err := s.wallets.Ensure(ctx, userID)
	if err != nil {
		return nil, apperr.Infra("economy.debit", err)
	}
	if w.Balance < amount {
		return nil, apperr.Precondition("economy.debit", ErrInsufficientBalance)
	}
	return s.adjust(ctx, userID, -amount, txType, description)
}

// ClaimTimedReward credits the hourly, daily or weekly reward if its cooldown
// has elapsed since the last claim of the same kind.
func (s *EconomyService) ClaimTimedReward(ctx context.Context, userID string, kind model.RewardKind) (*model.Wallet, int64, error) {
	if !kind.Valid() {
		return nil, 0, apperr.Precondition("economy.claim", repository.ErrInvalidRewardKind)
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	w, err := s.wallets.Ensure(ctx, userID)
	if err != nil {
		return nil, 0, apperr.Infra("economy.claim", err)
	}

	now := s.now()
	if last := w.LastClaim(kind); last != nil {
		if elapsed := now.Sub(*last); elapsed < kind.Cooldown() {
			return w, 0, apperr.Precondition("economy.claim", &CooldownError{
				Kind:      kind,
				Remaining: kind.Cooldown() - elapsed,
			})
		}
	}

	amount := s.rewards.amount(kind)
	if _, err := s.adjust(ctx, userID, amount, string(kind), fmt.Sprintf("%s reward", kind)); err != nil {
		return nil, 0, err
	}

	// Separate statement from the credit: a crash here leaves the reward
	// credited but claimable again.
	w, err = s.wallets.SetClaim(ctx, userID, kind, now)
	if err != nil {
		return nil, 0, apperr.Infra("economy.claim", err)
	}

	log.Info().Str("user_id", userID).Str("kind", string(kind)).Int64("amount", amount).Msg("Timed reward claimed")
	return w, amount, nil
}

// GetWallet returns the user's wallet, creating an empty one on first use.
func (s *EconomyService) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	w, err := s.wallets.Ensure(ctx, userID)
	if err != nil {
		return nil, apperr.Infra("economy.wallet", err)
	}
	return w, nil
}

// History returns the user's most recent transactions.
func (s *EconomyService) History(ctx context.Context, userID string, limit int) ([]*model.Transaction, error) {
	txs, err := s.txs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Infra("economy.history", err)
	}
	return txs, nil
}

// Top returns the richest wallets.
func (s *EconomyService) Top(ctx context.Context, limit int) ([]*model.Wallet, error) {
	wallets, err := s.wallets.Top(ctx, limit)
	if err != nil {
		return nil, apperr.Infra("economy.top", err)
	}
	return wallets, nil
}

// Transfer moves coins between two users. Unlike AdjustBalance it refuses to
// take a sender below zero.
func (s *EconomyService) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return apperr.Precondition("economy.transfer", ErrInvalidAmount)
	}
	if fromID == toID {
		return apperr.Precondition("economy.transfer", ErrSelfTransfer)
	}

	// Fixed order so two opposite transfers cannot deadlock
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	s.locks.Lock(first)
	defer s.locks.Unlock(first)
	s.locks.Lock(second)
	defer s.locks.Unlock(second)

	sender, err := s.wallets.Ensure(ctx, fromID)
	if err != nil {
		return apperr.Infra("economy.transfer", err)
	}
	if sender.Balance < amount {
		return apperr.Precondition("economy.transfer", ErrInsufficientBalance)
	}

	if _, err := s.wallets.ApplyDelta(ctx, fromID, -amount); err != nil {
		return apperr.Infra("economy.transfer", fmt.Errorf("failed to deduct from sender: %w", err))
	}
	if _, err := s.wallets.ApplyDelta(ctx, toID, amount); err != nil {
		// Try to rollback sender's balance
		if _, rbErr := s.wallets.ApplyDelta(ctx, fromID, amount); rbErr != nil {
			log.Error().Err(rbErr).Str("user_id", fromID).Int64("amount", amount).Msg("Transfer rollback failed")
		}
		return apperr.Infra("economy.transfer", fmt.Errorf("failed to add to receiver: %w", err))
	}

	senderDesc := fmt.Sprintf("transfer to %s", toID)
	receiverDesc := fmt.Sprintf("transfer from %s", fromID)
	if _, err := s.txs.Create(ctx, fromID, -amount, model.TxTypeTransfer, &senderDesc); err != nil {
		log.Error().Err(err).Str("user_id", fromID).Msg("Failed to record transfer")
	}
	if _, err := s.txs.Create(ctx, toID, amount, model.TxTypeTransfer, &receiverDesc); err != nil {
		log.Error().Err(err).Str("user_id", toID).Msg("Failed to record transfer")
	}

	log.Info().Str("from", fromID).Str("to", toID).Int64("amount", amount).Msg("Transfer completed")
	return nil
}
