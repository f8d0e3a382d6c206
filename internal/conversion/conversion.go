// Package conversion books ArsenalCoin to euro conversions. Coins are debited
// before the payout is attempted; a failed payout keeps the debit unless
// refunds are enabled.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/repository"
)

// Currency of every payout.
const Currency = "EUR"

var (
	ErrBelowMinimum       = errors.New("amount is below the conversion minimum")
	ErrConversionNotFound = errors.New("conversion not found")
	ErrPayoutFailed       = errors.New("payout failed")
)

// Repository persists conversion records.
type Repository interface {
	Create(ctx context.Context, c *model.Conversion) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ConversionStatus, reason string) error
	Get(ctx context.Context, id uuid.UUID) (*model.Conversion, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Conversion, error)
}

// Ledger is the part of the economy service conversions use.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int64, txType, description string) (*model.Wallet, error)
	AdjustBalance(ctx context.Context, userID string, delta int64, txType, description string) (*model.Wallet, error)
}

// Settings controls rates and payout behaviour.
type Settings struct {
	CoinValue       decimal.Decimal // euro per coin
	CommissionRate  decimal.Decimal // fraction kept as commission
	MinCoins        int64
	Timeout         time.Duration
	RefundOnFailure bool
}

// Quote is the money side of a conversion.
type Quote struct {
	Coins      int64
	Gross      decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
}

// Service runs conversions.
type Service struct {
	repo       Repository
	ledger     Ledger
	provider   PayoutProvider
	simulation PayoutProvider
	settings   Settings
	newID      func() uuid.UUID
}

// NewService creates a conversion Service. A nil provider sends every
// payout through the simulation provider.
func NewService(repo Repository, ledger Ledger, provider PayoutProvider, settings Settings) *Service {
	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	return &Service{
		repo:       repo,
		ledger:     ledger,
		provider:   provider,
		simulation: SimulationProvider{},
		settings:   settings,
		newID:      uuid.New,
	}
}

// Quote prices a conversion of coins. Amounts are rounded to the cent.
func (s *Service) Quote(coins int64) Quote {
	gross := s.settings.CoinValue.Mul(decimal.NewFromInt(coins)).Round(2)
	commission := gross.Mul(s.settings.CommissionRate).Round(2)
	return Quote{
		Coins:      coins,
		Gross:      gross,
		Commission: commission,
		Net:        gross.Sub(commission),
	}
}

func (s *Service) providerFor(destination string) PayoutProvider {
	if destination == "" || destination == model.SimulationDestination || s.provider == nil {
		return s.simulation
	}
	return s.provider
}

// Convert debits coins and pays out their euro value to destination. The
// returned record reflects the final status even when err is non-nil.
func (s *Service) Convert(ctx context.Context, userID string, coins int64, destination string) (*model.Conversion, error) {
	const op = "conversion.convert"

	if coins < s.settings.MinCoins || coins <= 0 {
		return nil, apperr.Precondition(op, fmt.Errorf("%w: minimum is %d", ErrBelowMinimum, s.settings.MinCoins))
	}
	if destination == "" {
		destination = model.SimulationDestination
	}

	q := s.Quote(coins)
	c := &model.Conversion{
		ID:          s.newID(),
		UserID:      userID,
		Coins:       coins,
		EuroValue:   q.Gross,
		Commission:  q.Commission,
		NetValue:    q.Net,
		Destination: destination,
		Status:      model.ConversionPending,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Infra(op, err)
	}
	logger := log.With().Str("tx_id", c.ID.String()).Str("user_id", userID).Logger()

	desc := fmt.Sprintf("conversion %s", c.ID)
	if _, err := s.ledger.Debit(ctx, userID, coins, model.TxTypeConversion, desc); err != nil {
		s.setStatus(ctx, c, model.ConversionFailed, err.Error())
		return c, err
	}

	s.setStatus(ctx, c, model.ConversionProcessing, "")

	payCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	ref, err := s.providerFor(destination).Payout(payCtx, PayoutRequest{
		ID:          c.ID,
		UserID:      userID,
		Amount:      q.Net,
		Currency:    Currency,
		Destination: destination,
	})
	cancel()

	if err != nil {
		logger.Error().Err(err).Msg("Payout failed after coins were debited")
		s.setStatus(ctx, c, model.ConversionFailed, err.Error())

		if s.settings.RefundOnFailure {
			if _, rfErr := s.ledger.AdjustBalance(ctx, userID, coins, model.TxTypeRefund, desc); rfErr != nil {
				logger.Error().Err(rfErr).Msg("Refund of failed conversion failed")
			}
		}

		wrapped := fmt.Errorf("%w: %v", ErrPayoutFailed, err)
		if errors.Is(err, context.DeadlineExceeded) {
			return c, apperr.Transient(op, wrapped)
		}
		return c, apperr.Infra(op, wrapped)
	}

	s.setStatus(ctx, c, model.ConversionCompleted, "")
	logger.Info().Int64("coins", coins).Str("net", q.Net.StringFixed(2)).Str("reference", ref).Msg("Conversion completed")
	return c, nil
}

func (s *Service) setStatus(ctx context.Context, c *model.Conversion, status model.ConversionStatus, reason string) {
	c.Status = status
	c.FailureReason = reason
	if err := s.repo.UpdateStatus(ctx, c.ID, status, reason); err != nil {
		log.Error().Err(err).Str("tx_id", c.ID.String()).Str("status", string(status)).Msg("Failed to record conversion status")
	}
}

// Get returns one conversion.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Conversion, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrConversionNotFound) {
			return nil, apperr.NotFound("conversion.get", ErrConversionNotFound)
		}
		return nil, apperr.Infra("conversion.get", err)
	}
	return c, nil
}

// History returns a user's conversions, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*model.Conversion, error) {
	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Infra("conversion.history", err)
	}
	return list, nil
}
