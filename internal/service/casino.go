package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/game"
	"arsenal-bot/internal/game/blackjack"
	"arsenal-bot/internal/game/poker"
	"arsenal-bot/internal/model"
)

// Casino errors.
var (
	ErrBetOutOfRange = errors.New("bet outside the allowed range")
	ErrNotYourGame   = errors.New("this game belongs to another player")
	ErrUnknownGame   = errors.New("unknown game")
)

// CasinoService moves coins around the game engines: the bet is debited
// before a hand is dealt and winnings are credited when the hand finishes.
// A hand reports finished exactly once, so winnings are credited once.
type CasinoService struct {
	economy   *EconomyService
	blackjack *blackjack.Engine
	poker     *poker.Engine
	games     *game.Registry
	minBet    int64
	maxBet    int64
}

// NewCasinoService creates a new CasinoService instance.
func NewCasinoService(economy *EconomyService, bj *blackjack.Engine, pk *poker.Engine, games *game.Registry, minBet, maxBet int64) *CasinoService {
	return &CasinoService{
		economy:   economy,
		blackjack: bj,
		poker:     pk,
		games:     games,
		minBet:    minBet,
		maxBet:    maxBet,
	}
}

// BetLimits returns the allowed stake range.
func (s *CasinoService) BetLimits() (int64, int64) {
	return s.minBet, s.maxBet
}

func (s *CasinoService) checkBet(op string, bet int64) error {
	if bet < s.minBet || (s.maxBet > 0 && bet > s.maxBet) {
		return apperr.Precondition(op, fmt.Errorf("%w: %d not in %d..%d", ErrBetOutOfRange, bet, s.minBet, s.maxBet))
	}
	return nil
}

func (s *CasinoService) settle(ctx context.Context, userID, gameName string, winnings int64) error {
	if winnings <= 0 {
		return nil
	}
	if _, err := s.economy.AdjustBalance(ctx, userID, winnings, model.TxTypeCasinoWin, gameName); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("game", gameName).Int64("winnings", winnings).Msg("Failed to credit winnings")
		return err
	}
	return nil
}

// StartBlackjack debits the bet and deals a hand.
func (s *CasinoService) StartBlackjack(ctx context.Context, userID string, bet int64) (blackjack.State, error) {
	if err := s.checkBet("casino.blackjack", bet); err != nil {
		return blackjack.State{}, err
	}
	if _, err := s.economy.Debit(ctx, userID, bet, model.TxTypeCasinoBet, "blackjack"); err != nil {
		return blackjack.State{}, err
	}

	st, err := s.blackjack.Start(userID, bet)
	if err != nil {
		return st, err
	}
	log.Info().Str("user_id", userID).Str("session_id", st.ID).Int64("bet", bet).Msg("Blackjack hand dealt")

	if st.Finished {
		return st, s.settle(ctx, userID, "blackjack", st.Winnings)
	}
	return st, nil
}

func (s *CasinoService) ownBlackjack(userID, id string) error {
	st, err := s.blackjack.Get(id)
	if err != nil {
		return err
	}
	if st.UserID != userID {
		return apperr.Precondition("casino.blackjack", ErrNotYourGame)
	}
	return nil
}

// HitBlackjack draws a card for the player.
func (s *CasinoService) HitBlackjack(ctx context.Context, userID, id string) (blackjack.State, error) {
	if err := s.ownBlackjack(userID, id); err != nil {
		return blackjack.State{}, err
	}
	st, err := s.blackjack.Hit(id)
	if err != nil {
		return st, err
	}
	if st.Finished {
		return st, s.settle(ctx, userID, "blackjack", st.Winnings)
	}
	return st, nil
}

// StandBlackjack lets the dealer play out and settles the hand.
func (s *CasinoService) StandBlackjack(ctx context.Context, userID, id string) (blackjack.State, error) {
	if err := s.ownBlackjack(userID, id); err != nil {
		return blackjack.State{}, err
	}
	st, err := s.blackjack.Stand(id)
	if err != nil {
		return st, err
	}
	return st, s.settle(ctx, userID, "blackjack", st.Winnings)
}

// StartPoker debits the bet and deals five cards.
func (s *CasinoService) StartPoker(ctx context.Context, userID string, bet int64) (poker.State, error) {
	if err := s.checkBet("casino.poker", bet); err != nil {
		return poker.State{}, err
	}
	if _, err := s.economy.Debit(ctx, userID, bet, model.TxTypeCasinoBet, "poker"); err != nil {
		return poker.State{}, err
	}

	st, err := s.poker.Start(userID, bet)
	if err != nil {
		return st, err
	}
	log.Info().Str("user_id", userID).Str("session_id", st.ID).Int64("bet", bet).Msg("Poker hand dealt")
	return st, nil
}

// PokerHand returns the current state of one of the user's poker hands.
func (s *CasinoService) PokerHand(userID, id string) (poker.State, error) {
	st, err := s.poker.Get(id)
	if err != nil {
		return poker.State{}, err
	}
	if st.UserID != userID {
		return poker.State{}, apperr.Precondition("casino.poker", ErrNotYourGame)
	}
	return st, nil
}

// DrawPoker replaces the cards not held and settles the hand.
func (s *CasinoService) DrawPoker(ctx context.Context, userID, id string, hold [5]bool) (poker.State, error) {
	if _, err := s.PokerHand(userID, id); err != nil {
		return poker.State{}, err
	}

	st, err := s.poker.Draw(id, hold)
	if err != nil {
		return st, err
	}
	return st, s.settle(ctx, userID, "poker", st.Winnings)
}

// Play runs one round of a registered instant-play game such as roulette.
func (s *CasinoService) Play(ctx context.Context, command, userID string, bet int64, params map[string]any) (*game.Result, error) {
	g, ok := s.games.Get(command)
	if !ok {
		return nil, apperr.NotFound("casino.play", fmt.Errorf("%w: %s", ErrUnknownGame, command))
	}
	if err := s.checkBet("casino.play", bet); err != nil {
		return nil, err
	}
	if err := g.ValidateBet(bet, params); err != nil {
		return nil, apperr.Precondition("casino.play", err)
	}
	if _, err := s.economy.Debit(ctx, userID, bet, model.TxTypeCasinoBet, command); err != nil {
		return nil, err
	}

	res, err := g.Play(ctx, userID, bet, params)
	if err != nil {
		// Validated above, so this is unexpected: give the stake back
		if _, rbErr := s.economy.AdjustBalance(ctx, userID, bet, model.TxTypeCasinoWin, command+" refund"); rbErr != nil {
			log.Error().Err(rbErr).Str("user_id", userID).Msg("Failed to refund bet")
		}
		return nil, apperr.Infra("casino.play", err)
	}

	log.Info().Str("user_id", userID).Str("game", command).Int64("bet", bet).Int64("winnings", res.Winnings).Msg("Game played")
	return res, s.settle(ctx, userID, command, res.Winnings)
}

// Games lists the registered instant-play games.
func (s *CasinoService) Games() []game.Game {
	return s.games.List()
}
