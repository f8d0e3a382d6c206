// Package roulette implements single-zero roulette as an instant-play game.
package roulette

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"arsenal-bot/internal/game"
)

const (
	// Command is the registry key of the game.
	Command = "roulette"
	// ParamBet is the params key holding the bet selector.
	ParamBet = "bet"
)

var (
	ErrInvalidBet    = errors.New("bet amount must be positive")
	ErrInvalidChoice = errors.New("unknown roulette bet")
)

// Color of a pocket.
type Color string

const (
	Green Color = "green"
	Red   Color = "red"
	Black Color = "black"
)

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// ColorOf returns the colour of a pocket. 0 is green.
func ColorOf(n int) Color {
	switch {
	case n == 0:
		return Green
	case redNumbers[n]:
		return Red
	default:
		return Black
	}
}

// Bet is a parsed selector such as "red", "dozen2" or "number:17".
type Bet struct {
	Kind   string
	Number int
}

// ParseBet reads a bet selector.
func ParseBet(s string) (Bet, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(s, "number:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || n > 36 {
			return Bet{}, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
		}
		return Bet{Kind: "number", Number: n}, nil
	}
	switch s {
	case "red", "black", "even", "odd", "low", "high", "dozen1", "dozen2", "dozen3":
		return Bet{Kind: s}, nil
	}
	return Bet{}, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Multiplier returns the total returned per coin staked when the bet wins
// on pocket n, or 0 when it loses.
func (b Bet) Multiplier(n int) int64 {
	if b.Kind == "number" {
		if n == b.Number {
			return 36
		}
		return 0
	}
	if n == 0 {
		return 0
	}

	var won bool
	switch b.Kind {
	case "red":
		won = ColorOf(n) == Red
	case "black":
		won = ColorOf(n) == Black
	case "even":
		won = n%2 == 0
	case "odd":
		won = n%2 == 1
	case "low":
		won = n <= 18
	case "high":
		won = n >= 19
	case "dozen1", "dozen2", "dozen3":
		dozen := int(b.Kind[5] - '0')
		if (n-1)/12+1 == dozen {
			return 3
		}
		return 0
	}
	if won {
		return 2
	}
	return 0
}

// Roulette implements game.Game.
type Roulette struct {
	spin func() int
}

// New creates a Roulette using the global random source.
func New() *Roulette {
	return &Roulette{spin: func() int { return rand.Intn(37) }}
}

// NewWithSpinner creates a Roulette whose wheel is driven by spin.
func NewWithSpinner(spin func() int) *Roulette {
	return &Roulette{spin: spin}
}

func (r *Roulette) Name() string    { return "Roulette" }
func (r *Roulette) Command() string { return Command }

func (r *Roulette) Description() string {
	return "Single-zero wheel. Bet on a number (36x), a colour, parity or half (2x), or a dozen (3x)."
}

// ValidateBet implements game.Game.
func (r *Roulette) ValidateBet(bet int64, params map[string]any) error {
	if bet <= 0 {
		return ErrInvalidBet
	}
	_, err := betFromParams(params)
	return err
}

// Play spins the wheel once.
func (r *Roulette) Play(ctx context.Context, userID string, bet int64, params map[string]any) (*game.Result, error) {
	if err := r.ValidateBet(bet, params); err != nil {
		return nil, err
	}
	choice, _ := betFromParams(params)

	n := r.spin()
	winnings := bet * choice.Multiplier(n)
	color := ColorOf(n)

	desc := fmt.Sprintf("The ball lands on %d (%s).", n, color)
	if winnings > 0 {
		desc += fmt.Sprintf(" You win %d!", winnings)
	} else {
		desc += " You lose."
	}

	return &game.Result{
		Winnings:    winnings,
		Description: desc,
		Details: map[string]any{
			"number": n,
			"color":  string(color),
			"bet":    choice.Kind,
		},
	}, nil
}

func betFromParams(params map[string]any) (Bet, error) {
	raw, ok := params[ParamBet].(string)
	if !ok {
		return Bet{}, ErrInvalidChoice
	}
	return ParseBet(raw)
}
