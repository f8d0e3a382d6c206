// Package game defines the instant-play game interface and its registry.
// Session games (blackjack, poker) live in their own packages on top of
// the session store; single-shot games such as roulette implement Game.
package game

import "context"

// Result represents the outcome of one play.
type Result struct {
	Winnings    int64          // Total returned to the player, 0 on a loss
	Description string         // Human-readable result description
	Details     map[string]any // Additional game-specific details
}

// Net returns the player's net change for a given stake.
func (r *Result) Net(bet int64) int64 {
	return r.Winnings - bet
}

// Game is implemented by every single-shot casino game.
type Game interface {
	// Name returns the game's display name (e.g., "Roulette").
	Name() string

	// Command returns the slash command that triggers this game.
	Command() string

	// Description returns a brief description of the game.
	Description() string

	// Play resolves one round for userID staking bet. params carries
	// game-specific choices such as the roulette bet selector.
	Play(ctx context.Context, userID string, bet int64, params map[string]any) (*Result, error)

	// ValidateBet checks the stake and params before any coins move.
	ValidateBet(bet int64, params map[string]any) error
}
