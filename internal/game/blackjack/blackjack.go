// Package blackjack runs single-player blackjack hands against the dealer.
// Winnings are reported as the total returned to the player; moving coins
// is the caller's job.
package blackjack

import (
	"errors"
	"time"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/game/cards"
	"arsenal-bot/internal/game/session"
)

// GameType prefixes blackjack session ids.
const GameType = "blackjack"

// DealerStandsOn is the total at which the dealer stops drawing.
const DealerStandsOn = 17

var (
	ErrGameFinished = errors.New("game already finished")
	ErrInvalidBet   = errors.New("bet must be positive")
)

// Outcome of a finished hand.
type Outcome string

const (
	OutcomePending    Outcome = ""
	OutcomeBlackjack  Outcome = "blackjack"
	OutcomeTwentyOne  Outcome = "twenty_one"
	OutcomeBust       Outcome = "bust"
	OutcomeDealerBust Outcome = "dealer_bust"
	OutcomeWin        Outcome = "win"
	OutcomePush       Outcome = "push"
	OutcomeLose       Outcome = "lose"
)

// Hand is one blackjack session.
type Hand struct {
	ID        string
	UserID    string
	Bet       int64
	Player    []cards.Card
	Dealer    []cards.Card
	Finished  bool
	Outcome   Outcome
	Winnings  int64
	CreatedAt time.Time

	deck cards.Deck
}

// State is what a player is allowed to see. The dealer's hole card stays
// hidden until the hand is finished.
type State struct {
	ID          string
	UserID      string
	Bet         int64
	Player      []cards.Card
	PlayerTotal int
	Dealer      []cards.Card
	DealerTotal int
	Finished    bool
	Outcome     Outcome
	Winnings    int64
}

func (h *Hand) state() State {
	s := State{
		ID:          h.ID,
		UserID:      h.UserID,
		Bet:         h.Bet,
		Player:      append([]cards.Card(nil), h.Player...),
		PlayerTotal: HandValue(h.Player),
		Finished:    h.Finished,
		Outcome:     h.Outcome,
		Winnings:    h.Winnings,
	}
	if h.Finished {
		s.Dealer = append([]cards.Card(nil), h.Dealer...)
		s.DealerTotal = HandValue(h.Dealer)
	} else if len(h.Dealer) > 0 {
		s.Dealer = []cards.Card{h.Dealer[0]}
		s.DealerTotal = HandValue(s.Dealer)
	}
	return s
}

func (h *Hand) draw(refill func() cards.Deck) cards.Card {
	c, ok := h.deck.Draw()
	if !ok {
		h.deck = refill()
		c, _ = h.deck.Draw()
	}
	return c
}

func (h *Hand) finish(outcome Outcome, winnings int64) {
	h.Finished = true
	h.Outcome = outcome
	h.Winnings = winnings
}

// HandValue totals a hand, counting aces as 11 and demoting them to 1 one at
// a time while the total exceeds 21.
func HandValue(hand []cards.Card) int {
	total, aces := 0, 0
	for _, c := range hand {
		switch {
		case c.Rank == cards.Ace:
			total += 11
			aces++
		case c.Rank >= cards.Ten:
			total += 10
		default:
			total += int(c.Rank)
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// Engine deals and resolves hands held in a session store.
type Engine struct {
	store   session.Store[*Hand]
	newDeck func() cards.Deck
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDeck replaces the shuffled-deck source. Cards are drawn from the end.
func WithDeck(fn func() cards.Deck) Option {
	return func(e *Engine) { e.newDeck = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// New creates an Engine backed by store.
func New(store session.Store[*Hand], opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		newDeck: cards.Shuffled,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start deals player, dealer, player, dealer. A natural 21 finishes the hand
// at once paying 2.5x the bet.
func (e *Engine) Start(userID string, bet int64) (State, error) {
	if bet <= 0 {
		return State{}, apperr.Precondition("blackjack.start", ErrInvalidBet)
	}

	now := e.now()
	h := &Hand{
		ID:        session.NewID(GameType, userID, now),
		UserID:    userID,
		Bet:       bet,
		CreatedAt: now,
		deck:      e.newDeck(),
	}
	h.Player = append(h.Player, h.draw(e.newDeck))
	h.Dealer = append(h.Dealer, h.draw(e.newDeck))
	h.Player = append(h.Player, h.draw(e.newDeck))
	h.Dealer = append(h.Dealer, h.draw(e.newDeck))

	if HandValue(h.Player) == 21 {
		h.finish(OutcomeBlackjack, bet*5/2)
	}

	e.store.Put(h.ID, h)
	return h.state(), nil
}

// Hit draws one card for the player. Over 21 busts, exactly 21 wins 2x.
func (e *Engine) Hit(id string) (State, error) {
	var st State
	err := e.store.WithSession(id, func(h *Hand) error {
		if h.Finished {
			return ErrGameFinished
		}
		h.Player = append(h.Player, h.draw(e.newDeck))
		switch total := HandValue(h.Player); {
		case total > 21:
			h.finish(OutcomeBust, 0)
		case total == 21:
			h.finish(OutcomeTwentyOne, h.Bet*2)
		}
		st = h.state()
		return nil
	})
	return st, wrap("blackjack.hit", err)
}

// Stand plays out the dealer, who draws until reaching DealerStandsOn.
func (e *Engine) Stand(id string) (State, error) {
	var st State
	err := e.store.WithSession(id, func(h *Hand) error {
		if h.Finished {
			return ErrGameFinished
		}
		for HandValue(h.Dealer) < DealerStandsOn {
			h.Dealer = append(h.Dealer, h.draw(e.newDeck))
		}

		player, dealer := HandValue(h.Player), HandValue(h.Dealer)
		switch {
		case dealer > 21:
			h.finish(OutcomeDealerBust, h.Bet*2)
		case player > dealer:
			h.finish(OutcomeWin, h.Bet*2)
		case player == dealer:
			h.finish(OutcomePush, h.Bet)
		default:
			h.finish(OutcomeLose, 0)
		}
		st = h.state()
		return nil
	})
	return st, wrap("blackjack.stand", err)
}

// Get returns the visible state of a hand.
func (e *Engine) Get(id string) (State, error) {
	var st State
	err := e.store.WithSession(id, func(h *Hand) error {
		st = h.state()
		return nil
	})
	return st, wrap("blackjack.get", err)
}

func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotFound):
		return apperr.NotFound(op, err)
	case errors.Is(err, ErrGameFinished):
		return apperr.Precondition(op, err)
	}
	return err
}
