// Package poker runs five-card draw hands scored against a fixed pay table.
package poker

import (
	"errors"
	"fmt"
	"time"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/game/cards"
	"arsenal-bot/internal/game/session"
)

// GameType prefixes poker session ids.
const GameType = "poker"

var (
	ErrGameFinished = errors.New("game already finished")
	ErrInvalidBet   = errors.New("bet must be positive")
	ErrInvalidMask  = errors.New("hold mask must be five characters of 0 or 1")
)

// Status of a poker hand.
type Status string

const (
	StatusChoosing Status = "choosing"
	StatusFinished Status = "finished"
)

// Hand is one poker session.
type Hand struct {
	ID        string
	UserID    string
	Bet       int64
	Cards     [5]cards.Card
	Status    Status
	Category  Category
	Winnings  int64
	CreatedAt time.Time

	deck cards.Deck
}

// State is a snapshot of a hand.
type State struct {
	ID       string
	UserID   string
	Bet      int64
	Cards    [5]cards.Card
	Status   Status
	Category Category
	Winnings int64
}

// Finished reports whether the hand has been drawn and scored.
func (s State) Finished() bool {
	return s.Status == StatusFinished
}

func (h *Hand) state() State {
	return State{
		ID:       h.ID,
		UserID:   h.UserID,
		Bet:      h.Bet,
		Cards:    h.Cards,
		Status:   h.Status,
		Category: h.Category,
		Winnings: h.Winnings,
	}
}

func (h *Hand) draw(refill func() cards.Deck) cards.Card {
	c, ok := h.deck.Draw()
	if !ok {
		h.deck = refill()
		c, _ = h.deck.Draw()
	}
	return c
}

// Engine deals and scores hands held in a session store.
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

// Start deals five cards and waits for the player to choose holds.
func (e *Engine) Start(userID string, bet int64) (State, error) {
	if bet <= 0 {
		return State{}, apperr.Precondition("poker.start", ErrInvalidBet)
	}

	now := e.now()
	h := &Hand{
		ID:        session.NewID(GameType, userID, now),
		UserID:    userID,
		Bet:       bet,
		Status:    StatusChoosing,
		CreatedAt: now,
		deck:      e.newDeck(),
	}
	for i := range h.Cards {
		h.Cards[i] = h.draw(e.newDeck)
	}

	e.store.Put(h.ID, h)
	return h.state(), nil
}

// Draw replaces every card not held, scores the hand and finishes it.
func (e *Engine) Draw(id string, hold [5]bool) (State, error) {
	var st State
	err := e.store.WithSession(id, func(h *Hand) error {
		if h.Status == StatusFinished {
			return ErrGameFinished
		}
		for i := range h.Cards {
			if !hold[i] {
				h.Cards[i] = h.draw(e.newDeck)
			}
		}
		h.Category = Evaluate(h.Cards)
		h.Winnings = h.Bet * h.Category.Multiplier()
		h.Status = StatusFinished
		st = h.state()
		return nil
	})

	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, session.ErrNotFound):
		return st, apperr.NotFound("poker.draw", err)
	case errors.Is(err, ErrGameFinished):
		return st, apperr.Precondition("poker.draw", err)
	}
	return st, err
}

// Get returns a snapshot of a hand.
func (e *Engine) Get(id string) (State, error) {
	var st State
	err := e.store.WithSession(id, func(h *Hand) error {
		st = h.state()
		return nil
	})
	if err != nil {
		return st, apperr.NotFound("poker.get", err)
	}
	return st, nil
}

// ParseHoldMask reads a mask such as "10110" where 1 keeps the card.
func ParseHoldMask(mask string) ([5]bool, error) {
	var hold [5]bool
	if len(mask) != 5 {
		return hold, ErrInvalidMask
	}
	for i, ch := range mask {
		switch ch {
		case '1':
			hold[i] = true
		case '0':
		default:
			return hold, ErrInvalidMask
		}
	}
	return hold, nil
}

// FormatHoldMask is the inverse of ParseHoldMask.
func FormatHoldMask(hold [5]bool) string {
	var b [5]byte
	for i, h := range hold {
		b[i] = '0'
		if h {
			b[i] = '1'
		}
	}
	return string(b[:])
}

// Describe renders a finished hand for chat.
func Describe(st State) string {
	if !st.Finished() {
		return cards.Format(st.Cards[:])
	}
	return fmt.Sprintf("%s (%s)", cards.Format(st.Cards[:]), st.Category)
}
