// Package cards models a standard 52-card deck.
package cards

import (
	"math/rand"
	"strings"
)

// Suit of a playing card.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitSymbols = [...]string{"♠", "♥", "♦", "♣"}

func (s Suit) String() string {
	if s < Spades || s > Clubs {
		return "?"
	}
	return suitSymbols[s]
}

// Rank of a playing card. Ace ranks high (14).
type Rank int

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	case Ten:
		return "10"
	}
	if r >= Two && r <= Nine {
		return string(rune('0' + int(r)))
	}
	return "?"
}

// Card is a rank and a suit.
type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Format renders cards separated by spaces.
func Format(cs []Card) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Deck is an ordered pile. Cards are drawn from the end.
type Deck []Card

// NewDeck returns the 52 cards in suit-then-rank order.
func NewDeck() Deck {
	d := make(Deck, 0, 52)
	for s := Spades; s <= Clubs; s++ {
		for r := Two; r <= Ace; r++ {
			d = append(d, Card{Rank: r, Suit: s})
		}
	}
	return d
}

// Shuffle permutes the deck in place.
func (d Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
}

// Draw removes and returns the last card. ok is false when the deck is empty.
func (d *Deck) Draw() (c Card, ok bool) {
	n := len(*d)
	if n == 0 {
		return Card{}, false
	}
	c = (*d)[n-1]
	*d = (*d)[:n-1]
	return c, true
}

// Len returns the number of cards left.
func (d Deck) Len() int {
	return len(d)
}

// Shuffled returns a fresh deck shuffled with the global source.
func Shuffled() Deck {
	d := NewDeck()
	rand.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
	return d
}
