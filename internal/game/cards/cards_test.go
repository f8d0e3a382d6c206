package cards

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewDeck_HasAllCards(t *testing.T) {
	d := NewDeck()
	require.Equal(t, 52, d.Len())

	seen := make(map[Card]bool)
	for _, c := range d {
		assert.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
}

func TestDeck_DrawFromTail(t *testing.T) {
	d := Deck{{Two, Spades}, {Ace, Hearts}}

	c, ok := d.Draw()
	require.True(t, ok)
	assert.Equal(t, Card{Ace, Hearts}, c)

	c, ok = d.Draw()
	require.True(t, ok)
	assert.Equal(t, Card{Two, Spades}, c)

	_, ok = d.Draw()
	assert.False(t, ok)
}

func TestCard_String(t *testing.T) {
	assert.Equal(t, "A♠", Card{Ace, Spades}.String())
	assert.Equal(t, "10♥", Card{Ten, Hearts}.String())
	assert.Equal(t, "7♦ K♣", Format([]Card{{Seven, Diamonds}, {King, Clubs}}))
}

// Shuffling is a permutation: no card is lost or duplicated.
func TestShuffle_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		d := NewDeck()
		d.Shuffle(rand.New(rand.NewSource(seed)))

		if d.Len() != 52 {
			t.Fatalf("deck has %d cards", d.Len())
		}
		seen := make(map[Card]bool, 52)
		for _, c := range d {
			if seen[c] {
				t.Fatalf("duplicate card %s", c)
			}
			seen[c] = true
		}
	})
}
