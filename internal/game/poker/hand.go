package poker

import (
	"sort"

	"arsenal-bot/internal/game/cards"
)

// Category ranks a five-card hand.
type Category int

const (
	Nothing Category = iota
	JacksOrBetter
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = map[Category]string{
	Nothing:       "Nothing",
	JacksOrBetter: "Jacks or Better",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
	RoyalFlush:    "Royal Flush",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// payTable maps a category to the multiple of the bet returned.
var payTable = map[Category]int64{
	RoyalFlush:    250,
	StraightFlush: 50,
	FourOfAKind:   25,
	FullHouse:     9,
	Flush:         6,
	Straight:      4,
	ThreeOfAKind:  3,
	TwoPair:       2,
	JacksOrBetter: 1,
}

// Multiplier returns the payout multiple for the category.
func (c Category) Multiplier() int64 {
	return payTable[c]
}

// Evaluate classifies a five-card hand.
func Evaluate(hand [5]cards.Card) Category {
	counts := make(map[cards.Rank]int, 5)
	flush := true
	for i, c := range hand {
		counts[c.Rank]++
		if i > 0 && c.Suit != hand[0].Suit {
			flush = false
		}
	}

	ranks := make([]int, 0, 5)
	for _, c := range hand {
		ranks = append(ranks, int(c.Rank))
	}
	sort.Ints(ranks)

	straight := false
	if len(counts) == 5 {
		switch {
		case ranks[4]-ranks[0] == 4:
			straight = true
		case ranks[0] == int(cards.Two) && ranks[3] == int(cards.Five) && ranks[4] == int(cards.Ace):
			// Ace plays low in A-2-3-4-5
			straight = true
		}
	}

	switch {
	case straight && flush && ranks[0] == int(cards.Ten):
		return RoyalFlush
	case straight && flush:
		return StraightFlush
	case flush:
		return Flush
	case straight:
		return Straight
	}

	var pairs []cards.Rank
	trips, quads := false, false
	for rank, n := range counts {
		switch n {
		case 4:
			quads = true
		case 3:
			trips = true
		case 2:
			pairs = append(pairs, rank)
		}
	}

	switch {
	case quads:
		return FourOfAKind
	case trips && len(pairs) == 1:
		return FullHouse
	case trips:
		return ThreeOfAKind
	case len(pairs) == 2:
		return TwoPair
	case len(pairs) == 1 && pairs[0] >= cards.Jack:
		return JacksOrBetter
	}
	return Nothing
}
