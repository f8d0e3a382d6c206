package handler

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/game/blackjack"
	"arsenal-bot/internal/game/cards"
	"arsenal-bot/internal/game/poker"
	"arsenal-bot/internal/game/roulette"
)

func buttons(t *testing.T, reply *Reply) []discordgo.Button {
	t.Helper()
	var out []discordgo.Button
	for _, row := range reply.Components {
		ar, ok := row.(discordgo.ActionsRow)
		require.True(t, ok)
		for _, c := range ar.Components {
			b, ok := c.(discordgo.Button)
			require.True(t, ok)
			out = append(out, b)
		}
	}
	return out
}

func TestCasinoHandler_BetLimits(t *testing.T) {
	h := NewCasinoHandler(&fakeCasino{})

	reply, err := h.HandleBlackjack(context.Background(), &Request{UserID: "1"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "Usage")

	reply, err = h.HandleBlackjack(context.Background(), &Request{UserID: "1", Options: map[string]any{"bet": int64(5)}})
	require.NoError(t, err)
	assert.Equal(t, "❌ Bets must be between 10 and 1000 AC.", reply.Content)
}

func TestCasinoHandler_BlackjackFlow(t *testing.T) {
	fc := &fakeCasino{bj: blackjack.State{
		ID:          "blackjack_1_1",
		Player:      []cards.Card{{Rank: cards.Ten, Suit: cards.Spades}, {Rank: cards.Six, Suit: cards.Hearts}},
		PlayerTotal: 16,
		Dealer:      []cards.Card{{Rank: cards.Nine, Suit: cards.Clubs}},
		DealerTotal: 9,
	}}
	h := NewCasinoHandler(fc)

	reply, err := h.HandleBlackjack(context.Background(), &Request{UserID: "1", Options: map[string]any{"bet": int64(100)}})
	require.NoError(t, err)
	assert.False(t, reply.Update)
	bs := buttons(t, reply)
	require.Len(t, bs, 2)
	assert.Equal(t, "bj_hit:blackjack_1_1", bs[0].CustomID)
	assert.Equal(t, "bj_stand:blackjack_1_1", bs[1].CustomID)
	assert.Equal(t, "Your hand (16)", reply.Embeds[0].Fields[0].Name)

	reply, err = h.HandleBlackjackAction(context.Background(), &Request{UserID: "1", CustomID: bs[1].CustomID})
	require.NoError(t, err)
	assert.True(t, reply.Update)
	assert.Empty(t, reply.Components)
	assert.Equal(t, "🤝 Push. Your bet is returned.", reply.Embeds[0].Description)
	assert.Equal(t, ColorWarning, reply.Embeds[0].Color)
}

func TestCasinoHandler_BlackjackUnknownSession(t *testing.T) {
	h := NewCasinoHandler(&fakeCasino{bj: blackjack.State{ID: "a"}})
	_, err := h.HandleBlackjackAction(context.Background(), &Request{UserID: "1", CustomID: "bj_hit:b"})
	assert.True(t, apperr.IsNotFound(err))

	reply, err := h.HandleBlackjackAction(context.Background(), &Request{UserID: "1", CustomID: "bj_hit"})
	require.NoError(t, err)
	assert.Equal(t, "❌ Unknown action.", reply.Content)
}

func TestCasinoHandler_PokerHoldToggles(t *testing.T) {
	hand := [5]cards.Card{
		{Rank: cards.Jack, Suit: cards.Spades},
		{Rank: cards.Jack, Suit: cards.Hearts},
		{Rank: cards.Two, Suit: cards.Clubs},
		{Rank: cards.Five, Suit: cards.Diamonds},
		{Rank: cards.Nine, Suit: cards.Spades},
	}
	fc := &fakeCasino{pk: poker.State{ID: "poker_1_1", Cards: hand, Status: poker.StatusChoosing}}
	h := NewCasinoHandler(fc)

	reply, err := h.HandlePoker(context.Background(), &Request{UserID: "1", Options: map[string]any{"bet": int64(20)}})
	require.NoError(t, err)
	bs := buttons(t, reply)
	require.Len(t, bs, 6)
	assert.Equal(t, "poker_hold:poker_1_1:10000", bs[0].CustomID)
	assert.Equal(t, "poker_draw:poker_1_1:00000", bs[5].CustomID)

	// Holding the first card flips its toggle and the draw mask.
	reply, err = h.HandlePokerAction(context.Background(), &Request{UserID: "1", CustomID: bs[0].CustomID})
	require.NoError(t, err)
	assert.True(t, reply.Update)
	bs = buttons(t, reply)
	assert.Equal(t, "poker_hold:poker_1_1:00000", bs[0].CustomID)
	assert.Equal(t, discordgo.SuccessButton, bs[0].Style)
	assert.Equal(t, "poker_hold:poker_1_1:11000", bs[1].CustomID)
	assert.Equal(t, "poker_draw:poker_1_1:10000", bs[5].CustomID)
	assert.Equal(t, "J♠", reply.Embeds[0].Fields[0].Value)

	reply, err = h.HandlePokerAction(context.Background(), &Request{UserID: "1", CustomID: "poker_draw:poker_1_1:11000"})
	require.NoError(t, err)
	assert.Equal(t, [5]bool{true, true}, fc.drawn)
	assert.Empty(t, reply.Components)
	assert.Equal(t, ColorSuccess, reply.Embeds[0].Color)
	assert.Contains(t, reply.Embeds[0].Fields[0].Value, "you win 20 AC")
}

func TestCasinoHandler_PokerBadMask(t *testing.T) {
	h := NewCasinoHandler(&fakeCasino{})
	reply, err := h.HandlePokerAction(context.Background(), &Request{UserID: "1", CustomID: "poker_draw:x:12"})
	require.NoError(t, err)
	assert.True(t, reply.Ephemeral)
	assert.Contains(t, reply.Content, "Hold mask")
}

func TestCasinoHandler_Roulette(t *testing.T) {
	fc := &fakeCasino{}
	h := NewCasinoHandler(fc)

	reply, err := h.HandleRoulette(context.Background(), &Request{UserID: "1", Options: map[string]any{"bet": int64(50), "choice": "purple"}})
	require.NoError(t, err)
	assert.True(t, reply.Ephemeral)
	assert.Nil(t, fc.played)

	reply, err = h.HandleRoulette(context.Background(), &Request{UserID: "1", Options: map[string]any{"bet": int64(50), "choice": "red"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{roulette.ParamBet: "red"}, fc.played)
	assert.Equal(t, "+50 AC", reply.Embeds[0].Fields[1].Value)
	assert.Equal(t, ColorSuccess, reply.Embeds[0].Color)
}
