package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/game"
	"arsenal-bot/internal/game/blackjack"
	"arsenal-bot/internal/game/cards"
	"arsenal-bot/internal/game/poker"
	"arsenal-bot/internal/game/roulette"
	"arsenal-bot/internal/game/session"
	"arsenal-bot/internal/model"
)

func spade(r cards.Rank) cards.Card {
	return cards.Card{Rank: r, Suit: cards.Spades}
}

func dealt(deal ...cards.Card) func() cards.Deck {
	return func() cards.Deck {
		d := make(cards.Deck, len(deal))
		for i, c := range deal {
			d[len(deal)-1-i] = c
		}
		return d
	}
}

func newTestCasino(t *testing.T, bjDeal []cards.Card, spin int) (*CasinoService, *memWallets, *memTxs) {
	t.Helper()
	econ, wallets, txs := newTestEconomy()

	bj := blackjack.New(session.NewMemoryStore[*blackjack.Hand](), blackjack.WithDeck(dealt(bjDeal...)))
	pk := poker.New(session.NewMemoryStore[*poker.Hand]())

	reg := game.NewRegistry()
	require.NoError(t, reg.Register(roulette.NewWithSpinner(func() int { return spin })))

	return NewCasinoService(econ, bj, pk, reg, 10, 1000), wallets, txs
}

func TestCasino_NaturalBlackjackSettlesImmediately(t *testing.T) {
	casino, wallets, txs := newTestCasino(t, []cards.Card{spade(cards.Ace), spade(cards.Five), spade(cards.King), spade(cards.Six)}, 0)
	wallets.set("u1", 1000)

	st, err := casino.StartBlackjack(context.Background(), "u1", 100)
	require.NoError(t, err)
	assert.True(t, st.Finished)
	assert.Equal(t, blackjack.OutcomeBlackjack, st.Outcome)
	assert.Equal(t, int64(250), st.Winnings)
	assert.Equal(t, int64(1150), wallets.balance("u1"))

	rows := txs.forUser("u1")
	require.Len(t, rows, 2)
	assert.Equal(t, model.TxTypeCasinoBet, rows[0].Type)
	assert.Equal(t, model.TxTypeCasinoWin, rows[1].Type)
}

func TestCasino_StandCreditsOnce(t *testing.T) {
	casino, wallets, _ := newTestCasino(t, []cards.Card{spade(cards.Ten), spade(cards.Ten), spade(cards.Ten), spade(cards.Seven)}, 0)
	wallets.set("u1", 1000)
	ctx := context.Background()

	st, err := casino.StartBlackjack(ctx, "u1", 100)
	require.NoError(t, err)
	require.False(t, st.Finished)
	assert.Equal(t, int64(900), wallets.balance("u1"))

	_, err = casino.StandBlackjack(ctx, "intruder", st.ID)
	assert.ErrorIs(t, err, ErrNotYourGame)

	st, err = casino.StandBlackjack(ctx, "u1", st.ID)
	require.NoError(t, err)
	assert.Equal(t, blackjack.OutcomeWin, st.Outcome)
	assert.Equal(t, int64(1100), wallets.balance("u1"))

	_, err = casino.StandBlackjack(ctx, "u1", st.ID)
	assert.ErrorIs(t, err, blackjack.ErrGameFinished)
	assert.Equal(t, int64(1100), wallets.balance("u1"))
}

func TestCasino_BetChecks(t *testing.T) {
	casino, wallets, _ := newTestCasino(t, nil, 0)
	wallets.set("u1", 50)
	ctx := context.Background()

	_, err := casino.StartBlackjack(ctx, "u1", 5)
	assert.ErrorIs(t, err, ErrBetOutOfRange)
	_, err = casino.StartPoker(ctx, "u1", 5000)
	assert.ErrorIs(t, err, ErrBetOutOfRange)

	_, err = casino.StartPoker(ctx, "u1", 100)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(50), wallets.balance("u1"))
}

func TestCasino_Roulette(t *testing.T) {
	casino, wallets, _ := newTestCasino(t, nil, 17)
	wallets.set("u1", 1000)
	ctx := context.Background()

	res, err := casino.Play(ctx, "roulette", "u1", 10, map[string]any{roulette.ParamBet: "number:17"})
	require.NoError(t, err)
	assert.Equal(t, int64(360), res.Winnings)
	assert.Equal(t, int64(1350), wallets.balance("u1"))

	res, err = casino.Play(ctx, "roulette", "u1", 100, map[string]any{roulette.ParamBet: "even"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Winnings)
	assert.Equal(t, int64(1250), wallets.balance("u1"))

	_, err = casino.Play(ctx, "roulette", "u1", 100, map[string]any{roulette.ParamBet: "purple"})
	assert.True(t, apperr.IsPrecondition(err))
	assert.Equal(t, int64(1250), wallets.balance("u1"))

	_, err = casino.Play(ctx, "craps", "u1", 100, nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCasino_PokerDraw(t *testing.T) {
	casino, wallets, _ := newTestCasino(t, nil, 0)
	wallets.set("u1", 1000)
	ctx := context.Background()

	st, err := casino.StartPoker(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, poker.StatusChoosing, st.Status)

	_, err = casino.DrawPoker(ctx, "u2", st.ID, [5]bool{})
	assert.ErrorIs(t, err, ErrNotYourGame)

	st, err = casino.DrawPoker(ctx, "u1", st.ID, [5]bool{true, true, true, true, true})
	require.NoError(t, err)
	assert.True(t, st.Finished())
	assert.Equal(t, 990+st.Winnings, wallets.balance("u1"))
}
