package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/service"
)

func TestEconomyHandler_Balance(t *testing.T) {
	h := NewEconomyHandler(&fakeEconomy{wallets: map[string]*model.Wallet{
		"2": {UserID: "2", Balance: 42},
	}})

	reply, err := h.HandleBalance(context.Background(), &Request{UserID: "1", Options: map[string]any{"user": "2"}})
	require.NoError(t, err)
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "<@2>", reply.Embeds[0].Fields[0].Value)
	assert.Equal(t, "42 AC", reply.Embeds[0].Fields[1].Value)
}

func TestEconomyHandler_Claim(t *testing.T) {
	h := NewEconomyHandler(&fakeEconomy{})
	reply, err := h.HandleClaim(model.RewardDaily)(context.Background(), &Request{UserID: "1"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "daily reward of **100 AC**")
	assert.Contains(t, reply.Content, "Balance: 1100 AC")

	cooldown := apperr.Precondition("economy.claim", &service.CooldownError{Kind: model.RewardDaily, Remaining: time.Hour})
	h = NewEconomyHandler(&fakeEconomy{claimErr: cooldown})
	_, err = h.HandleClaim(model.RewardDaily)(context.Background(), &Request{UserID: "1"})
	assert.ErrorIs(t, err, service.ErrAlreadyClaimed)
}

func TestEconomyHandler_Pay(t *testing.T) {
	eco := &fakeEconomy{}
	h := NewEconomyHandler(eco)

	reply, err := h.HandlePay(context.Background(), &Request{UserID: "1"})
	require.NoError(t, err)
	assert.True(t, reply.Ephemeral)
	assert.Contains(t, reply.Content, "Usage")

	reply, err = h.HandlePay(context.Background(), &Request{UserID: "1", Options: map[string]any{"user": "2", "amount": int64(50)}})
	require.NoError(t, err)
	assert.Equal(t, "💸 <@1> sent **50 AC** to <@2>.", reply.Content)
	assert.Equal(t, []string{"1->2"}, eco.transfers)

	_, err = h.HandlePay(context.Background(), &Request{UserID: "1", Options: map[string]any{"user": "2", "amount": int64(0)}})
	assert.True(t, apperr.IsPrecondition(err))
}

func TestEconomyHandler_Give(t *testing.T) {
	eco := &fakeEconomy{wallets: map[string]*model.Wallet{"2": {UserID: "2", Balance: 30}}}
	h := NewEconomyHandler(eco)

	reply, err := h.HandleGive(context.Background(), &Request{UserID: "1", Options: map[string]any{"user": "2", "amount": int64(0)}})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "Usage")
	assert.Empty(t, eco.adjusted)

	// Removing more than the balance is allowed and leaves it negative.
	reply, err = h.HandleGive(context.Background(), &Request{
		UserID: "1", Username: "mod",
		Options: map[string]any{"user": "2", "amount": float64(-50)},
	})
	require.NoError(t, err)
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "✅ Adjusted <@2> by -50 AC. New balance: -20 AC.", reply.Content)
	require.Len(t, eco.adjusted, 1)
	assert.Equal(t, model.TxTypeAdminAdd, eco.adjusted[0].Type)
	assert.Equal(t, "granted by mod", *eco.adjusted[0].Description)
}

func TestEconomyHandler_Top(t *testing.T) {
	h := NewEconomyHandler(&fakeEconomy{})
	reply, err := h.HandleTop(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "🥇 <@1> · 900 AC\n🥈 <@2> · 500 AC\n", reply.Embeds[0].Description)
}

func TestEconomyHandler_EmptyHistory(t *testing.T) {
	h := NewEconomyHandler(&fakeEconomy{})
	reply, err := h.HandleHistory(context.Background(), &Request{UserID: "1"})
	require.NoError(t, err)
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "No transactions yet.", reply.Content)
}
