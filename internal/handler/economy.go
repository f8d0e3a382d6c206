package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"arsenal-bot/internal/model"
)

// Economy is the ledger the economy commands use.
type Economy interface {
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
	ClaimTimedReward(ctx context.Context, userID string, kind model.RewardKind) (*model.Wallet, int64, error)
	Transfer(ctx context.Context, fromID, toID string, amount int64) error
	Top(ctx context.Context, limit int) ([]*model.Wallet, error)
	History(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
	AdjustBalance(ctx context.Context, userID string, delta int64, txType, description string) (*model.Wallet, error)
}

// TopLimit is how many wallets /top lists.
const TopLimit = 10

// EconomyHandler handles balance, rewards, transfers and the leaderboard.
type EconomyHandler struct {
	economy Economy
}

// NewEconomyHandler creates a new EconomyHandler.
func NewEconomyHandler(economy Economy) *EconomyHandler {
	return &EconomyHandler{economy: economy}
}

// HandleBalance shows the caller's wallet, or another user's balance.
func (h *EconomyHandler) HandleBalance(ctx context.Context, req *Request) (*Reply, error) {
	userID := req.UserID
	if target := req.String("user"); target != "" {
		userID = target
	}

	w, err := h.economy.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	embed := &discordgo.MessageEmbed{
		Title: "💰 Wallet",
		Color: ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Owner", Value: mention(userID), Inline: true},
			{Name: "Balance", Value: fmt.Sprintf("%d AC", w.Balance), Inline: true},
			{Name: "Earned / Spent", Value: fmt.Sprintf("%d / %d", w.TotalEarned, w.TotalSpent), Inline: true},
		},
	}
	return Embed(embed), nil
}

// HandleClaim returns the handler for one timed reward.
func (h *EconomyHandler) HandleClaim(kind model.RewardKind) Func {
	return func(ctx context.Context, req *Request) (*Reply, error) {
		w, amount, err := h.economy.ClaimTimedReward(ctx, req.UserID, kind)
		if err != nil {
			return nil, err
		}
		return Text("🎁 %s claimed your %s reward of **%d AC**. Balance: %d AC.",
			mention(req.UserID), kind, amount, w.Balance), nil
	}
}

// HandlePay transfers coins to another user.
func (h *EconomyHandler) HandlePay(ctx context.Context, req *Request) (*Reply, error) {
	target := req.String("user")
	amount, ok := req.Int("amount")
	if target == "" || !ok {
		return Private("Usage: /pay user:<member> amount:<coins>"), nil
	}

	if err := h.economy.Transfer(ctx, req.UserID, target, amount); err != nil {
		return nil, err
	}
	return Text("💸 %s sent **%d AC** to %s.", mention(req.UserID), amount, mention(target)), nil
}

// HandleGive adds or removes coins from a wallet. The balance may go
// negative.
func (h *EconomyHandler) HandleGive(ctx context.Context, req *Request) (*Reply, error) {
	target := req.String("user")
	amount, ok := req.Int("amount")
	if target == "" || !ok || amount == 0 {
		return Private("Usage: /give user:<member> amount:<coins, negative to remove>"), nil
	}

	reason := req.String("reason")
	if reason == "" {
		reason = "granted by " + req.Username
	}
	w, err := h.economy.AdjustBalance(ctx, target, amount, model.TxTypeAdminAdd, reason)
	if err != nil {
		return nil, err
	}
	return Private("✅ Adjusted %s by %+d AC. New balance: %d AC.", mention(target), amount, w.Balance), nil
}

// HandleTop shows the richest wallets.
func (h *EconomyHandler) HandleTop(ctx context.Context, _ *Request) (*Reply, error) {
	wallets, err := h.economy.Top(ctx, TopLimit)
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return Text("Nobody has any coins yet."), nil
	}

	var b strings.Builder
	for i, w := range wallets {
		fmt.Fprintf(&b, "%s %s · %d AC\n", rankBadge(i), mention(w.UserID), w.Balance)
	}
	return Embed(&discordgo.MessageEmbed{
		Title:       "🏆 Leaderboard",
		Description: b.String(),
		Color:       ColorWarning,
	}), nil
}

// HandleHistory lists the caller's latest transactions.
func (h *EconomyHandler) HandleHistory(ctx context.Context, req *Request) (*Reply, error) {
	txs, err := h.economy.History(ctx, req.UserID, 10)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return Private("No transactions yet."), nil
	}

	var b strings.Builder
	for _, tx := range txs {
		desc := ""
		if tx.Description != nil {
			desc = " · " + *tx.Description
		}
		fmt.Fprintf(&b, "`%s` %+d AC (%s)%s\n", tx.CreatedAt.UTC().Format("01-02 15:04"), tx.Amount, tx.Type, desc)
	}
	return &Reply{
		Embeds:    []*discordgo.MessageEmbed{{Title: "📜 Recent transactions", Description: b.String(), Color: ColorInfo}},
		Ephemeral: true,
	}, nil
}

func rankBadge(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", i+1)
	}
}
