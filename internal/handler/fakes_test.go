package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/conversion"
	"arsenal-bot/internal/game"
	"arsenal-bot/internal/game/blackjack"
	"arsenal-bot/internal/game/poker"
	"arsenal-bot/internal/game/session"
	"arsenal-bot/internal/guildconfig"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/service"
	"arsenal-bot/internal/textstyle"
)

type fakeEconomy struct {
	wallets   map[string]*model.Wallet
	transfers []string
	adjusted  []*model.Transaction
	claimErr  error
}

func (f *fakeEconomy) GetWallet(_ context.Context, userID string) (*model.Wallet, error) {
	if w, ok := f.wallets[userID]; ok {
		return w, nil
	}
	return &model.Wallet{UserID: userID}, nil
}

func (f *fakeEconomy) ClaimTimedReward(_ context.Context, userID string, kind model.RewardKind) (*model.Wallet, int64, error) {
	if f.claimErr != nil {
		return nil, 0, f.claimErr
	}
	return &model.Wallet{UserID: userID, Balance: 1100}, 100, nil
}

func (f *fakeEconomy) Transfer(_ context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return apperr.Precondition("economy.transfer", errors.New("amount must be positive"))
	}
	f.transfers = append(f.transfers, fromID+"->"+toID)
	return nil
}

func (f *fakeEconomy) AdjustBalance(_ context.Context, userID string, delta int64, txType, description string) (*model.Wallet, error) {
	f.adjusted = append(f.adjusted, &model.Transaction{UserID: userID, Amount: delta, Type: txType, Description: &description})
	w, _ := f.GetWallet(context.Background(), userID)
	return &model.Wallet{UserID: userID, Balance: w.Balance + delta}, nil
}

func (f *fakeEconomy) Top(context.Context, int) ([]*model.Wallet, error) {
	return []*model.Wallet{{UserID: "1", Balance: 900}, {UserID: "2", Balance: 500}}, nil
}

func (f *fakeEconomy) History(context.Context, string, int) ([]*model.Transaction, error) {
	return nil, nil
}

type fakeCasino struct {
	bj     blackjack.State
	pk     poker.State
	drawn  [5]bool
	played map[string]any
}

func (f *fakeCasino) BetLimits() (int64, int64) { return 10, 1000 }

func (f *fakeCasino) StartBlackjack(_ context.Context, userID string, bet int64) (blackjack.State, error) {
	f.bj.UserID, f.bj.Bet = userID, bet
	return f.bj, nil
}

func (f *fakeCasino) HitBlackjack(_ context.Context, userID, id string) (blackjack.State, error) {
	if id != f.bj.ID {
		return blackjack.State{}, apperr.NotFound("casino.hit", session.ErrNotFound)
	}
	return f.bj, nil
}

func (f *fakeCasino) StandBlackjack(_ context.Context, userID, id string) (blackjack.State, error) {
	f.bj.Finished = true
	f.bj.Outcome = blackjack.OutcomePush
	f.bj.Winnings = f.bj.Bet
	return f.bj, nil
}

func (f *fakeCasino) StartPoker(_ context.Context, userID string, bet int64) (poker.State, error) {
	f.pk.Bet = bet
	return f.pk, nil
}

func (f *fakeCasino) PokerHand(userID, id string) (poker.State, error) {
	return f.pk, nil
}

func (f *fakeCasino) DrawPoker(_ context.Context, userID, id string, hold [5]bool) (poker.State, error) {
	f.drawn = hold
	st := f.pk
	st.Status = poker.StatusFinished
	st.Category = poker.JacksOrBetter
	st.Winnings = st.Bet
	return st, nil
}

func (f *fakeCasino) Play(_ context.Context, command, userID string, bet int64, params map[string]any) (*game.Result, error) {
	f.played = params
	return &game.Result{Winnings: bet * 2, Description: "The ball lands on 1 (red). You win!"}, nil
}

type fakeTickets struct {
	mu      sync.Mutex
	byChan  map[string]*model.Ticket
	created []string
	closed  []string
}

func (f *fakeTickets) Create(_ context.Context, guildID, tag, requesterID string) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, tag)
	return &model.Ticket{GuildID: guildID, Number: len(f.created), OwnerID: requesterID, ChannelID: "c-new", Category: tag}, nil
}

func (f *fakeTickets) Close(_ context.Context, guildID string, number int, closerID, reason string) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, reason)
	return &model.Ticket{GuildID: guildID, Number: number}, nil
}

func (f *fakeTickets) ByChannel(_ context.Context, channelID string) (*model.Ticket, error) {
	t, ok := f.byChan[channelID]
	if !ok {
		return nil, apperr.NotFound("ticket.by_channel", errors.New("this channel is not a ticket"))
	}
	return t, nil
}

func (f *fakeTickets) Transcript(_ context.Context, t *model.Ticket) (string, error) {
	return "[2026-01-01 10:00:00] alice: help\n", nil
}

func (f *fakeTickets) Stats(context.Context, string) (*model.TicketStats, error) {
	return &model.TicketStats{Open: 1, Closed: 2, Total: 3, ByCategory: map[string]int{"support": 2, "billing": 1}}, nil
}

type fakeConfigs struct {
	mu   sync.Mutex
	cfgs map[string]*guildconfig.Config
}

func newFakeConfigs() *fakeConfigs {
	return &fakeConfigs{cfgs: make(map[string]*guildconfig.Config)}
}

func (f *fakeConfigs) Get(_ context.Context, guildID string) (*guildconfig.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.cfgs[guildID]
	if !ok {
		cfg = guildconfig.Default(guildID, 1)
		f.cfgs[guildID] = cfg
	}
	cp := *cfg
	return &cp, nil
}

func (f *fakeConfigs) Update(ctx context.Context, guildID string, fn func(*guildconfig.Config) error) (*guildconfig.Config, error) {
	cfg, err := f.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if err := fn(cfg); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.cfgs[guildID] = cfg
	f.mu.Unlock()
	return cfg, nil
}

type fakeConverter struct {
	result *model.Conversion
	err    error
}

func (f *fakeConverter) Quote(coins int64) conversion.Quote {
	svc := conversion.NewService(nil, nil, nil, conversion.Settings{
		CoinValue:      decimal.RequireFromString("0.01"),
		CommissionRate: decimal.RequireFromString("0.01"),
	})
	return svc.Quote(coins)
}

func (f *fakeConverter) Convert(context.Context, string, int64, string) (*model.Conversion, error) {
	return f.result, f.err
}

func (f *fakeConverter) History(context.Context, string, int) ([]*model.Conversion, error) {
	return nil, nil
}

type fakeProfiles struct {
	profiles map[string]*model.Profile
}

func (f *fakeProfiles) Configure(_ context.Context, userID, style, bio, accent string) (*model.Profile, error) {
	st, err := textstyle.Parse(style)
	if err != nil {
		return nil, apperr.Precondition("profile.configure", err)
	}
	p := &model.Profile{UserID: userID, Style: string(st), Bio: bio, AccentColor: accent}
	f.profiles[userID] = p
	return p, nil
}

func (f *fakeProfiles) View(_ context.Context, userID, displayName string) (*service.ProfileView, error) {
	p, ok := f.profiles[userID]
	if !ok {
		p = &model.Profile{UserID: userID, Style: string(textstyle.Normal)}
	}
	st := textstyle.Style(p.Style)
	return &service.ProfileView{
		Profile:      p,
		StyledName:   textstyle.Apply(st, displayName),
		StyledBio:    textstyle.Apply(st, p.Bio),
		IsConfigured: ok,
	}, nil
}

func (f *fakeProfiles) TestStyle(style, text string) (string, error) {
	st, err := textstyle.Parse(style)
	if err != nil {
		return "", apperr.Precondition("profile.test_style", err)
	}
	return textstyle.Apply(st, text), nil
}

func (f *fakeProfiles) Reset(_ context.Context, userID string) error {
	delete(f.profiles, userID)
	return nil
}
