package handler

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"arsenal-bot/internal/game"
	"arsenal-bot/internal/game/blackjack"
	"arsenal-bot/internal/game/cards"
	"arsenal-bot/internal/game/poker"
	"arsenal-bot/internal/game/roulette"
)

// Component id prefixes of casino buttons.
const (
	BlackjackHitPrefix   = "bj_hit"
	BlackjackStandPrefix = "bj_stand"
	PokerHoldPrefix      = "poker_hold"
	PokerDrawPrefix      = "poker_draw"
)

// Casino is the game service the casino commands drive.
type Casino interface {
	BetLimits() (int64, int64)
	StartBlackjack(ctx context.Context, userID string, bet int64) (blackjack.State, error)
	HitBlackjack(ctx context.Context, userID, id string) (blackjack.State, error)
	StandBlackjack(ctx context.Context, userID, id string) (blackjack.State, error)
	StartPoker(ctx context.Context, userID string, bet int64) (poker.State, error)
	PokerHand(userID, id string) (poker.State, error)
	DrawPoker(ctx context.Context, userID, id string, hold [5]bool) (poker.State, error)
	Play(ctx context.Context, command, userID string, bet int64, params map[string]any) (*game.Result, error)
}

// CasinoHandler handles blackjack, video poker and roulette.
type CasinoHandler struct {
	casino Casino
}

// NewCasinoHandler creates a new CasinoHandler.
func NewCasinoHandler(casino Casino) *CasinoHandler {
	return &CasinoHandler{casino: casino}
}

func (h *CasinoHandler) bet(req *Request, usage string) (int64, *Reply) {
	bet, ok := req.Int("bet")
	if !ok {
		return 0, Private("Usage: %s", usage)
	}
	if minBet, maxBet := h.casino.BetLimits(); bet < minBet || bet > maxBet {
		return 0, Private("❌ Bets must be between %d and %d AC.", minBet, maxBet)
	}
	return bet, nil
}

// HandleBlackjack deals a new blackjack hand.
func (h *CasinoHandler) HandleBlackjack(ctx context.Context, req *Request) (*Reply, error) {
	bet, usage := h.bet(req, "/blackjack bet:<coins>")
	if usage != nil {
		return usage, nil
	}
	st, err := h.casino.StartBlackjack(ctx, req.UserID, bet)
	if err != nil {
		return nil, err
	}
	return blackjackReply(st, false), nil
}

// HandleBlackjackAction handles the hit and stand buttons.
func (h *CasinoHandler) HandleBlackjackAction(ctx context.Context, req *Request) (*Reply, error) {
	parts := splitCustomID(req.CustomID)
	if len(parts) != 2 {
		return Private("❌ Unknown action."), nil
	}

	var (
		st  blackjack.State
		err error
	)
	switch parts[0] {
	case BlackjackHitPrefix:
		st, err = h.casino.HitBlackjack(ctx, req.UserID, parts[1])
	case BlackjackStandPrefix:
		st, err = h.casino.StandBlackjack(ctx, req.UserID, parts[1])
	default:
		return Private("❌ Unknown action."), nil
	}
	if err != nil {
		return nil, err
	}
	return blackjackReply(st, true), nil
}

// HandlePoker deals a new video poker hand.
func (h *CasinoHandler) HandlePoker(ctx context.Context, req *Request) (*Reply, error) {
	bet, usage := h.bet(req, "/poker bet:<coins>")
	if usage != nil {
		return usage, nil
	}
	st, err := h.casino.StartPoker(ctx, req.UserID, bet)
	if err != nil {
		return nil, err
	}
	return pokerReply(st, [5]bool{}, false), nil
}

// HandlePokerAction handles the hold toggles and the draw button. The hold
// mask travels in the button id, so no state is kept between presses.
func (h *CasinoHandler) HandlePokerAction(ctx context.Context, req *Request) (*Reply, error) {
	parts := splitCustomID(req.CustomID)
	if len(parts) != 3 {
		return Private("❌ Unknown action."), nil
	}
	hold, err := poker.ParseHoldMask(parts[2])
	if err != nil {
		return Private("❌ %s", userMessage(err)), nil
	}

	var st poker.State
	switch parts[0] {
	case PokerHoldPrefix:
		st, err = h.casino.PokerHand(req.UserID, parts[1])
	case PokerDrawPrefix:
		st, err = h.casino.DrawPoker(ctx, req.UserID, parts[1], hold)
	default:
		return Private("❌ Unknown action."), nil
	}
	if err != nil {
		return nil, err
	}
	return pokerReply(st, hold, true), nil
}

// HandleRoulette spins the wheel once.
func (h *CasinoHandler) HandleRoulette(ctx context.Context, req *Request) (*Reply, error) {
	bet, usage := h.bet(req, "/roulette bet:<coins> choice:<red|black|even|odd|low|high|dozen1-3|number:N>")
	if usage != nil {
		return usage, nil
	}
	choice := req.String("choice")
	if _, err := roulette.ParseBet(choice); err != nil {
		return Private("❌ %s", userMessage(err)), nil
	}

	res, err := h.casino.Play(ctx, roulette.Command, req.UserID, bet, map[string]any{roulette.ParamBet: choice})
	if err != nil {
		return nil, err
	}

	color := ColorError
	if res.Winnings > 0 {
		color = ColorSuccess
	}
	return Embed(&discordgo.MessageEmbed{
		Title:       "🎡 Roulette",
		Description: res.Description,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Bet", Value: fmt.Sprintf("%d AC on %s", bet, choice), Inline: true},
			{Name: "Net", Value: fmt.Sprintf("%+d AC", res.Net(bet)), Inline: true},
		},
	}), nil
}

func blackjackReply(st blackjack.State, update bool) *Reply {
	embed := &discordgo.MessageEmbed{
		Title: "🃏 Blackjack",
		Color: ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: fmt.Sprintf("Your hand (%d)", st.PlayerTotal), Value: cards.Format(st.Player)},
			{Name: fmt.Sprintf("Dealer (%d)", st.DealerTotal), Value: dealerCards(st)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Bet: %d AC", st.Bet)},
	}

	reply := &Reply{Embeds: []*discordgo.MessageEmbed{embed}, Update: update}
	if st.Finished {
		embed.Description = outcomeText(st)
		embed.Color = ColorError
		if st.Winnings > st.Bet {
			embed.Color = ColorSuccess
		} else if st.Winnings == st.Bet {
			embed.Color = ColorWarning
		}
		reply.Components = []discordgo.MessageComponent{}
		return reply
	}

	reply.Components = []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Hit", Style: discordgo.PrimaryButton, CustomID: BlackjackHitPrefix + ":" + st.ID},
			discordgo.Button{Label: "Stand", Style: discordgo.SecondaryButton, CustomID: BlackjackStandPrefix + ":" + st.ID},
		}},
	}
	return reply
}

func dealerCards(st blackjack.State) string {
	if st.Finished {
		return cards.Format(st.Dealer)
	}
	return cards.Format(st.Dealer) + " 🂠"
}

func outcomeText(st blackjack.State) string {
	switch st.Outcome {
	case blackjack.OutcomeBlackjack:
		return fmt.Sprintf("🎉 Blackjack! You win %d AC.", st.Winnings)
	case blackjack.OutcomeTwentyOne:
		return fmt.Sprintf("🎉 Twenty-one! You win %d AC.", st.Winnings)
	case blackjack.OutcomeBust:
		return "💥 Bust. You lose your bet."
	case blackjack.OutcomeDealerBust:
		return fmt.Sprintf("🎉 Dealer busts! You win %d AC.", st.Winnings)
	case blackjack.OutcomeWin:
		return fmt.Sprintf("🎉 You beat the dealer and win %d AC.", st.Winnings)
	case blackjack.OutcomePush:
		return "🤝 Push. Your bet is returned."
	default:
		return "😞 The dealer wins."
	}
}

func pokerReply(st poker.State, hold [5]bool, update bool) *Reply {
	embed := &discordgo.MessageEmbed{
		Title:       "🂡 Video Poker",
		Description: poker.Describe(st),
		Color:       ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Bet: %d AC · Jacks or Better", st.Bet)},
	}
	reply := &Reply{Embeds: []*discordgo.MessageEmbed{embed}, Update: update}

	if st.Finished() {
		if st.Winnings > 0 {
			embed.Color = ColorSuccess
			embed.Fields = []*discordgo.MessageEmbedField{{Name: "Result", Value: fmt.Sprintf("%s · you win %d AC", st.Category, st.Winnings)}}
		} else {
			embed.Color = ColorError
			embed.Fields = []*discordgo.MessageEmbedField{{Name: "Result", Value: "No winning hand."}}
		}
		reply.Components = []discordgo.MessageComponent{}
		return reply
	}

	embed.Fields = []*discordgo.MessageEmbedField{{Name: "Held", Value: heldText(st, hold)}}

	toggles := make([]discordgo.MessageComponent, 5)
	for i := range hold {
		next := hold
		next[i] = !next[i]
		style := discordgo.SecondaryButton
		if hold[i] {
			style = discordgo.SuccessButton
		}
		toggles[i] = discordgo.Button{
			Label:    st.Cards[i].String(),
			Style:    style,
			CustomID: fmt.Sprintf("%s:%s:%s", PokerHoldPrefix, st.ID, poker.FormatHoldMask(next)),
		}
	}
	reply.Components = []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: toggles},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Draw",
				Style:    discordgo.PrimaryButton,
				CustomID: fmt.Sprintf("%s:%s:%s", PokerDrawPrefix, st.ID, poker.FormatHoldMask(hold)),
			},
		}},
	}
	return reply
}

func heldText(st poker.State, hold [5]bool) string {
	var held []cards.Card
	for i, h := range hold {
		if h {
			held = append(held, st.Cards[i])
		}
	}
	if len(held) == 0 {
		return "nothing (all five cards will be replaced)"
	}
	return cards.Format(held)
}
