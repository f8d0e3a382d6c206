package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"

	"arsenal-bot/internal/conversion"
	"arsenal-bot/internal/model"
)

// Converter turns ArsenalCoins into euros.
type Converter interface {
	Quote(coins int64) conversion.Quote
	Convert(ctx context.Context, userID string, coins int64, destination string) (*model.Conversion, error)
	History(ctx context.Context, userID string, limit int) ([]*model.Conversion, error)
}

// ConvertHandler handles /convert.
type ConvertHandler struct {
	converter Converter
}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler(converter Converter) *ConvertHandler {
	return &ConvertHandler{converter: converter}
}

// Handle dispatches the /convert subcommands.
func (h *ConvertHandler) Handle(ctx context.Context, req *Request) (*Reply, error) {
	switch req.Subcommand {
	case "quote":
		return h.quote(req)
	case "history":
		return h.history(ctx, req)
	default:
		return h.convert(ctx, req)
	}
}

func (h *ConvertHandler) quote(req *Request) (*Reply, error) {
	coins, ok := req.Int("amount")
	if !ok || coins <= 0 {
		return Private("Usage: /convert quote amount:<coins>"), nil
	}
	q := h.converter.Quote(coins)
	return &Reply{
		Embeds:    []*discordgo.MessageEmbed{quoteEmbed("💱 Conversion quote", q)},
		Ephemeral: true,
	}, nil
}

func (h *ConvertHandler) convert(ctx context.Context, req *Request) (*Reply, error) {
	coins, ok := req.Int("amount")
	if !ok {
		return Private("Usage: /convert amount amount:<coins> [wallet:<address>]"), nil
	}

	c, err := h.converter.Convert(ctx, req.UserID, coins, req.String("wallet"))
	if c == nil || (err != nil && c.Status != model.ConversionFailed) {
		return nil, err
	}

	embed := quoteEmbed("💱 Conversion", conversion.Quote{
		Coins:      c.Coins,
		Gross:      c.EuroValue,
		Commission: c.Commission,
		Net:        c.NetValue,
	})
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Status", Value: string(c.Status), Inline: true},
		&discordgo.MessageEmbedField{Name: "Transaction", Value: "`" + c.ID.String() + "`"},
	)
	if c.Status == model.ConversionFailed {
		embed.Color = ColorError
		embed.Description = "The payout did not go through. Keep the transaction id and contact an admin."
	} else {
		embed.Color = ColorSuccess
		embed.Description = fmt.Sprintf("Sent to %s.", destinationLabel(c.Destination))
	}
	return &Reply{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: true}, nil
}

func (h *ConvertHandler) history(ctx context.Context, req *Request) (*Reply, error) {
	list, err := h.converter.History(ctx, req.UserID, 10)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return Private("You have not converted any coins yet."), nil
	}

	var b strings.Builder
	for _, c := range list {
		fmt.Fprintf(&b, "`%s` %d AC → %s %s · %s\n",
			c.CreatedAt.UTC().Format("2006-01-02"), c.Coins, c.NetValue.StringFixed(2), conversion.Currency, c.Status)
	}
	return &Reply{
		Embeds:    []*discordgo.MessageEmbed{{Title: "💱 Conversion history", Description: b.String(), Color: ColorInfo}},
		Ephemeral: true,
	}, nil
}

func quoteEmbed(title string, q conversion.Quote) *discordgo.MessageEmbed {
	money := func(d decimal.Decimal) string {
		return d.StringFixed(2) + " " + conversion.Currency
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Color: ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Coins", Value: fmt.Sprintf("%d AC", q.Coins), Inline: true},
			{Name: "Value", Value: money(q.Gross), Inline: true},
			{Name: "Commission", Value: money(q.Commission), Inline: true},
			{Name: "You receive", Value: money(q.Net), Inline: true},
		},
	}
}

func destinationLabel(dest string) string {
	if dest == "" || dest == model.SimulationDestination {
		return "the simulation wallet"
	}
	return "`" + dest + "`"
}
