package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/guildconfig"
	"arsenal-bot/internal/model"
)

// Component id prefixes of ticket buttons.
const (
	TicketOpenPrefix  = "ticket_open"
	TicketClose       = "ticket_close"
	TicketTranscript  = "ticket_transcript"
	buttonCloseReason = "closed with the button"
)

// ErrNotAllowedToClose is returned when someone other than the owner, the
// support team or an admin tries to close a ticket.
var ErrNotAllowedToClose = errors.New("only the ticket owner or support staff can do that")

// Tickets is the ticket lifecycle the commands drive.
type Tickets interface {
	Create(ctx context.Context, guildID, tag, requesterID string) (*model.Ticket, error)
	Close(ctx context.Context, guildID string, number int, closerID, reason string) (*model.Ticket, error)
	ByChannel(ctx context.Context, channelID string) (*model.Ticket, error)
	Transcript(ctx context.Context, t *model.Ticket) (string, error)
	Stats(ctx context.Context, guildID string) (*model.TicketStats, error)
}

// GuildConfigs reads and edits per-guild settings.
type GuildConfigs interface {
	Get(ctx context.Context, guildID string) (*guildconfig.Config, error)
	Update(ctx context.Context, guildID string, fn func(*guildconfig.Config) error) (*guildconfig.Config, error)
}

// TicketHandler handles /ticket and the ticket buttons.
type TicketHandler struct {
	tickets Tickets
	configs GuildConfigs
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(tickets Tickets, configs GuildConfigs) *TicketHandler {
	return &TicketHandler{tickets: tickets, configs: configs}
}

// HandleSetup updates the guild's ticket settings from the given options.
// Options left out keep their current value.
func (h *TicketHandler) HandleSetup(ctx context.Context, req *Request) (*Reply, error) {
	cfg, err := h.update(ctx, req.GuildID, func(c *guildconfig.Config) {
		if v, ok := req.Bool("enabled"); ok {
			c.TicketsEnabled = v
		}
		if v := req.String("category"); v != "" {
			c.TicketCategoryID = v
		}
		if v := req.String("support_role"); v != "" && !slices.Contains(c.SupportRoleIDs, v) {
			c.SupportRoleIDs = append(c.SupportRoleIDs, v)
		}
		if v := req.String("log_channel"); v != "" {
			c.LogChannelID = v
		}
		if v := req.String("transcript_channel"); v != "" {
			c.TranscriptChannelID = v
		}
		if v, ok := req.Int("max_open"); ok {
			c.MaxOpenTickets = int(v)
		}
		if v := req.String("welcome"); v != "" {
			c.WelcomeMessage = v
		}
	})
	if err != nil {
		return nil, err
	}
	return &Reply{Embeds: []*discordgo.MessageEmbed{settingsEmbed(cfg)}, Ephemeral: true}, nil
}

// HandleCategory adds or removes a panel category.
func (h *TicketHandler) HandleCategory(ctx context.Context, req *Request) (*Reply, error) {
	tag := strings.TrimSpace(req.String("tag"))
	action := req.String("action")

	cfg, err := h.update(ctx, req.GuildID, func(c *guildconfig.Config) {
		switch action {
		case "remove":
			c.Categories = slices.DeleteFunc(c.Categories, func(cat guildconfig.Category) bool { return cat.Tag == tag })
		default:
			label := req.String("label")
			if label == "" {
				label = tag
			}
			c.Categories = append(c.Categories, guildconfig.Category{Tag: tag, Label: label, Emoji: req.String("emoji")})
		}
	})
	if err != nil {
		return nil, err
	}
	return &Reply{Embeds: []*discordgo.MessageEmbed{settingsEmbed(cfg)}, Ephemeral: true}, nil
}

// update applies fn and saves, reporting invalid settings as refused.
func (h *TicketHandler) update(ctx context.Context, guildID string, fn func(*guildconfig.Config)) (*guildconfig.Config, error) {
	cfg, err := h.configs.Update(ctx, guildID, func(c *guildconfig.Config) error {
		fn(c)
		if err := c.Validate(); err != nil {
			return apperr.Precondition("ticket.setup", err)
		}
		return nil
	})
	if err != nil {
		if apperr.IsPrecondition(err) {
			return nil, err
		}
		return nil, apperr.Infra("ticket.setup", err)
	}
	return cfg, nil
}

// HandlePanel posts the ticket panel: one button per category.
func (h *TicketHandler) HandlePanel(ctx context.Context, req *Request) (*Reply, error) {
	cfg, err := h.configs.Get(ctx, req.GuildID)
	if err != nil {
		return nil, apperr.Infra("ticket.panel", err)
	}
	if !cfg.TicketsEnabled {
		return Private("Tickets are disabled. Run `/ticket setup enabled:true` first."), nil
	}
	if len(cfg.Categories) == 0 {
		return Private("Add a category with `/ticket category` first."), nil
	}

	if _, err := h.configs.Update(ctx, req.GuildID, func(c *guildconfig.Config) error {
		c.HubChannelID = req.ChannelID
		return nil
	}); err != nil {
		return nil, apperr.Infra("ticket.panel", err)
	}

	return &Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🎫 Support",
			Description: "Need help? Pick a category below to open a private ticket with the team.",
			Color:       ColorInfo,
		}},
		Components: PanelComponents(cfg.Categories),
	}, nil
}

// PanelComponents lays out one button per category, five per row.
func PanelComponents(categories []guildconfig.Category) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(categories) && len(rows) < 5; start += 5 {
		end := min(start+5, len(categories))
		var buttons []discordgo.MessageComponent
		for _, cat := range categories[start:end] {
			b := discordgo.Button{
				Label:    cat.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: TicketOpenPrefix + ":" + cat.Tag,
			}
			if cat.Emoji != "" {
				b.Emoji = &discordgo.ComponentEmoji{Name: cat.Emoji}
			}
			buttons = append(buttons, b)
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

// TicketControls are the buttons posted in every ticket channel.
func TicketControls() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Close", Style: discordgo.DangerButton, CustomID: TicketClose, Emoji: &discordgo.ComponentEmoji{Name: "🔒"}},
			discordgo.Button{Label: "Transcript", Style: discordgo.SecondaryButton, CustomID: TicketTranscript, Emoji: &discordgo.ComponentEmoji{Name: "📄"}},
		}},
	}
}

// HandleOpen opens a ticket from a panel button or /ticket open.
func (h *TicketHandler) HandleOpen(ctx context.Context, req *Request) (*Reply, error) {
	tag := req.String("category")
	if parts := splitCustomID(req.CustomID); len(parts) == 2 {
		tag = parts[1]
	}

	t, err := h.tickets.Create(ctx, req.GuildID, tag, req.UserID)
	if err != nil {
		return nil, err
	}
	return Private("✅ Ticket #%d opened: <#%s>", t.Number, t.ChannelID), nil
}

// HandleClose closes the ticket of the current channel.
func (h *TicketHandler) HandleClose(ctx context.Context, req *Request) (*Reply, error) {
	t, err := h.authorize(ctx, req)
	if err != nil {
		return nil, err
	}

	reason := req.String("reason")
	if reason == "" && req.CustomID == TicketClose {
		reason = buttonCloseReason
	}
	if _, err := h.tickets.Close(ctx, t.GuildID, t.Number, req.UserID, reason); err != nil {
		return nil, err
	}
	return Text("🔒 Ticket #%d closed by %s. This channel will be deleted shortly.", t.Number, mention(req.UserID)), nil
}

// HandleTranscript sends the caller the current transcript as a file.
func (h *TicketHandler) HandleTranscript(ctx context.Context, req *Request) (*Reply, error) {
	t, err := h.authorize(ctx, req)
	if err != nil {
		return nil, err
	}
	transcript, err := h.tickets.Transcript(ctx, t)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Content:   fmt.Sprintf("📄 Transcript of ticket #%d", t.Number),
		Files:     []*discordgo.File{{Name: fmt.Sprintf("ticket-%04d.txt", t.Number), ContentType: "text/plain", Reader: bytes.NewReader([]byte(transcript))}},
		Ephemeral: true,
	}, nil
}

// authorize loads the channel's ticket and checks the caller may act on it.
func (h *TicketHandler) authorize(ctx context.Context, req *Request) (*model.Ticket, error) {
	t, err := h.tickets.ByChannel(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if req.IsAdmin || t.OwnerID == req.UserID {
		return t, nil
	}
	cfg, err := h.configs.Get(ctx, t.GuildID)
	if err != nil {
		return nil, apperr.Infra("ticket.authorize", err)
	}
	for _, role := range req.RoleIDs {
		if cfg.IsSupportRole(role) {
			return t, nil
		}
	}
	return nil, apperr.Precondition("ticket.authorize", ErrNotAllowedToClose)
}

// HandleStats shows the guild's ticket counters.
func (h *TicketHandler) HandleStats(ctx context.Context, req *Request) (*Reply, error) {
	stats, err := h.tickets.Stats(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(stats.ByCategory))
	for tag := range stats.ByCategory {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	var b strings.Builder
	for _, tag := range tags {
		fmt.Fprintf(&b, "`%s` %d\n", tag, stats.ByCategory[tag])
	}
	if b.Len() == 0 {
		b.WriteString("No tickets yet.")
	}

	return Embed(&discordgo.MessageEmbed{
		Title: "📊 Ticket statistics",
		Color: ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Open", Value: fmt.Sprint(stats.Open), Inline: true},
			{Name: "Closed", Value: fmt.Sprint(stats.Closed), Inline: true},
			{Name: "Total", Value: fmt.Sprint(stats.Total), Inline: true},
			{Name: "By category", Value: b.String()},
		},
	}), nil
}

func settingsEmbed(cfg *guildconfig.Config) *discordgo.MessageEmbed {
	state := "disabled"
	if cfg.TicketsEnabled {
		state = "enabled"
	}
	roles := make([]string, len(cfg.SupportRoleIDs))
	for i, id := range cfg.SupportRoleIDs {
		roles[i] = "<@&" + id + ">"
	}
	cats := make([]string, len(cfg.Categories))
	for i, c := range cfg.Categories {
		cats[i] = strings.TrimSpace(c.Emoji+" "+c.Label) + " (`" + c.Tag + "`)"
	}

	return &discordgo.MessageEmbed{
		Title: "⚙️ Ticket settings",
		Color: ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tickets", Value: state, Inline: true},
			{Name: "Max open per user", Value: fmt.Sprint(cfg.MaxOpenTickets), Inline: true},
			{Name: "Category channel", Value: channelOrNone(cfg.TicketCategoryID), Inline: true},
			{Name: "Log channel", Value: channelOrNone(cfg.LogChannelID), Inline: true},
			{Name: "Transcript channel", Value: channelOrNone(cfg.TranscriptChannelID), Inline: true},
			{Name: "Support roles", Value: orNone(strings.Join(roles, " "))},
			{Name: "Categories", Value: orNone(strings.Join(cats, "\n"))},
		},
	}
}

func channelOrNone(id string) string {
	if id == "" {
		return "not set"
	}
	return "<#" + id + ">"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
