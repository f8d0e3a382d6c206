package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"arsenal-bot/internal/model"
	"arsenal-bot/internal/service"
	"arsenal-bot/internal/textstyle"
)

// Profiles manages cosmetic profile settings.
type Profiles interface {
	Configure(ctx context.Context, userID, style, bio, accent string) (*model.Profile, error)
	View(ctx context.Context, userID, displayName string) (*service.ProfileView, error)
	TestStyle(style, text string) (string, error)
	Reset(ctx context.Context, userID string) error
}

// ProfileHandler handles /profile.
type ProfileHandler struct {
	profiles Profiles
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles Profiles) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Handle dispatches the /profile subcommands.
func (h *ProfileHandler) Handle(ctx context.Context, req *Request) (*Reply, error) {
	switch req.Subcommand {
	case "config":
		return h.configure(ctx, req)
	case "test_style":
		return h.testStyle(req)
	case "reset":
		if err := h.profiles.Reset(ctx, req.UserID); err != nil {
			return nil, err
		}
		return Private("🧹 Your profile has been reset."), nil
	default:
		return h.view(ctx, req)
	}
}

func (h *ProfileHandler) configure(ctx context.Context, req *Request) (*Reply, error) {
	p, err := h.profiles.Configure(ctx, req.UserID, req.String("style"), req.String("bio"), req.String("accent"))
	if err != nil {
		return nil, err
	}
	return Private("✅ Profile saved with the **%s** style. Use /profile view to see it.", p.Style), nil
}

func (h *ProfileHandler) view(ctx context.Context, req *Request) (*Reply, error) {
	userID := req.UserID
	if target := req.String("user"); target != "" {
		userID = target
	}

	v, err := h.profiles.View(ctx, userID, req.DisplayName(userID))
	if err != nil {
		return nil, err
	}

	embed := &discordgo.MessageEmbed{
		Title:       v.StyledName,
		Description: v.StyledBio,
		Color:       accentColor(v.Profile.AccentColor),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Member", Value: mention(userID), Inline: true},
			{Name: "Style", Value: v.Profile.Style, Inline: true},
		},
	}
	if embed.Description == "" {
		embed.Description = "*No bio yet.*"
	}
	if !v.IsConfigured {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Customise this profile with /profile config"}
	}
	return Embed(embed), nil
}

func (h *ProfileHandler) testStyle(req *Request) (*Reply, error) {
	text := req.String("text")
	if text == "" {
		text = req.Username
	}

	style := req.String("style")
	if style != "" {
		out, err := h.profiles.TestStyle(style, text)
		if err != nil {
			return nil, err
		}
		return Private("%s", out), nil
	}

	var b strings.Builder
	for _, st := range textstyle.Styles() {
		out, err := h.profiles.TestStyle(string(st), text)
		if err != nil {
			return nil, err
		}
		b.WriteString("**" + string(st) + "**: " + out + "\n")
	}
	return &Reply{
		Embeds:    []*discordgo.MessageEmbed{{Title: "🔤 Text styles", Description: b.String(), Color: ColorInfo}},
		Ephemeral: true,
	}, nil
}

// accentColor parses "#RRGGBB", defaulting to the info colour.
func accentColor(hex string) int {
	if len(hex) != 7 {
		return ColorInfo
	}
	v, err := strconv.ParseInt(hex[1:], 16, 32)
	if err != nil {
		return ColorInfo
	}
	return int(v)
}
