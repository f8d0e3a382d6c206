package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"arsenal-bot/internal/handler"
	"arsenal-bot/internal/ticket"
)

// Permissions granted inside a ticket channel.
const ticketMemberPerms = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionEmbedLinks

// messagesPerPage is the most Discord returns per history request.
const messagesPerPage = 100

// Platform hosts ticket channels on Discord.
type Platform struct {
	session *discordgo.Session
}

// NewPlatform creates a Platform on an open session.
func NewPlatform(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

// CreatePrivateChannel creates a text channel hidden from @everyone and
// visible to the owner and the support roles.
func (p *Platform) CreatePrivateChannel(ctx context.Context, req ticket.ChannelRequest) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		// The @everyone role shares the guild's id.
		{ID: req.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: req.OwnerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketMemberPerms},
	}
	if p.session.State != nil && p.session.State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: p.session.State.User.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketMemberPerms | discordgo.PermissionManageChannels,
		})
	}
	for _, role := range req.SupportRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: role, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketMemberPerms,
		})
	}

	ch, err := p.session.GuildChannelCreateComplex(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                req.Topic,
		ParentID:             req.ParentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create ticket channel: %w", err)
	}
	return ch.ID, nil
}

// SendWelcome posts the welcome embed with the close and transcript buttons.
func (p *Platform) SendWelcome(ctx context.Context, channelID string, w ticket.Welcome) error {
	_, err := p.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "<@" + w.OwnerID + ">",
		Embeds: []*discordgo.MessageEmbed{{
			Title:       fmt.Sprintf("🎫 Ticket #%d · %s", w.Number, w.Category),
			Description: w.Message,
			Color:       handler.ColorInfo,
		}},
		Components: handler.TicketControls(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send ticket welcome: %w", err)
	}
	return nil
}

// SendMessage posts a message, optionally with a file.
func (p *Platform) SendMessage(ctx context.Context, channelID, content string, attachment *ticket.Attachment) error {
	msg := &discordgo.MessageSend{Content: content}
	if attachment != nil {
		msg.Files = []*discordgo.File{{
			Name:        attachment.Name,
			ContentType: "text/plain",
			Reader:      bytes.NewReader(attachment.Content),
		}}
	}
	if _, err := p.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendDirectMessage opens a DM channel with the user and posts there.
func (p *Platform) SendDirectMessage(ctx context.Context, userID, content string, attachment *ticket.Attachment) error {
	ch, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	return p.SendMessage(ctx, ch.ID, content, attachment)
}

// FetchHistory pages back through the channel until limit messages are read
// or the channel start is reached.
func (p *Platform) FetchHistory(ctx context.Context, channelID string, limit int) ([]ticket.Message, error) {
	var (
		out    []ticket.Message
		before string
	)
	for len(out) < limit {
		page := min(messagesPerPage, limit-len(out))
		msgs, err := p.session.ChannelMessages(channelID, page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch channel history: %w", err)
		}
		for _, m := range msgs {
			author := "unknown"
			if m.Author != nil {
				author = m.Author.Username
			}
			content := m.Content
			for _, a := range m.Attachments {
				content += " [attachment: " + a.Filename + "]"
			}
			out = append(out, ticket.Message{Author: author, Content: content, Timestamp: m.Timestamp})
		}
		if len(msgs) < page {
			break
		}
		// Discord returns newest first.
		before = msgs[len(msgs)-1].ID
	}
	return out, nil
}

// DeleteChannel deletes a channel. A channel that is already gone counts as
// deleted.
func (p *Platform) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := p.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil && !isUnknownChannel(err) {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}

// ChannelExists reports whether the channel is still there.
func (p *Platform) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	if _, err := p.session.Channel(channelID, discordgo.WithContext(ctx)); err != nil {
		if isUnknownChannel(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up channel: %w", err)
	}
	return true, nil
}

func isUnknownChannel(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
		return true
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
