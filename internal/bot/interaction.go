package bot

import (
	"github.com/bwmarrin/discordgo"

	"arsenal-bot/internal/handler"
)

// newRequest converts an interaction into a handler request. listed reports
// configured bot admins.
func newRequest(i *discordgo.Interaction, listed func(string) bool) *handler.Request {
	req := &handler.Request{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Options:   make(map[string]any),
	}

	switch {
	case i.Member != nil && i.Member.User != nil:
		req.UserID = i.Member.User.ID
		req.Username = displayName(i.Member.User, i.Member.Nick)
		req.RoleIDs = i.Member.Roles
		req.Permissions = i.Member.Permissions
	case i.User != nil:
		req.UserID = i.User.ID
		req.Username = displayName(i.User, "")
	}
	req.IsAdmin = IsAdmin(listed, req.UserID, req.Permissions)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		req.Command = data.Name
		opts := data.Options
		if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
			req.Subcommand = opts[0].Name
			opts = opts[0].Options
		}
		for _, o := range opts {
			req.Options[o.Name] = o.Value
		}
		if data.Resolved != nil && len(data.Resolved.Users) > 0 {
			req.Users = make(map[string]string, len(data.Resolved.Users))
			for id, u := range data.Resolved.Users {
				nick := ""
				if m, ok := data.Resolved.Members[id]; ok && m != nil {
					nick = m.Nick
				}
				req.Users[id] = displayName(u, nick)
			}
		}
	case discordgo.InteractionMessageComponent:
		req.CustomID = i.MessageComponentData().CustomID
	}
	return req
}

func displayName(u *discordgo.User, nick string) string {
	switch {
	case nick != "":
		return nick
	case u.GlobalName != "":
		return u.GlobalName
	default:
		return u.Username
	}
}

// responseData converts a reply into interaction response data.
func responseData(reply *handler.Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    reply.Content,
		Embeds:     reply.Embeds,
		Components: reply.Components,
		Files:      reply.Files,
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

// response wraps a reply. Update replies edit the message of the pressed
// button.
func response(reply *handler.Reply) *discordgo.InteractionResponse {
	typ := discordgo.InteractionResponseChannelMessageWithSource
	if reply.Update {
		typ = discordgo.InteractionResponseUpdateMessage
	}
	return &discordgo.InteractionResponse{Type: typ, Data: responseData(reply)}
}

// deferral acknowledges a slow route before its reply is ready.
func deferral(rt Route, component bool) *discordgo.InteractionResponse {
	if component && rt.Update {
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	}
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if rt.Ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return resp
}

// webhookEdit converts a reply into the edit completing a deferred response.
func webhookEdit(reply *handler.Reply) *discordgo.WebhookEdit {
	edit := &discordgo.WebhookEdit{
		Content: &reply.Content,
		Embeds:  &reply.Embeds,
		Files:   reply.Files,
	}
	if reply.Components != nil {
		edit.Components = &reply.Components
	}
	return edit
}
