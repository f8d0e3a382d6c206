// Package handler implements the bot's slash commands and button actions.
// Handlers work on a platform-neutral Request and return a Reply; the bot
// package translates both to and from Discord interactions.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/service"
)

// Embed colours.
const (
	ColorInfo    = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorError   = 0xED4245
)

// Request is one slash command or button press.
type Request struct {
	GuildID     string
	ChannelID   string
	UserID      string
	Username    string
	Command     string
	Subcommand  string
	Options     map[string]any
	CustomID    string
	RoleIDs     []string
	Permissions int64
	IsAdmin     bool
	// Users maps user ids given as options to their display names.
	Users map[string]string
}

// String returns a string option, or "" if absent.
func (r *Request) String(name string) string {
	v, _ := r.Options[name].(string)
	return v
}

// Int returns an integer option and whether it was given.
func (r *Request) Int(name string) (int64, bool) {
	switch v := r.Options[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// DisplayName returns the name of a user option, falling back to the
// caller's own name.
func (r *Request) DisplayName(userID string) string {
	if userID == r.UserID {
		return r.Username
	}
	if name, ok := r.Users[userID]; ok {
		return name
	}
	return userID
}

// Bool returns a boolean option and whether it was given.
func (r *Request) Bool(name string) (bool, bool) {
	v, ok := r.Options[name].(bool)
	return v, ok
}

// Reply is what a handler sends back.
type Reply struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Files      []*discordgo.File
	Ephemeral  bool
	// Update edits the message the button belongs to instead of posting.
	Update bool
}

// Func handles a request.
type Func func(ctx context.Context, req *Request) (*Reply, error)

// Text builds a plain reply.
func Text(format string, args ...any) *Reply {
	return &Reply{Content: fmt.Sprintf(format, args...)}
}

// Private builds a reply only the caller sees.
func Private(format string, args ...any) *Reply {
	return &Reply{Content: fmt.Sprintf(format, args...), Ephemeral: true}
}

// Embed builds a reply carrying one embed.
func Embed(e *discordgo.MessageEmbed) *Reply {
	return &Reply{Embeds: []*discordgo.MessageEmbed{e}}
}

// ErrorReply turns a handler error into what the user sees. Precondition
// failures carry their own message; infrastructure failures are generic.
func ErrorReply(err error) *Reply {
	var cd *service.CooldownError
	switch {
	case errors.As(err, &cd):
		return Private("⏰ Already claimed. Try again in %s.", FormatDuration(cd.Remaining))
	case apperr.IsTransient(err):
		return Private("⌛ Discord or a provider is slow right now. Please try again.")
	case apperr.IsNotFound(err), apperr.IsPrecondition(err):
		return Private("❌ %s", userMessage(err))
	default:
		return Private("❌ Something went wrong. Please try again later.")
	}
}

// userMessage strips the operation prefix of a tagged error.
func userMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		err = ae.Err
	}
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// FormatDuration renders a cooldown like "1h 5m" or "42s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm %ds", minutes, int(d.Seconds())%60)
	}
}

// splitCustomID splits "prefix:a:b" into its parts.
func splitCustomID(id string) []string {
	return strings.Split(id, ":")
}

func mention(userID string) string {
	return "<@" + userID + ">"
}
