// Package guildconfig stores per-guild settings as JSON documents in SQLite.
package guildconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Limits on the per-user ticket cap.
const (
	MinOpenTickets = 1
	MaxOpenTickets = 10
)

// DefaultWelcome is posted in new ticket channels when a guild has not set one.
const DefaultWelcome = "Thanks for opening a ticket. A member of the support team will be with you shortly."

var (
	ErrInvalidMaxOpen    = errors.New("max open tickets must be between 1 and 10")
	ErrEmptyCategoryTag  = errors.New("ticket category tag cannot be empty")
	ErrDuplicateCategory = errors.New("duplicate ticket category tag")
	ErrInvalidCategory   = errors.New("ticket category tag may only contain letters, digits, - and _")
	ErrMissingGuildID    = errors.New("guild id is required")
)

// Category is one entry of a guild's ticket panel.
type Category struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
	Emoji string `json:"emoji,omitempty"`
}

// Config is the full settings document for one guild.
type Config struct {
	GuildID             string     `json:"guild_id"`
	TicketsEnabled      bool       `json:"tickets_enabled"`
	TicketCategoryID    string     `json:"ticket_category_id"`
	SupportRoleIDs      []string   `json:"support_role_ids"`
	MaxOpenTickets      int        `json:"max_open_tickets"`
	LogChannelID        string     `json:"log_channel_id"`
	TranscriptChannelID string     `json:"transcript_channel_id"`
	WelcomeMessage      string     `json:"welcome_message"`
	Categories          []Category `json:"categories"`
	HubChannelID        string     `json:"hub_channel_id"`
	CommandLogChannelID string     `json:"command_log_channel_id"`
}

// Default returns the settings a guild has before anyone configures it.
// Tickets start disabled until an admin runs setup.
func Default(guildID string, maxOpen int) *Config {
	if maxOpen < MinOpenTickets || maxOpen > MaxOpenTickets {
		maxOpen = MinOpenTickets
	}
	return &Config{
		GuildID:        guildID,
		MaxOpenTickets: maxOpen,
		WelcomeMessage: DefaultWelcome,
		Categories: []Category{
			{Tag: "support", Label: "Support", Emoji: "🎫"},
		},
	}
}

// Validate checks the document before it is saved or after it is loaded.
func (c *Config) Validate() error {
	if c.GuildID == "" {
		return ErrMissingGuildID
	}
	if c.MaxOpenTickets < MinOpenTickets || c.MaxOpenTickets > MaxOpenTickets {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxOpen, c.MaxOpenTickets)
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		tag := strings.TrimSpace(cat.Tag)
		if tag == "" {
			return ErrEmptyCategoryTag
		}
		if !validTag(tag) {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, tag)
		}
		if seen[tag] {
			return fmt.Errorf("%w: %q", ErrDuplicateCategory, tag)
		}
		seen[tag] = true
	}
	return nil
}

func validTag(tag string) bool {
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Category looks up a ticket category by tag.
func (c *Config) Category(tag string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Tag == tag {
			return cat, true
		}
	}
	return Category{}, false
}

// IsSupportRole reports whether roleID is one of the guild's support roles.
func (c *Config) IsSupportRole(roleID string) bool {
	for _, id := range c.SupportRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
