package handler

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// helpCategory is one section of /help.
type helpCategory struct {
	Title    string
	Commands [][2]string
}

var helpCategories = map[string]helpCategory{
	"economy": {
		Title: "💰 Economy",
		Commands: [][2]string{
			{"/balance [user]", "Show a wallet"},
			{"/hourly, /daily, /weekly", "Claim a timed reward"},
			{"/pay user amount", "Send coins to another member"},
			{"/top", "Richest members"},
			{"/history", "Your latest transactions"},
		},
	},
	"casino": {
		Title: "🎰 Casino",
		Commands: [][2]string{
			{"/blackjack bet", "Play a hand against the dealer"},
			{"/poker bet", "Jacks or Better video poker"},
			{"/roulette bet choice", "Bet on red, black, even, odd, low, high, a dozen or a number"},
		},
	},
	"tickets": {
		Title: "🎫 Tickets",
		Commands: [][2]string{
			{"/ticket setup", "Configure the ticket system (Manage Server)"},
			{"/ticket category", "Add or remove a ticket category (Manage Server)"},
			{"/ticket panel", "Post the ticket panel in this channel (Manage Server)"},
			{"/ticket open [category]", "Open a private support ticket"},
			{"/ticket close [reason]", "Close the ticket of this channel"},
			{"/ticket transcript", "Download this ticket's transcript"},
			{"/ticket stats", "Ticket counts for this server"},
		},
	},
	"profile": {
		Title: "🪪 Profile",
		Commands: [][2]string{
			{"/profile config style [bio] [accent]", "Choose a text style, bio and colour"},
			{"/profile view [user]", "Show a profile"},
			{"/profile test_style [style] [text]", "Preview text styles"},
			{"/profile reset", "Remove your customisation"},
		},
	},
	"convert": {
		Title: "💱 Conversion",
		Commands: [][2]string{
			{"/convert quote amount", "Price a conversion"},
			{"/convert amount amount [wallet]", "Convert coins to euros"},
			{"/convert history", "Your conversions"},
		},
	},
}

// HelpCategories returns the category keys in alphabetical order.
func HelpCategories() []string {
	keys := make([]string, 0, len(helpCategories))
	for k := range helpCategories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HandleHelp shows the help menu or a single category.
func HandleHelp(_ context.Context, req *Request) (*Reply, error) {
	name := strings.ToLower(req.String("category"))
	if name == "" || name == "menu" {
		fields := make([]*discordgo.MessageEmbedField, 0, len(helpCategories))
		for _, key := range HelpCategories() {
			c := helpCategories[key]
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   c.Title,
				Value:  "`/help " + key + "`",
				Inline: true,
			})
		}
		return &Reply{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "📖 Arsenal help",
				Description: "Pick a category to see its commands.",
				Color:       ColorInfo,
				Fields:      fields,
			}},
			Ephemeral: true,
		}, nil
	}

	c, ok := helpCategories[name]
	if !ok {
		return Private("❌ Unknown help category. Try one of: %s.", strings.Join(HelpCategories(), ", ")), nil
	}
	var b strings.Builder
	for _, cmd := range c.Commands {
		b.WriteString("`" + cmd[0] + "` · " + cmd[1] + "\n")
	}
	return &Reply{
		Embeds:    []*discordgo.MessageEmbed{{Title: c.Title, Description: b.String(), Color: ColorInfo}},
		Ephemeral: true,
	}, nil
}
