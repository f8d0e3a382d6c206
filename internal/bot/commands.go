package bot

import (
	"github.com/bwmarrin/discordgo"

	"arsenal-bot/internal/handler"
	"arsenal-bot/internal/textstyle"
)

var (
	minOne    = 1.0
	guildOnly = false
	// Hides admin commands from members lacking Manage Server.
	adminPerms int64 = discordgo.PermissionManageServer
)

func stringOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: desc, Required: required}
}

func intOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: name, Description: desc, Required: required, MinValue: &minOne}
}

func userOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: name, Description: desc, Required: required}
}

func subcommand(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionSubCommand, Name: name, Description: desc, Options: opts}
}

func styleChoices() []*discordgo.ApplicationCommandOptionChoice {
	styles := textstyle.Styles()
	out := make([]*discordgo.ApplicationCommandOptionChoice, len(styles))
	for i, s := range styles {
		out[i] = &discordgo.ApplicationCommandOptionChoice{Name: string(s), Value: string(s)}
	}
	return out
}

func helpChoices() []*discordgo.ApplicationCommandOptionChoice {
	cats := handler.HelpCategories()
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(cats)+1)
	out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: "menu", Value: "menu"})
	for _, c := range cats {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: c, Value: c})
	}
	return out
}

// Commands returns every slash command the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	styleOpt := stringOpt("style", "Text style", false)
	styleOpt.Choices = styleChoices()
	configStyle := stringOpt("style", "Text style", true)
	configStyle.Choices = styleChoices()
	helpOpt := stringOpt("category", "Help category", false)
	helpOpt.Choices = helpChoices()
	categoryAction := stringOpt("action", "Add or remove", false)
	categoryAction.Choices = []*discordgo.ApplicationCommandOptionChoice{
		{Name: "add", Value: "add"},
		{Name: "remove", Value: "remove"},
	}
	maxOpen := intOpt("max_open", "Open tickets allowed per member", false)

	return []*discordgo.ApplicationCommand{
		{Name: "help", Description: "Show the command list", Options: []*discordgo.ApplicationCommandOption{helpOpt}},

		{Name: "balance", Description: "Show a wallet", Options: []*discordgo.ApplicationCommandOption{userOpt("user", "Member to look up", false)}},
		{Name: "hourly", Description: "Claim your hourly reward"},
		{Name: "daily", Description: "Claim your daily reward"},
		{Name: "weekly", Description: "Claim your weekly reward"},
		{Name: "pay", Description: "Send coins to another member", Options: []*discordgo.ApplicationCommandOption{
			userOpt("user", "Recipient", true),
			intOpt("amount", "Coins to send", true),
		}},
		{Name: "top", Description: "Richest members"},
		{Name: "history", Description: "Your latest transactions"},
		{Name: "give", Description: "Add or remove coins (bot admins)", DefaultMemberPermissions: &adminPerms, Options: []*discordgo.ApplicationCommandOption{
			userOpt("user", "Wallet owner", true),
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Coins to add, negative to remove", Required: true},
			stringOpt("reason", "Shown in the transaction history", false),
		}},

		{Name: "blackjack", Description: "Play blackjack against the dealer", Options: []*discordgo.ApplicationCommandOption{intOpt("bet", "Coins to bet", true)}},
		{Name: "poker", Description: "Play Jacks or Better video poker", Options: []*discordgo.ApplicationCommandOption{intOpt("bet", "Coins to bet", true)}},
		{Name: "roulette", Description: "Spin the roulette wheel", Options: []*discordgo.ApplicationCommandOption{
			intOpt("bet", "Coins to bet", true),
			stringOpt("choice", "red, black, even, odd, low, high, dozen1-3 or number:N", true),
		}},

		{Name: "ticket", Description: "Support tickets", DMPermission: &guildOnly, Options: []*discordgo.ApplicationCommandOption{
			subcommand("setup", "Configure the ticket system",
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Turn tickets on or off"},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionChannel, Name: "category", Description: "Category channel that holds tickets", ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory}},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionRole, Name: "support_role", Description: "Role that can see every ticket"},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionChannel, Name: "log_channel", Description: "Channel for the ticket audit log", ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText}},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionChannel, Name: "transcript_channel", Description: "Channel receiving transcripts", ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText}},
				maxOpen,
				stringOpt("welcome", "Welcome message posted in new tickets", false),
			),
			subcommand("category", "Add or remove a panel category",
				stringOpt("tag", "Short id such as billing", true),
				categoryAction,
				stringOpt("label", "Button label", false),
				stringOpt("emoji", "Button emoji", false),
			),
			subcommand("panel", "Post the ticket panel in this channel"),
			subcommand("open", "Open a support ticket", stringOpt("category", "Category tag", false)),
			subcommand("close", "Close this ticket", stringOpt("reason", "Why the ticket is closed", false)),
			subcommand("transcript", "Download this ticket's transcript"),
			subcommand("stats", "Ticket counts for this server"),
		}},

		{Name: "profile", Description: "Profile customisation", Options: []*discordgo.ApplicationCommandOption{
			subcommand("config", "Set your style, bio and colour",
				configStyle,
				stringOpt("bio", "A short bio", false),
				stringOpt("accent", "Accent colour like #5865F2", false),
			),
			subcommand("view", "Show a profile", userOpt("user", "Member to show", false)),
			subcommand("test_style", "Preview text styles", styleOpt, stringOpt("text", "Text to render", false)),
			subcommand("reset", "Remove your customisation"),
		}},

		{Name: "convert", Description: "Convert ArsenalCoins to euros", Options: []*discordgo.ApplicationCommandOption{
			subcommand("quote", "Price a conversion", intOpt("amount", "Coins to convert", true)),
			subcommand("amount", "Convert coins", intOpt("amount", "Coins to convert", true), stringOpt("wallet", "Payout wallet; empty runs a simulation", false)),
			subcommand("history", "Your conversions"),
		}},
	}
}
