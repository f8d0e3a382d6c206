// Package bot connects the command handlers to Discord: it opens the
// gateway session, registers slash commands, routes interactions and keeps
// the webpanel informed.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"arsenal-bot/internal/config"
	"arsenal-bot/internal/handler"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/webpanel"
)

const (
	// ackAfter is how long a handler may run before the interaction is
	// deferred; Discord drops unanswered interactions after three seconds.
	ackAfter = 2 * time.Second
	// interactionTimeout bounds one handler run, deferred or not.
	interactionTimeout = 30 * time.Second
	// replyTimeout bounds each Discord call made outside a handler.
	replyTimeout = 10 * time.Second
	// serverPushDelay batches the guild create burst that follows a connect.
	serverPushDelay = 3 * time.Second
)

// Intents the bot needs: guild and channel events, and message content
// for ticket transcripts.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// MessageCounter counts messages posted in ticket channels.
type MessageCounter interface {
	CountMessage(ctx context.Context, channelID string) error
}

// TicketService is the ticket lifecycle plus message counting.
type TicketService interface {
	handler.Tickets
	MessageCounter
}

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Config       *config.Config
	Economy      handler.Economy
	Casino       handler.Casino
	Tickets      TicketService
	GuildConfigs handler.GuildConfigs
	Converter    handler.Converter
	Profiles     handler.Profiles
	Reporter     *Reporter
}

// Bot wraps the discordgo session with application dependencies.
type Bot struct {
	session  *discordgo.Session
	cfg      *config.Config
	router   *Router
	tickets  MessageCounter
	reporter *Reporter

	replyTimeout time.Duration
	inflight     sync.WaitGroup

	pushMu    sync.Mutex
	pushTimer *time.Timer
}

// NewSession creates a discordgo session with the bot's intents. It is not
// opened until Start.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = Intents
	return s, nil
}

// New creates a Bot on session.
func New(session *discordgo.Session, deps *Dependencies) *Bot {
	b := &Bot{
		session:  session,
		cfg:      deps.Config,
		router:   NewRouter(RecoveryMiddleware(), LoggingMiddleware()),
		tickets:  deps.Tickets,
		reporter: deps.Reporter,

		replyTimeout: replyTimeout,
	}
	b.registerHandlers(deps)
	return b
}

// Router exposes the interaction router.
func (b *Bot) Router() *Router {
	return b.router
}

// registerHandlers registers all command and button handlers.
func (b *Bot) registerHandlers(deps *Dependencies) {
	r := b.router
	admin := AdminMiddleware()

	r.Command("help", handler.HandleHelp, Ephemeral())

	// Economy
	economy := handler.NewEconomyHandler(deps.Economy)
	r.Command("balance", economy.HandleBalance)
	r.Command("hourly", economy.HandleClaim(model.RewardHourly))
	r.Command("daily", economy.HandleClaim(model.RewardDaily))
	r.Command("weekly", economy.HandleClaim(model.RewardWeekly))
	r.Command("pay", economy.HandlePay)
	r.Command("top", economy.HandleTop)
	r.Command("history", economy.HandleHistory, Ephemeral())
	r.Command("give", Chain(economy.HandleGive, BotAdminMiddleware(deps.Config.IsAdmin)), Ephemeral())

	// Casino
	casino := handler.NewCasinoHandler(deps.Casino)
	r.Command("blackjack", casino.HandleBlackjack)
	r.Command("poker", casino.HandlePoker)
	r.Command("roulette", casino.HandleRoulette)
	r.Component(handler.BlackjackHitPrefix, casino.HandleBlackjackAction, Updates())
	r.Component(handler.BlackjackStandPrefix, casino.HandleBlackjackAction, Updates())
	r.Component(handler.PokerHoldPrefix, casino.HandlePokerAction, Updates())
	r.Component(handler.PokerDrawPrefix, casino.HandlePokerAction, Updates())

	// Tickets
	tickets := handler.NewTicketHandler(deps.Tickets, deps.GuildConfigs)
	r.Command("ticket setup", Chain(tickets.HandleSetup, admin), Ephemeral())
	r.Command("ticket category", Chain(tickets.HandleCategory, admin), Ephemeral())
	r.Command("ticket panel", Chain(tickets.HandlePanel, admin))
	r.Command("ticket open", tickets.HandleOpen, Ephemeral())
	r.Command("ticket close", tickets.HandleClose)
	r.Command("ticket transcript", tickets.HandleTranscript, Ephemeral())
	r.Command("ticket stats", tickets.HandleStats)
	r.Component(handler.TicketOpenPrefix, tickets.HandleOpen, Ephemeral())
	r.Component(handler.TicketClose, tickets.HandleClose)
	r.Component(handler.TicketTranscript, tickets.HandleTranscript, Ephemeral())

	// Profile and conversion
	r.Command("profile", handler.NewProfileHandler(deps.Profiles).Handle)
	r.Command("convert", handler.NewConvertHandler(deps.Converter).Handle, Ephemeral())
}

// Start opens the gateway connection. Commands are registered once the
// session is ready.
func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onMessageCreate)

	log.Info().Msg("Starting bot...")
	return b.session.Open()
}

// Stop closes the gateway and waits for running handlers.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	if err := b.session.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close Discord session")
	}
	b.pushMu.Lock()
	if b.pushTimer != nil {
		b.pushTimer.Stop()
	}
	b.pushMu.Unlock()
	b.inflight.Wait()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("Discord session ready")

	appID := b.cfg.Bot.ApplicationID
	if appID == "" {
		appID = r.User.ID
	}
	var cmds []*discordgo.ApplicationCommand
	err := b.withReplyContext(func(ctx context.Context) error {
		var err error
		cmds, err = s.ApplicationCommandBulkOverwrite(appID, b.cfg.Bot.DevGuildID, Commands(), discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to register slash commands")
		return
	}
	log.Info().Int("count", len(cmds)).Str("guild_id", b.cfg.Bot.DevGuildID).Msg("Slash commands registered")
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	log.Debug().Str("guild_id", g.ID).Str("guild", g.Name).Msg("Guild available")
	b.scheduleServerPush()
}

func (b *Bot) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	log.Info().Str("guild_id", g.ID).Msg("Guild removed")
	b.scheduleServerPush()
}

// scheduleServerPush sends the guild list once the burst of guild events
// has settled.
func (b *Bot) scheduleServerPush() {
	if b.reporter == nil {
		return
	}
	b.pushMu.Lock()
	defer b.pushMu.Unlock()
	if b.pushTimer != nil {
		b.pushTimer.Stop()
	}
	b.pushTimer = time.AfterFunc(serverPushDelay, func() {
		b.reporter.ReportServers(context.Background(), b.servers())
	})
}

func (b *Bot) servers() []webpanel.ServerInfo {
	if b.session.State == nil {
		return nil
	}
	b.session.State.RLock()
	defer b.session.State.RUnlock()

	out := make([]webpanel.ServerInfo, 0, len(b.session.State.Guilds))
	for _, g := range b.session.State.Guilds {
		if g.Unavailable {
			continue
		}
		out = append(out, webpanel.ServerInfo{
			ID:          g.ID,
			Name:        g.Name,
			MemberCount: g.MemberCount,
			IconURL:     g.IconURL("64"),
		})
	}
	return out
}

func (b *Bot) guildName(guildID string) string {
	if guildID == "" || b.session.State == nil {
		return ""
	}
	g, err := b.session.State.Guild(guildID)
	if err != nil {
		return ""
	}
	return g.Name
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || b.tickets == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.tickets.CountMessage(ctx, m.ChannelID); err != nil {
		log.Debug().Err(err).Str("channel_id", m.ChannelID).Msg("Failed to count ticket message")
	}
}

type outcome struct {
	reply *handler.Reply
	err   error
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand && i.Type != discordgo.InteractionMessageComponent {
		return
	}
	b.inflight.Add(1)
	defer b.inflight.Done()

	req := newRequest(i.Interaction, b.cfg.IsAdmin)
	component := i.Type == discordgo.InteractionMessageComponent

	rt, ok := b.router.Lookup(req)
	if !ok {
		log.Warn().Str("command", req.Command).Str("custom_id", req.CustomID).Msg("Unroutable interaction")
		b.respond(s, i.Interaction, handler.Private("❌ Unknown command."))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		reply, err := rt.Fn(ctx, req)
		done <- outcome{reply: reply, err: err}
	}()

	timer := time.NewTimer(ackAfter)
	defer timer.Stop()

	var res outcome
	deferred := false
	select {
	case res = <-done:
	case <-timer.C:
		if err := b.withReplyContext(func(ctx context.Context) error {
			return s.InteractionRespond(i.Interaction, deferral(rt, component), discordgo.WithContext(ctx))
		}); err != nil {
			log.Error().Err(err).Str("command", req.Command).Msg("Failed to defer interaction")
		}
		deferred = true
		res = <-done
	}

	reply := res.reply
	if res.err != nil {
		reply = handler.ErrorReply(res.err)
	}
	if reply == nil {
		reply = handler.Private("✅ Done.")
	}

	if deferred {
		b.complete(s, i.Interaction, rt, reply)
	} else {
		b.respond(s, i.Interaction, reply)
	}

	if !component {
		b.report(req, res.err)
	}
}

// withReplyContext runs one Discord call under the reply timeout. The
// handler's context may already be spent by then.
func (b *Bot) withReplyContext(call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.replyTimeout)
	defer cancel()
	return call(ctx)
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.Interaction, reply *handler.Reply) {
	if err := b.withReplyContext(func(ctx context.Context) error {
		return s.InteractionRespond(i, response(reply), discordgo.WithContext(ctx))
	}); err != nil {
		log.Error().Err(err).Str("interaction_id", i.ID).Msg("Failed to respond to interaction")
	}
}

// complete finishes a deferred interaction. A reply of a different kind
// than the deferral, such as an error answering a button that edits its
// message, goes out as a follow-up instead.
func (b *Bot) complete(s *discordgo.Session, i *discordgo.Interaction, rt Route, reply *handler.Reply) {
	var err error
	if reply.Update == rt.Update && reply.Ephemeral == rt.Ephemeral {
		err = b.withReplyContext(func(ctx context.Context) error {
			_, err := s.InteractionResponseEdit(i, webhookEdit(reply), discordgo.WithContext(ctx))
			return err
		})
	} else {
		if !rt.Update {
			// Drop the "thinking" placeholder the reply cannot replace.
			if delErr := b.withReplyContext(func(ctx context.Context) error {
				return s.InteractionResponseDelete(i, discordgo.WithContext(ctx))
			}); delErr != nil {
				log.Debug().Err(delErr).Str("interaction_id", i.ID).Msg("Failed to delete deferred placeholder")
			}
		}
		params := &discordgo.WebhookParams{
			Content:    reply.Content,
			Embeds:     reply.Embeds,
			Components: reply.Components,
			Files:      reply.Files,
		}
		if reply.Ephemeral {
			params.Flags = discordgo.MessageFlagsEphemeral
		}
		err = b.withReplyContext(func(ctx context.Context) error {
			_, err := s.FollowupMessageCreate(i, true, params, discordgo.WithContext(ctx))
			return err
		})
	}
	if err != nil {
		log.Error().Err(err).Str("interaction_id", i.ID).Msg("Failed to complete deferred interaction")
	}
}

func (b *Bot) report(req *handler.Request, err error) {
	if b.reporter == nil {
		return
	}
	name := req.Command
	if req.Subcommand != "" {
		name += " " + req.Subcommand
	}
	entry := webpanel.CommandEntry{
		Command:   name,
		UserID:    req.UserID,
		Username:  req.Username,
		GuildID:   req.GuildID,
		GuildName: b.guildName(req.GuildID),
		Success:   err == nil,
		At:        time.Now().UTC(),
	}
	if err != nil {
		entry.Error = handler.ErrorReply(err).Content
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.reporter.ReportCommand(context.Background(), entry)
	}()
}
