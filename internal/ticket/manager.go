// Package ticket manages private support channels: opening them under a
// per-user cap, closing them exactly once with a transcript, and keeping
// per-guild counters.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/guildconfig"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/pkg/lock"
	"arsenal-bot/internal/repository"
)

// Ticket errors.
var (
	ErrTicketsDisabled  = errors.New("tickets are disabled in this server")
	ErrTooManyOpen      = errors.New("open ticket limit reached")
	ErrCategoryMissing  = errors.New("ticket category channel is not configured or no longer exists")
	ErrUnknownCategory  = errors.New("unknown ticket category")
	ErrTicketClosed     = errors.New("ticket is already closed")
	ErrNotTicketChannel = errors.New("this channel is not a ticket")
)

// Repository persists tickets.
type Repository interface {
	NextNumber(ctx context.Context, guildID string) (int, error)
	Create(ctx context.Context, t *model.Ticket) error
	Get(ctx context.Context, guildID string, number int) (*model.Ticket, error)
	GetByChannel(ctx context.Context, channelID string) (*model.Ticket, error)
	CountOpenByOwner(ctx context.Context, guildID, ownerID string) (int, error)
	MarkClosed(ctx context.Context, id int64, closedBy, reason string, at time.Time) error
	IncrementMessages(ctx context.Context, channelID string) error
	Stats(ctx context.Context, guildID string) (*model.TicketStats, error)
}

// ConfigSource provides per-guild ticket settings.
type ConfigSource interface {
	Get(ctx context.Context, guildID string) (*guildconfig.Config, error)
}

// Options tune the manager.
type Options struct {
	// CallTimeout bounds every Platform call.
	CallTimeout time.Duration
	// DeleteDelay is how long a closed channel stays before deletion.
	DeleteDelay time.Duration
	// HistoryLimit caps the messages fetched for a transcript.
	HistoryLimit int
}

// Manager runs the ticket lifecycle.
type Manager struct {
	repo     Repository
	platform Platform
	configs  ConfigSource
	opts     Options
	locks    *lock.KeyLock[string]
	now      func() time.Time
	schedule func(time.Duration, func())
	pending  sync.WaitGroup
}

// NewManager creates a ticket Manager.
func NewManager(repo Repository, platform Platform, configs ConfigSource, opts Options) *Manager {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	return &Manager{
		repo:     repo,
		platform: platform,
		configs:  configs,
		opts:     opts,
		locks:    lock.New[string](),
		now:      time.Now,
		schedule: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

func (m *Manager) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opts.CallTimeout)
}

// platformErr tags a failed outbound call; timeouts are worth retrying.
func platformErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Transient(op, err)
	}
	return apperr.Infra(op, err)
}

func ticketKey(guildID string, number int) string {
	return "ticket:" + guildID + ":" + strconv.Itoa(number)
}

// Create opens a ticket for requester in the category tagged tag. An empty
// tag picks the guild's first category.
func (m *Manager) Create(ctx context.Context, guildID, tag, requesterID string) (*model.Ticket, error) {
	const op = "ticket.create"

	cfg, err := m.configs.Get(ctx, guildID)
	if err != nil {
		return nil, apperr.Infra(op, err)
	}
	if !cfg.TicketsEnabled {
		return nil, apperr.Precondition(op, ErrTicketsDisabled)
	}

	var category guildconfig.Category
	switch {
	case tag == "" && len(cfg.Categories) > 0:
		category = cfg.Categories[0]
	default:
		c, ok := cfg.Category(tag)
		if !ok {
			return nil, apperr.Precondition(op, fmt.Errorf("%w: %q", ErrUnknownCategory, tag))
		}
		category = c
	}

	if cfg.TicketCategoryID == "" {
		return nil, apperr.Precondition(op, ErrCategoryMissing)
	}
	callCtx, cancel := m.callCtx(ctx)
	exists, err := m.platform.ChannelExists(callCtx, cfg.TicketCategoryID)
	cancel()
	if err != nil {
		return nil, platformErr(op, err)
	}
	if !exists {
		return nil, apperr.Precondition(op, ErrCategoryMissing)
	}

	// Cap check and insert must not interleave for one requester
	ownerKey := "owner:" + guildID + ":" + requesterID
	m.locks.Lock(ownerKey)
	defer m.locks.Unlock(ownerKey)

	open, err := m.repo.CountOpenByOwner(ctx, guildID, requesterID)
	if err != nil {
		return nil, apperr.Infra(op, err)
	}
	if open >= cfg.MaxOpenTickets {
		return nil, apperr.Precondition(op, fmt.Errorf("%w: %d of %d", ErrTooManyOpen, open, cfg.MaxOpenTickets))
	}

	number, err := m.repo.NextNumber(ctx, guildID)
	if err != nil {
		return nil, apperr.Infra(op, err)
	}

	callCtx, cancel = m.callCtx(ctx)
	channelID, err := m.platform.CreatePrivateChannel(callCtx, ChannelRequest{
		GuildID:        guildID,
		ParentID:       cfg.TicketCategoryID,
		Name:           fmt.Sprintf("ticket-%04d-%s", number, category.Tag),
		Topic:          fmt.Sprintf("Ticket #%d (%s) for %s", number, category.Label, requesterID),
		OwnerID:        requesterID,
		SupportRoleIDs: cfg.SupportRoleIDs,
	})
	cancel()
	if err != nil {
		return nil, platformErr(op, err)
	}

	t := &model.Ticket{
		GuildID:   guildID,
		Number:    number,
		OwnerID:   requesterID,
		ChannelID: channelID,
		Category:  category.Tag,
		Status:    model.TicketOpen,
		CreatedAt: m.now(),
	}
	if err := m.repo.Create(ctx, t); err != nil {
		// Do not leave an orphan channel behind
		callCtx, cancel := m.callCtx(context.WithoutCancel(ctx))
		if delErr := m.platform.DeleteChannel(callCtx, channelID); delErr != nil {
			log.Warn().Err(delErr).Str("channel_id", channelID).Msg("Failed to remove channel of unsaved ticket")
		}
		cancel()
		return nil, apperr.Infra(op, err)
	}

	callCtx, cancel = m.callCtx(ctx)
	err = m.platform.SendWelcome(callCtx, channelID, Welcome{
		Number:   number,
		OwnerID:  requesterID,
		Category: category.Label,
		Message:  cfg.WelcomeMessage,
	})
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Int("ticket", number).Msg("Failed to post ticket welcome")
	}

	m.audit(ctx, cfg, fmt.Sprintf("🎫 Ticket #%d opened by <@%s> (%s)", number, requesterID, category.Label))

	log.Info().
		Str("guild_id", guildID).
		Int64("ticket_id", t.ID).
		Int("number", number).
		Str("user_id", requesterID).
		Str("category", category.Tag).
		Msg("Ticket opened")
	return t, nil
}

// Close closes an open ticket: the record is marked closed, the transcript
// is sent to the owner and the transcript channel, and the channel is
// deleted after the configured delay. Closing a closed ticket fails with
// ErrTicketClosed and has no side effects.
func (m *Manager) Close(ctx context.Context, guildID string, number int, closerID, reason string) (*model.Ticket, error) {
	const op = "ticket.close"

	key := ticketKey(guildID, number)
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	t, err := m.repo.Get(ctx, guildID, number)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperr.NotFound(op, err)
		}
		return nil, apperr.Infra(op, err)
	}
	if !t.IsOpen() {
		return nil, apperr.Precondition(op, ErrTicketClosed)
	}

	closedAt := m.now()
	// The conditional update is the claim: whoever flips the row does the
	// delivery and deletion.
	if err := m.repo.MarkClosed(ctx, t.ID, closerID, reason, closedAt); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperr.Precondition(op, ErrTicketClosed)
		}
		return nil, apperr.Infra(op, err)
	}
	t.Status = model.TicketClosed
	t.ClosedAt = &closedAt
	t.ClosedBy = &closerID
	t.CloseReason = &reason

	cfg, err := m.configs.Get(ctx, guildID)
	if err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Msg("Failed to load guild config while closing ticket")
		cfg = guildconfig.Default(guildID, guildconfig.MinOpenTickets)
	}

	transcript, err := m.Transcript(ctx, t)
	if err != nil {
		log.Warn().Err(err).Int64("ticket_id", t.ID).Msg("Failed to build transcript")
		transcript = "(transcript unavailable)\n"
	}
	file := &Attachment{Name: fmt.Sprintf("ticket-%04d.txt", number), Content: []byte(transcript)}

	summary := fmt.Sprintf("Your ticket #%d was closed by <@%s>.", number, closerID)
	if reason != "" {
		summary += " Reason: " + reason
	}
	callCtx, cancel := m.callCtx(ctx)
	if err := m.platform.SendDirectMessage(callCtx, t.OwnerID, summary, file); err != nil {
		// Owners with closed DMs are common
		log.Debug().Err(err).Str("user_id", t.OwnerID).Msg("Could not DM transcript")
	}
	cancel()

	if cfg.TranscriptChannelID != "" {
		callCtx, cancel := m.callCtx(ctx)
		if err := m.platform.SendMessage(callCtx, cfg.TranscriptChannelID, fmt.Sprintf("Transcript of ticket #%d", number), file); err != nil {
			log.Warn().Err(err).Str("channel_id", cfg.TranscriptChannelID).Msg("Failed to post transcript")
		}
		cancel()
	}

	m.scheduleDelete(t.ChannelID)

	audit := fmt.Sprintf("🔒 Ticket #%d closed by <@%s>", number, closerID)
	if reason != "" {
		audit += ": " + reason
	}
	m.audit(ctx, cfg, audit)

	log.Info().
		Str("guild_id", guildID).
		Int64("ticket_id", t.ID).
		Int("number", number).
		Str("closed_by", closerID).
		Msg("Ticket closed")
	return t, nil
}

// CloseByChannel closes the ticket bound to channelID.
func (m *Manager) CloseByChannel(ctx context.Context, channelID, closerID, reason string) (*model.Ticket, error) {
	t, err := m.ByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return m.Close(ctx, t.GuildID, t.Number, closerID, reason)
}

func (m *Manager) scheduleDelete(channelID string) {
	m.pending.Add(1)
	m.schedule(m.opts.DeleteDelay, func() {
		defer m.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.CallTimeout)
		defer cancel()
		if err := m.platform.DeleteChannel(ctx, channelID); err != nil {
			log.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to delete ticket channel")
		}
	})
}

// Wait blocks until every scheduled channel deletion has run.
func (m *Manager) Wait() {
	m.pending.Wait()
}

func (m *Manager) audit(ctx context.Context, cfg *guildconfig.Config, line string) {
	if cfg.LogChannelID == "" {
		return
	}
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	if err := m.platform.SendMessage(callCtx, cfg.LogChannelID, line, nil); err != nil {
		log.Warn().Err(err).Str("channel_id", cfg.LogChannelID).Msg("Failed to write ticket audit log")
	}
}

// Transcript renders the ticket channel's history.
func (m *Manager) Transcript(ctx context.Context, t *model.Ticket) (string, error) {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	msgs, err := m.platform.FetchHistory(callCtx, t.ChannelID, m.opts.HistoryLimit)
	if err != nil {
		return "", platformErr("ticket.transcript", err)
	}
	return FormatTranscript(msgs), nil
}

// ByChannel returns the ticket bound to a channel.
func (m *Manager) ByChannel(ctx context.Context, channelID string) (*model.Ticket, error) {
	t, err := m.repo.GetByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperr.NotFound("ticket.by_channel", ErrNotTicketChannel)
		}
		return nil, apperr.Infra("ticket.by_channel", err)
	}
	return t, nil
}

// CountMessage bumps the message counter if channelID hosts an open ticket.
func (m *Manager) CountMessage(ctx context.Context, channelID string) error {
	if err := m.repo.IncrementMessages(ctx, channelID); err != nil {
		return apperr.Infra("ticket.count_message", err)
	}
	return nil
}

// Stats returns a guild's ticket counters.
func (m *Manager) Stats(ctx context.Context, guildID string) (*model.TicketStats, error) {
	stats, err := m.repo.Stats(ctx, guildID)
	if err != nil {
		return nil, apperr.Infra("ticket.stats", err)
	}
	return stats, nil
}
