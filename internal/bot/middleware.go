package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/handler"
)

// ErrAdminOnly is returned to non-admins running an admin command.
var ErrAdminOnly = errors.New("you need the Manage Server permission to do that")

// ErrBotAdminOnly is returned to anyone but a configured bot admin.
var ErrBotAdminOnly = errors.New("only bot admins can do that")

// ErrPanic is returned when a handler panics.
var ErrPanic = errors.New("handler panicked")

// Middleware wraps a handler.
type Middleware func(handler.Func) handler.Func

// Chain applies middleware so the first one runs outermost.
func Chain(fn handler.Func, mws ...Middleware) handler.Func {
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](fn)
	}
	return fn
}

// RecoveryMiddleware turns a panicking handler into an error.
func RecoveryMiddleware() Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, req *handler.Request) (reply *handler.Reply, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("command", req.Command).
						Str("custom_id", req.CustomID).
						Msg("Recovered from panic in handler")
					reply, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// LoggingMiddleware logs every request with its outcome and latency.
func LoggingMiddleware() Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, req *handler.Request) (*handler.Reply, error) {
			start := time.Now()
			reply, err := next(ctx, req)

			event := log.Debug()
			if err != nil {
				switch apperr.KindOf(err) {
				case apperr.KindNotFound, apperr.KindPrecondition:
					event = log.Info().Err(err)
				default:
					event = log.Error().Err(err)
				}
			}
			event.
				Str("user_id", req.UserID).
				Str("guild_id", req.GuildID).
				Str("channel_id", req.ChannelID).
				Str("command", req.Command).
				Str("subcommand", req.Subcommand).
				Str("custom_id", req.CustomID).
				Dur("took", time.Since(start)).
				Msg("Handled interaction")
			return reply, err
		}
	}
}

// AdminMiddleware only lets bot admins and members with Manage Server or
// Administrator through.
func AdminMiddleware() Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, req *handler.Request) (*handler.Reply, error) {
			if !req.IsAdmin {
				log.Warn().
					Str("user_id", req.UserID).
					Str("guild_id", req.GuildID).
					Str("command", req.Command).
					Msg("Non-admin attempted admin command")
				return nil, apperr.Precondition("bot.admin", ErrAdminOnly)
			}
			return next(ctx, req)
		}
	}
}

// BotAdminMiddleware only lets configured bot admins through, whatever their
// guild permissions.
func BotAdminMiddleware(listed func(userID string) bool) Middleware {
	return func(next handler.Func) handler.Func {
		return func(ctx context.Context, req *handler.Request) (*handler.Reply, error) {
			if listed == nil || !listed(req.UserID) {
				log.Warn().
					Str("user_id", req.UserID).
					Str("command", req.Command).
					Msg("Non bot-admin attempted bot-admin command")
				return nil, apperr.Precondition("bot.admin", ErrBotAdminOnly)
			}
			return next(ctx, req)
		}
	}
}

// IsAdmin reports whether a member may run admin commands: listed bot
// admins, or anyone holding Manage Server or Administrator in the guild.
func IsAdmin(listed func(userID string) bool, userID string, permissions int64) bool {
	if listed != nil && listed(userID) {
		return true
	}
	return permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
}
