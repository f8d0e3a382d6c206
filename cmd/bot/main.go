// Package main is the entry point for the Arsenal Discord bot and its
// webpanel.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"arsenal-bot/internal/bot"
	"arsenal-bot/internal/config"
	"arsenal-bot/internal/conversion"
	"arsenal-bot/internal/game"
	"arsenal-bot/internal/game/blackjack"
	"arsenal-bot/internal/game/poker"
	"arsenal-bot/internal/game/roulette"
	"arsenal-bot/internal/game/session"
	"arsenal-bot/internal/guildconfig"
	"arsenal-bot/internal/pkg/db"
	"arsenal-bot/internal/pkg/lock"
	"arsenal-bot/internal/repository"
	"arsenal-bot/internal/service"
	"arsenal-bot/internal/ticket"
	"arsenal-bot/internal/webpanel"
)

func main() {
	configDir := pflag.StringP("config", "c", "config", "directory holding config.yaml")
	debug := pflag.Bool("debug", false, "log at debug level")
	pflag.Parse()

	// Log lines go to the console and to the webpanel's live stream.
	hub := webpanel.NewLogHub(webpanel.DefaultLogBacklog)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
		zerolog.ConsoleWriter{Out: hub, NoColor: true, TimeFormat: time.RFC3339},
	))

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	guilds, err := guildconfig.Open(ctx, cfg.GuildStore.Path, cfg.Tickets.DefaultMaxOpen)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.GuildStore.Path).Msg("Failed to open guild config store")
	}
	defer func() {
		if err := guilds.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close guild config store")
		}
	}()

	walletRepo := repository.NewWalletRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	ticketRepo := repository.NewTicketRepository(dbPool.Pool)
	conversionRepo := repository.NewConversionRepository(dbPool.Pool)
	profileRepo := repository.NewProfileRepository(dbPool.Pool)

	economy := service.NewEconomyService(walletRepo, txRepo, service.Rewards{
		Hourly: cfg.Economy.HourlyReward,
		Daily:  cfg.Economy.DailyReward,
		Weekly: cfg.Economy.WeeklyReward,
	}, lock.New[string]())

	bjSessions := session.NewMemoryStore[*blackjack.Hand]()
	pokerSessions := session.NewMemoryStore[*poker.Hand]()
	games := game.NewRegistry()
	if err := games.Register(roulette.New()); err != nil {
		log.Fatal().Err(err).Msg("Failed to register roulette")
	}
	casino := service.NewCasinoService(economy,
		blackjack.New(bjSessions), poker.New(pokerSessions),
		games, cfg.Casino.MinBet, cfg.Casino.MaxBet)
	log.Info().
		Int("game_count", games.Count()).
		Strs("games", games.Commands()).
		Msg("Games registered")

	if idle := cfg.Casino.SessionIdle; idle > 0 {
		go sweepSessions(ctx, idle, bjSessions, pokerSessions)
	}

	dg, err := bot.NewSession(cfg.Bot.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Discord session")
	}

	tickets := ticket.NewManager(ticketRepo, bot.NewPlatform(dg), guilds, ticket.Options{
		CallTimeout:  cfg.Tickets.CallTimeout,
		DeleteDelay:  cfg.Tickets.DeleteDelay,
		HistoryLimit: cfg.Tickets.HistoryLimit,
	})

	converter := conversion.NewService(conversionRepo, economy, payoutProvider(cfg.Conversion), conversion.Settings{
		CoinValue:       mustDecimal("conversion.coin_value_eur", cfg.Conversion.CoinValueEUR),
		CommissionRate:  mustDecimal("conversion.commission_rate", cfg.Conversion.CommissionRate),
		MinCoins:        cfg.Conversion.MinCoins,
		Timeout:         cfg.Conversion.ProviderTimeout,
		RefundOnFailure: cfg.Conversion.RefundOnFailure,
	})

	panelDone := make(chan struct{})
	if cfg.Webpanel.Enabled {
		panel := webpanel.New(cfg.Webpanel, cfg.IsAdmin, webpanel.Deps{
			Hub:      hub,
			Casino:   casino,
			Wallets:  economy,
			Tickets:  tickets,
			Database: dbPool,
		})
		go func() {
			defer close(panelDone)
			if err := panel.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Webpanel stopped with error")
			}
		}()
	} else {
		close(panelDone)
	}

	discordBot := bot.New(dg, &bot.Dependencies{
		Config:       cfg,
		Economy:      economy,
		Casino:       casino,
		Tickets:      tickets,
		GuildConfigs: guilds,
		Converter:    converter,
		Profiles:     service.NewProfileService(profileRepo),
		Reporter:     bot.NewReporter(cfg.Bot.PanelURL, cfg.Webpanel.APIKey, cfg.Bot.ReportTimeout),
	})

	log.Info().Msg("Bot is starting...")
	if err := discordBot.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Discord")
	}

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	discordBot.Stop()
	// Pending channel deletions finish before the store closes.
	tickets.Wait()
	<-panelDone
	log.Info().Msg("Bot stopped gracefully")
}

// payoutProvider returns nil, which runs conversions as simulations, when no
// provider is configured.
func payoutProvider(cfg config.ConversionConfig) conversion.PayoutProvider {
	if cfg.ProviderURL == "" {
		log.Warn().Msg("No payout provider configured, conversions are simulated")
		return nil
	}
	return conversion.NewHTTPProvider(cfg.ProviderURL, cfg.ProviderTimeout)
}

func mustDecimal(key, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Fatal().Err(err).Str("key", key).Str("value", value).Msg("Invalid decimal setting")
	}
	return d
}

type sweeper interface {
	Sweep(maxIdle time.Duration) int
}

// sweepSessions drops idle game sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, idle time.Duration, stores ...sweeper) {
	ticker := time.NewTicker(max(idle/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, s := range stores {
				removed += s.Sweep(idle)
			}
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("Swept idle game sessions")
			}
		}
	}
}
