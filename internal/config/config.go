// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Validation errors. Secrets have no fallback values; a missing one stops startup.
var (
	ErrMissingToken       = errors.New("bot.token is required")
	ErrMissingSecretKey   = errors.New("webpanel.secret_key is required when the webpanel is enabled")
	ErrMissingAPIKey      = errors.New("webpanel.api_key is required when the webpanel is enabled")
	ErrMissingOAuthSecret = errors.New("webpanel.oauth.client_secret is required when oauth is configured")
)

// Config holds all application configuration.
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Database   DatabaseConfig   `mapstructure:"database"`
	GuildStore GuildStoreConfig `mapstructure:"guild_store"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Economy    EconomyConfig    `mapstructure:"economy"`
	Casino     CasinoConfig     `mapstructure:"casino"`
	Tickets    TicketsConfig    `mapstructure:"tickets"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Webpanel   WebpanelConfig   `mapstructure:"webpanel"`
}

// BotConfig holds Discord bot configuration.
type BotConfig struct {
	Token         string `mapstructure:"token"`
	ApplicationID string `mapstructure:"application_id"`
	// DevGuildID registers slash commands on one guild only (instant refresh).
	DevGuildID string `mapstructure:"dev_guild_id"`
	// PanelURL is where the bot reports command usage; empty disables reporting.
	PanelURL      string        `mapstructure:"panel_url"`
	ReportTimeout time.Duration `mapstructure:"report_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// GuildStoreConfig points at the SQLite file holding per-guild configuration.
type GuildStoreConfig struct {
	Path string `mapstructure:"path"`
}

// AdminConfig holds bot owner/admin ids.
type AdminConfig struct {
	IDs        []string `mapstructure:"ids"`
	CreatorIDs []string `mapstructure:"creator_ids"`
}

// EconomyConfig holds timed reward amounts.
type EconomyConfig struct {
	HourlyReward int64 `mapstructure:"hourly_reward"`
	DailyReward  int64 `mapstructure:"daily_reward"`
	WeeklyReward int64 `mapstructure:"weekly_reward"`
}

// CasinoConfig holds bet limits shared by all casino games.
type CasinoConfig struct {
	MinBet int64 `mapstructure:"min_bet"`
	MaxBet int64 `mapstructure:"max_bet"`
	// SessionIdle drops game sessions untouched for this long; 0 keeps them
	// until restart.
	SessionIdle time.Duration `mapstructure:"session_idle"`
}

// TicketsConfig holds defaults for the ticket lifecycle manager.
type TicketsConfig struct {
	DefaultMaxOpen int           `mapstructure:"default_max_open"`
	DeleteDelay    time.Duration `mapstructure:"delete_delay"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

// ConversionConfig holds ArsenalCoin conversion settings.
type ConversionConfig struct {
	CoinValueEUR    string        `mapstructure:"coin_value_eur"`
	CommissionRate  string        `mapstructure:"commission_rate"`
	MinCoins        int64         `mapstructure:"min_coins"`
	ProviderURL     string        `mapstructure:"provider_url"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	// RefundOnFailure credits the coins back when the payout fails.
	RefundOnFailure bool `mapstructure:"refund_on_failure"`
}

// WebpanelConfig holds dashboard settings.
type WebpanelConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	PublicURL  string        `mapstructure:"public_url"`
	SecretKey  string        `mapstructure:"secret_key"`
	APIKey     string        `mapstructure:"api_key"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	OAuth      OAuthConfig   `mapstructure:"oauth"`
}

// OAuthConfig holds Discord OAuth2 client settings.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory and loads .env if present.
func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., BOT_TOKEN, DATABASE_HOST, WEBPANEL_OAUTH_CLIENT_SECRET
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Secret keys are registered
// empty so AutomaticEnv can fill them; Validate rejects them if still empty.
func setDefaults(v *viper.Viper) {
	for _, key := range []string{
		"bot.token", "bot.application_id", "bot.dev_guild_id", "bot.panel_url",
		"database.password", "conversion.provider_url",
		"webpanel.public_url", "webpanel.secret_key", "webpanel.api_key",
		"webpanel.oauth.client_id", "webpanel.oauth.client_secret", "webpanel.oauth.redirect_uri",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("bot.report_timeout", "5s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arsenal")
	v.SetDefault("database.name", "arsenal")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("guild_store.path", "data/guilds.db")

	v.SetDefault("economy.hourly_reward", 50)
	v.SetDefault("economy.daily_reward", 500)
	v.SetDefault("economy.weekly_reward", 2500)

	v.SetDefault("casino.min_bet", 10)
	v.SetDefault("casino.max_bet", 10000)

	v.SetDefault("tickets.default_max_open", 1)
	v.SetDefault("tickets.delete_delay", "10s")
	v.SetDefault("tickets.call_timeout", "10s")
	v.SetDefault("tickets.history_limit", 100)

	v.SetDefault("conversion.coin_value_eur", "0.01")
	v.SetDefault("conversion.commission_rate", "0.01")
	v.SetDefault("conversion.min_coins", 1000)
	v.SetDefault("conversion.provider_timeout", "15s")
	v.SetDefault("conversion.refund_on_failure", false)

	v.SetDefault("webpanel.enabled", true)
	v.SetDefault("webpanel.addr", ":8080")
	v.SetDefault("webpanel.session_ttl", "12h")
}

// Validate checks that every required secret is present.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return ErrMissingToken
	}
	if !c.Webpanel.Enabled {
		return nil
	}
	if c.Webpanel.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if c.Webpanel.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Webpanel.OAuth.ClientID != "" && c.Webpanel.OAuth.ClientSecret == "" {
		return ErrMissingOAuthSecret
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list. Creators are admins too.
func (c *Config) IsAdmin(userID string) bool {
	return slices.Contains(c.Admin.IDs, userID) || c.IsCreator(userID)
}

// IsCreator checks if a user ID is in the creator list.
func (c *Config) IsCreator(userID string) bool {
	return slices.Contains(c.Admin.CreatorIDs, userID)
}
