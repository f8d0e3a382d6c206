package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
bot:
  token: "file-token"
admin:
  ids: ["111"]
  creator_ids: ["999"]
webpanel:
  secret_key: "s3cret"
  api_key: "k"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Bot.Token)
	assert.Equal(t, int64(500), cfg.Economy.DailyReward)
	assert.Equal(t, int64(50), cfg.Economy.HourlyReward)
	assert.Equal(t, int64(2500), cfg.Economy.WeeklyReward)
	assert.Equal(t, 1, cfg.Tickets.DefaultMaxOpen)
	assert.Equal(t, 10*time.Second, cfg.Tickets.DeleteDelay)
	assert.Equal(t, "0.01", cfg.Conversion.CoinValueEUR)
	assert.False(t, cfg.Conversion.RefundOnFailure)
	assert.NoError(t, cfg.Validate())

	assert.True(t, cfg.IsAdmin("111"))
	assert.True(t, cfg.IsAdmin("999"), "creators are admins")
	assert.True(t, cfg.IsCreator("999"))
	assert.False(t, cfg.IsCreator("111"))
	assert.False(t, cfg.IsAdmin("222"))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("ECONOMY_DAILY_REWARD", "750")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, int64(750), cfg.Economy.DailyReward)
}

func TestValidate_NoFallbackSecrets(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"missing token", Config{}, ErrMissingToken},
		{
			"missing secret key",
			Config{Bot: BotConfig{Token: "t"}, Webpanel: WebpanelConfig{Enabled: true, APIKey: "k"}},
			ErrMissingSecretKey,
		},
		{
			"missing api key",
			Config{Bot: BotConfig{Token: "t"}, Webpanel: WebpanelConfig{Enabled: true, SecretKey: "s"}},
			ErrMissingAPIKey,
		},
		{
			"oauth id without secret",
			Config{Bot: BotConfig{Token: "t"}, Webpanel: WebpanelConfig{
				Enabled: true, SecretKey: "s", APIKey: "k",
				OAuth: OAuthConfig{ClientID: "id"},
			}},
			ErrMissingOAuthSecret,
		},
		{"panel disabled", Config{Bot: BotConfig{Token: "t"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
