package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "demo" // live mode requires a vault address
	require.NoError(t, cfg.Validate())
}

func TestValidateLiveModeRequiresVaultAddress(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault_address is required")
}

func TestValidateRejectsBadVaultAddress(t *testing.T) {
	cfg := Defaults()
	cfg.Hyperliquid.VaultAddress = "not-an-address"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid address")
}

func TestValidateAcceptsHexVaultAddress(t *testing.T) {
	cfg := Defaults()
	cfg.Hyperliquid.VaultAddress = "0xdfc24b077bc1425ad1dea75bcb6f8158e10df303"

	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "hybrid"
	cfg.LogLevel = "verbose"
	cfg.Monitor.UpdateInterval = duration{500 * time.Millisecond}
	cfg.Thresholds.VPINWarning = 0.8 // above its critical of 0.7
	cfg.Stream.BucketSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "hybrid"`)
	assert.Contains(t, msg, `unknown log_level "verbose"`)
	assert.Contains(t, msg, "update_interval must be >= 1s")
	assert.Contains(t, msg, "vpin_warning")
	assert.Contains(t, msg, "bucket_size must be > 0")
}

func TestValidateTelegramCredentialsTogether(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "demo"
	cfg.Notify.TelegramToken = "token-only"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestDurationTextRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestLoadParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "demo"
log_level = "debug"

[monitor]
update_interval = "5s"
alert_interval = "10s"

[thresholds]
vpin_warning = 0.4
vpin_critical = 0.6

[server]
enabled = true
port = 9100
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Monitor.UpdateInterval.Duration)
	assert.Equal(t, 0.4, cfg.Thresholds.VPINWarning)
	assert.Equal(t, 9100, cfg.Server.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://api.hyperliquid.xyz", cfg.Hyperliquid.BaseURL)
}

func TestLoadOrDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadOrDefaults(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "live", cfg.Mode)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VAULTWATCH_MODE", "demo")
	t.Setenv("VAULTWATCH_HYPERLIQUID_COINS", "BTC,ETH")
	t.Setenv("VAULTWATCH_MONITOR_UPDATE_INTERVAL", "15s")
	t.Setenv("VAULTWATCH_THRESHOLDS_VPIN_CRITICAL", "0.9")
	t.Setenv("VAULTWATCH_SERVER_PORT", "9200")
	t.Setenv("VAULTWATCH_REDIS_ENABLED", "true")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "demo", cfg.Mode)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Hyperliquid.Coins)
	assert.Equal(t, 15*time.Second, cfg.Monitor.UpdateInterval.Duration)
	assert.Equal(t, 0.9, cfg.Thresholds.VPINCritical)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/secret"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Notify.DiscordWebhookURL)
	assert.Equal(t, "hunter2", cfg.Redis.Password, "original must be untouched")
}
