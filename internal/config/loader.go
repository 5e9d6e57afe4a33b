package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies VAULTWATCH_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// LoadOrDefaults behaves like Load but falls back to pure defaults plus env
// overrides when path is empty or the file does not exist.
func LoadOrDefaults(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}
	cfg := Defaults()
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides reads well-known VAULTWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// Hyperliquid
	setStr(&cfg.Hyperliquid.BaseURL, "VAULTWATCH_HYPERLIQUID_BASE_URL")
	setStr(&cfg.Hyperliquid.WsURL, "VAULTWATCH_HYPERLIQUID_WS_URL")
	setStr(&cfg.Hyperliquid.VaultAddress, "VAULTWATCH_HYPERLIQUID_VAULT_ADDRESS")
	setStringSlice(&cfg.Hyperliquid.Coins, "VAULTWATCH_HYPERLIQUID_COINS")
	setBool(&cfg.Hyperliquid.Streaming, "VAULTWATCH_HYPERLIQUID_STREAMING")

	// Monitor
	setDuration(&cfg.Monitor.UpdateInterval, "VAULTWATCH_MONITOR_UPDATE_INTERVAL")
	setDuration(&cfg.Monitor.AlertInterval, "VAULTWATCH_MONITOR_ALERT_INTERVAL")
	setBool(&cfg.Monitor.DemoFallback, "VAULTWATCH_MONITOR_DEMO_FALLBACK")

	// Thresholds
	setFloat64(&cfg.Thresholds.VPINWarning, "VAULTWATCH_THRESHOLDS_VPIN_WARNING")
	setFloat64(&cfg.Thresholds.VPINCritical, "VAULTWATCH_THRESHOLDS_VPIN_CRITICAL")
	setFloat64(&cfg.Thresholds.PhantomWarning, "VAULTWATCH_THRESHOLDS_PHANTOM_WARNING")
	setFloat64(&cfg.Thresholds.PhantomCritical, "VAULTWATCH_THRESHOLDS_PHANTOM_CRITICAL")
	setFloat64(&cfg.Thresholds.LiquidationWarning, "VAULTWATCH_THRESHOLDS_LIQUIDATION_WARNING")
	setFloat64(&cfg.Thresholds.LiquidationCritical, "VAULTWATCH_THRESHOLDS_LIQUIDATION_CRITICAL")
	setFloat64(&cfg.Thresholds.DrawdownWarning, "VAULTWATCH_THRESHOLDS_DRAWDOWN_WARNING")
	setFloat64(&cfg.Thresholds.DrawdownCritical, "VAULTWATCH_THRESHOLDS_DRAWDOWN_CRITICAL")
	setFloat64(&cfg.Thresholds.UtilizationWarning, "VAULTWATCH_THRESHOLDS_UTILIZATION_WARNING")
	setFloat64(&cfg.Thresholds.ConcentrationWarning, "VAULTWATCH_THRESHOLDS_CONCENTRATION_WARNING")
	setFloat64(&cfg.Thresholds.CancelRateWarning, "VAULTWATCH_THRESHOLDS_CANCEL_RATE_WARNING")
	setFloat64(&cfg.Thresholds.FleetingWarning, "VAULTWATCH_THRESHOLDS_FLEETING_WARNING")
	setFloat64(&cfg.Thresholds.SharpeFloor, "VAULTWATCH_THRESHOLDS_SHARPE_FLOOR")

	// Stream
	setFloat64(&cfg.Stream.BucketSize, "VAULTWATCH_STREAM_BUCKET_SIZE")
	setInt(&cfg.Stream.ChannelCap, "VAULTWATCH_STREAM_CHANNEL_CAP")

	// Redis
	setBool(&cfg.Redis.Enabled, "VAULTWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "VAULTWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "VAULTWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "VAULTWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "VAULTWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "VAULTWATCH_REDIS_MAX_RETRIES")

	// Server
	setBool(&cfg.Server.Enabled, "VAULTWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "VAULTWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "VAULTWATCH_SERVER_CORS_ORIGINS")

	// Notify
	setStr(&cfg.Notify.TelegramToken, "VAULTWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "VAULTWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "VAULTWATCH_NOTIFY_DISCORD_WEBHOOK_URL")

	// Top-level
	setStr(&cfg.Mode, "VAULTWATCH_MODE")
	setStr(&cfg.LogLevel, "VAULTWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
