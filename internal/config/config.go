// Package config defines the top-level configuration for the vault monitor
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by VAULTWATCH_* environment
// variables.
type Config struct {
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Monitor     MonitorConfig     `toml:"monitor"`
	Thresholds  ThresholdConfig   `toml:"thresholds"`
	Stream      StreamConfig      `toml:"stream"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// HyperliquidConfig holds exchange endpoints and the vault under watch.
type HyperliquidConfig struct {
	BaseURL      string   `toml:"base_url"`
	WsURL        string   `toml:"ws_url"`
	VaultAddress string   `toml:"vault_address"`
	Coins        []string `toml:"coins"`
	Streaming    bool     `toml:"streaming"`
}

// MonitorConfig holds the batch and alert cycle cadences.
type MonitorConfig struct {
	UpdateInterval duration `toml:"update_interval"`
	AlertInterval  duration `toml:"alert_interval"`
	DemoFallback   bool     `toml:"demo_fallback"`
}

// ThresholdConfig holds alert trigger levels. Zero means "use the built-in
// default" for that metric.
type ThresholdConfig struct {
	VPINWarning          float64 `toml:"vpin_warning"`
	VPINCritical         float64 `toml:"vpin_critical"`
	PhantomWarning       float64 `toml:"phantom_warning"`
	PhantomCritical      float64 `toml:"phantom_critical"`
	LiquidationWarning   float64 `toml:"liquidation_warning"`
	LiquidationCritical  float64 `toml:"liquidation_critical"`
	DrawdownWarning      float64 `toml:"drawdown_warning"`
	DrawdownCritical     float64 `toml:"drawdown_critical"`
	UtilizationWarning   float64 `toml:"utilization_warning"`
	ConcentrationWarning float64 `toml:"concentration_warning"`
	CancelRateWarning    float64 `toml:"cancel_rate_warning"`
	FleetingWarning      float64 `toml:"fleeting_warning"`
	SharpeFloor          float64 `toml:"sharpe_floor"`
}

// StreamConfig holds live-feed engine tuning.
type StreamConfig struct {
	BucketSize float64 `toml:"bucket_size"`
	ChannelCap int     `toml:"channel_cap"`
}

// RedisConfig holds Redis connection parameters for the outbound metrics
// and alert bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials. Only critical alerts
// are pushed.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "5m" or "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			BaseURL:   "https://api.hyperliquid.xyz",
			WsURL:     "wss://api.hyperliquid.xyz/ws",
			Coins:     []string{"BTC", "ETH", "SOL"},
			Streaming: true,
		},
		Monitor: MonitorConfig{
			UpdateInterval: duration{30 * time.Second},
			AlertInterval:  duration{60 * time.Second},
			DemoFallback:   false,
		},
		Thresholds: ThresholdConfig{
			VPINWarning:          0.5,
			VPINCritical:         0.7,
			PhantomWarning:       0.4,
			PhantomCritical:      0.6,
			LiquidationWarning:   0.7,
			LiquidationCritical:  0.85,
			DrawdownWarning:      0.15,
			DrawdownCritical:     0.25,
			UtilizationWarning:   0.9,
			ConcentrationWarning: 0.15,
			CancelRateWarning:    0.5,
			FleetingWarning:      0.2,
			SharpeFloor:          1.0,
		},
		Stream: StreamConfig{
			BucketSize: 10_000,
			ChannelCap: 1000,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Mode:     "live",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live": true,
	"demo": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, demo)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Hyperliquid: live mode needs endpoints and a real vault address.
	if strings.ToLower(c.Mode) == "live" {
		if c.Hyperliquid.BaseURL == "" {
			errs = append(errs, "hyperliquid: base_url must not be empty")
		}
		if c.Hyperliquid.VaultAddress == "" {
			errs = append(errs, "hyperliquid: vault_address is required for live mode")
		} else if !common.IsHexAddress(c.Hyperliquid.VaultAddress) {
			errs = append(errs, fmt.Sprintf("hyperliquid: vault_address %q is not a valid address", c.Hyperliquid.VaultAddress))
		}
		if c.Hyperliquid.Streaming && c.Hyperliquid.WsURL == "" {
			errs = append(errs, "hyperliquid: ws_url must not be empty when streaming is enabled")
		}
	}

	// Monitor
	if c.Monitor.UpdateInterval.Duration < time.Second {
		errs = append(errs, "monitor: update_interval must be >= 1s")
	}
	if c.Monitor.AlertInterval.Duration < time.Second {
		errs = append(errs, "monitor: alert_interval must be >= 1s")
	}

	// Thresholds: warning must sit below its critical counterpart.
	type pair struct {
		name     string
		warning  float64
		critical float64
	}
	for _, p := range []pair{
		{"vpin", c.Thresholds.VPINWarning, c.Thresholds.VPINCritical},
		{"phantom", c.Thresholds.PhantomWarning, c.Thresholds.PhantomCritical},
		{"liquidation", c.Thresholds.LiquidationWarning, c.Thresholds.LiquidationCritical},
		{"drawdown", c.Thresholds.DrawdownWarning, c.Thresholds.DrawdownCritical},
	} {
		if p.warning >= p.critical {
			errs = append(errs, fmt.Sprintf("thresholds: %s_warning (%g) must be below %s_critical (%g)", p.name, p.warning, p.name, p.critical))
		}
	}

	// Stream
	if c.Stream.BucketSize <= 0 {
		errs = append(errs, "stream: bucket_size must be > 0")
	}
	if c.Stream.ChannelCap < 1 {
		errs = append(errs, "stream: channel_cap must be >= 1")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify: Telegram needs both token and chat id.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
