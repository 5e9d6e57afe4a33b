package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultwatch/vaultwatch/internal/alert"
	"github.com/vaultwatch/vaultwatch/internal/bus/redis"
	"github.com/vaultwatch/vaultwatch/internal/collector"
	"github.com/vaultwatch/vaultwatch/internal/config"
	"github.com/vaultwatch/vaultwatch/internal/domain"
	"github.com/vaultwatch/vaultwatch/internal/feed"
	"github.com/vaultwatch/vaultwatch/internal/notify"
	"github.com/vaultwatch/vaultwatch/internal/platform/hyperliquid"
	"github.com/vaultwatch/vaultwatch/internal/platform/sim"
	"github.com/vaultwatch/vaultwatch/internal/stream"
)

// simSeed keeps demo-mode output reproducible across runs.
const simSeed = 42

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Provider domain.Provider
	Fallback domain.Provider // nil unless demo fallback is enabled

	Engine       *stream.Engine            // nil when streaming is disabled
	StreamClient *hyperliquid.StreamClient // nil when streaming is disabled
	Feed         *feed.Feed                // nil when streaming is disabled

	Store     *collector.Store
	AlertLog  *alert.Log
	Collector *collector.Collector

	Publisher *redis.Publisher // nil unless Redis is enabled
	Notifier  *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Store:    collector.NewStore(),
		AlertLog: alert.NewLog(),
	}

	live := strings.ToLower(cfg.Mode) == "live"

	// --- Provider ---
	if live {
		deps.Provider = hyperliquid.NewClient(
			cfg.Hyperliquid.BaseURL,
			cfg.Hyperliquid.VaultAddress,
			cfg.Hyperliquid.Coins,
			logger,
		)
		if cfg.Monitor.DemoFallback {
			deps.Fallback = sim.New(simSeed)
		}
	} else {
		deps.Provider = sim.New(simSeed)
	}

	// --- Streaming engine and feed (live mode only) ---
	if live && cfg.Hyperliquid.Streaming {
		engineCfg := stream.DefaultConfig()
		if cfg.Stream.BucketSize > 0 {
			engineCfg.BucketSize = decimal.NewFromFloat(cfg.Stream.BucketSize)
		}
		if cfg.Stream.ChannelCap > 0 {
			engineCfg.ChannelCap = cfg.Stream.ChannelCap
		}
		deps.Engine = stream.New(engineCfg, logger)

		deps.StreamClient = hyperliquid.NewStreamClient(
			cfg.Hyperliquid.WsURL,
			cfg.Hyperliquid.VaultAddress,
			true,
		)
		deps.Feed = feed.New(deps.StreamClient, deps.Engine, cfg.Hyperliquid.Coins, logger)
	}

	// --- Redis bus ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Publisher = redis.NewPublisher(redisClient)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, domain.AlertCritical, logger)

	// --- Collector ---
	var liveView collector.LiveView
	if deps.Engine != nil {
		liveView = deps.Engine
	}
	deps.Collector = collector.New(
		deps.Provider,
		liveView,
		deps.Store,
		deps.AlertLog,
		collector.Config{
			UpdateInterval: cfg.Monitor.UpdateInterval.Duration,
			AlertInterval:  cfg.Monitor.AlertInterval.Duration,
			Thresholds:     thresholdsFromConfig(cfg.Thresholds),
		},
		logger,
	)
	if deps.Fallback != nil {
		deps.Collector.WithFallback(deps.Fallback)
	}
	deps.Collector.WithSink(&compositeSink{
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
	})

	return deps, cleanup, nil
}

// thresholdsFromConfig maps configured trigger levels onto the evaluator's
// thresholds, falling back to the defaults for unset (zero) values.
func thresholdsFromConfig(tc config.ThresholdConfig) alert.Thresholds {
	t := alert.DefaultThresholds()
	setIfPositive(&t.VPINWarning, tc.VPINWarning)
	setIfPositive(&t.VPINCritical, tc.VPINCritical)
	setIfPositive(&t.PhantomLiquidityWarning, tc.PhantomWarning)
	setIfPositive(&t.PhantomLiquidityCritical, tc.PhantomCritical)
	setIfPositive(&t.LiquidationRiskWarning, tc.LiquidationWarning)
	setIfPositive(&t.LiquidationRiskCritical, tc.LiquidationCritical)
	setIfPositive(&t.MaxDrawdownWarning, tc.DrawdownWarning)
	setIfPositive(&t.MaxDrawdownCritical, tc.DrawdownCritical)
	setIfPositive(&t.UtilizationWarning, tc.UtilizationWarning)
	setIfPositive(&t.ConcentrationWarning, tc.ConcentrationWarning)
	setIfPositive(&t.CancelRateWarning, tc.CancelRateWarning)
	setIfPositive(&t.FleetingRatioWarning, tc.FleetingWarning)
	setIfPositive(&t.SharpeInfo, tc.SharpeFloor)
	return t
}

func setIfPositive(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

// compositeSink fans published snapshots out to the optional Redis bus and
// pushes critical alerts to the notifier. Either half may be absent.
type compositeSink struct {
	publisher *redis.Publisher
	notifier  *notify.Notifier
}

func (s *compositeSink) PublishMetrics(ctx context.Context, m domain.GlobalMetrics) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishMetrics(ctx, m)
}

func (s *compositeSink) PublishAlerts(ctx context.Context, alerts []domain.Alert) error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.PublishAlerts(ctx, alerts); err != nil {
			errs = append(errs, err)
		}
	}
	if s.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := s.notifier.NotifyAlerts(notifyCtx, alerts)
		cancel()
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sink: %v", errs)
	}
	return nil
}
