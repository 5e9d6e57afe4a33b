// Package collector drives the periodic update cycle: fetch the full
// account/market snapshot, run the batch calculators, overlay the streaming
// engine's live view when one is attached, and publish one consistent
// GlobalMetrics. A separate loop evaluates alerts against the published
// snapshot on its own cadence.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/alert"
	"github.com/vaultwatch/vaultwatch/internal/domain"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
	"github.com/vaultwatch/vaultwatch/internal/stream"
)

// LiveView is the read-only surface the collector needs from the streaming
// engine.
type LiveView interface {
	View() stream.View
}

// SnapshotSink receives published metrics and alerts for external consumers
// (e.g. a Redis bus). Sink failures are logged, never fatal to the cycle.
type SnapshotSink interface {
	PublishMetrics(ctx context.Context, m domain.GlobalMetrics) error
	PublishAlerts(ctx context.Context, alerts []domain.Alert) error
}

// Config tunes the collector's cadences.
type Config struct {
	UpdateInterval time.Duration
	AlertInterval  time.Duration
	Thresholds     alert.Thresholds
}

// Collector owns one metrics store and one alert log and keeps both current.
type Collector struct {
	provider domain.Provider
	fallback domain.Provider // optional; substituted when a live fetch fails
	live     LiveView        // optional; nil means batch-only
	sink     SnapshotSink    // optional
	store    *Store
	log      *alert.Log
	cfg      Config
	logger   *slog.Logger
}

// New creates a collector. live, fallback, and sink may be nil.
func New(provider domain.Provider, live LiveView, store *Store, log *alert.Log, cfg Config, logger *slog.Logger) *Collector {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = time.Second
	}
	if cfg.AlertInterval <= 0 {
		cfg.AlertInterval = cfg.UpdateInterval
	}
	return &Collector{
		provider: provider,
		live:     live,
		store:    store,
		log:      log,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "collector")),
	}
}

// WithFallback sets a provider substituted for a failed live fetch cycle
// (degraded/demo operation). Returns the collector for chaining.
func (c *Collector) WithFallback(p domain.Provider) *Collector {
	c.fallback = p
	return c
}

// WithSink attaches an external snapshot sink.
func (c *Collector) WithSink(s SnapshotSink) *Collector {
	c.sink = s
	return c
}

// Store exposes the metrics store for read accessors.
func (c *Collector) Store() *Store { return c.store }

// AlertLog exposes the alert log for read accessors.
func (c *Collector) AlertLog() *alert.Log { return c.log }

// Run executes update cycles at the configured interval until ctx is
// cancelled. A failed cycle leaves the previously published metrics in
// place; there is no retry within the interval.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.UpdateInterval)
	defer ticker.Stop()

	c.logger.InfoContext(ctx, "collector started",
		slog.Duration("update_interval", c.cfg.UpdateInterval),
		slog.Bool("streaming_overlay", c.live != nil),
	)

	cycle := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cycle++
			if err := c.RunCycle(ctx); err != nil {
				c.logger.ErrorContext(ctx, "update cycle failed",
					slog.Int("cycle", cycle),
					slog.String("error", err.Error()),
				)
				if c.fallback == nil {
					continue
				}
				if err := c.runCycleWith(ctx, c.fallback); err != nil {
					c.logger.ErrorContext(ctx, "fallback cycle failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}

// RunAlerts evaluates the published snapshot on its own cadence, appending
// any triggered alerts to the log and forwarding them to the sink.
func (c *Collector) RunAlerts(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.AlertInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snapshot, ok := c.store.Snapshot()
			if !ok {
				continue
			}
			alerts := alert.Evaluate(snapshot, c.cfg.Thresholds)
			if len(alerts) == 0 {
				continue
			}
			c.log.Append(alerts...)
			c.logger.InfoContext(ctx, "alerts generated", slog.Int("count", len(alerts)))
			if c.sink != nil {
				if err := c.sink.PublishAlerts(ctx, alerts); err != nil {
					c.logger.WarnContext(ctx, "alert sink publish failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}

// RunCycle performs one fetch-compute-publish cycle against the primary
// provider. Exposed for on-demand refreshes and tests.
func (c *Collector) RunCycle(ctx context.Context) error {
	return c.runCycleWith(ctx, c.provider)
}

func (c *Collector) runCycleWith(ctx context.Context, p domain.Provider) error {
	vaultSummary, err := p.VaultSummary(ctx)
	if err != nil {
		return fmt.Errorf("collector: vault summary: %w", err)
	}
	accountState, err := p.AccountState(ctx)
	if err != nil {
		return fmt.Errorf("collector: account state: %w", err)
	}
	meta, err := p.Meta(ctx)
	if err != nil {
		return fmt.Errorf("collector: meta: %w", err)
	}
	fills, err := p.RecentFills(ctx)
	if err != nil {
		return fmt.Errorf("collector: recent fills: %w", err)
	}
	books, err := p.OrderBooks(ctx)
	if err != nil {
		return fmt.Errorf("collector: order books: %w", err)
	}

	liquidity := metrics.LiquidityMetrics(books, fills, meta)
	m := domain.GlobalMetrics{
		Vault:       metrics.VaultMetrics(vaultSummary, accountState),
		Performance: metrics.PerformanceMetrics(fills, vaultSummary),
		Liquidity:   liquidity,
		Risk:        metrics.RiskMetrics(vaultSummary, fills, liquidity, meta),
		LastUpdate:  time.Now().UTC(),
	}

	if c.live != nil {
		c.overlayStreaming(&m, c.live.View(), vaultSummary)
	}

	c.store.Publish(m)
	if c.sink != nil {
		if err := c.sink.PublishMetrics(ctx, m); err != nil {
			c.logger.WarnContext(ctx, "metrics sink publish failed",
				slog.String("error", err.Error()),
			)
		}
	}

	c.logger.DebugContext(ctx, "metrics published",
		slog.Float64("vpin", m.Risk.VPINScore),
		slog.Float64("phantom_liquidity", m.Risk.PhantomLiquidityIndex),
		slog.Int("spread_coins", len(m.Liquidity.BidAskSpreadBps)),
	)
	return nil
}

// overlayStreaming merges the engine's live view onto the batch-computed
// metrics. Live values replace their batch counterparts; traded volume is
// added on top of the batch volume. The additive volume rule can double
// count trades seen by both paths; the trade hash is deliberately not used
// to de-duplicate.
func (c *Collector) overlayStreaming(m *domain.GlobalMetrics, v stream.View, vs domain.VaultSummary) {
	m.Risk.VPINScore = v.VPIN

	m.Liquidity.FleetingOrderRatio = v.FleetingRatio
	m.Liquidity.AvgOrderLifetimeMs = v.AvgLifetimeMs
	m.Liquidity.LayeringScore = v.LayeringScore
	m.Liquidity.SpoofingIndex = v.SpoofEvents
	m.Liquidity.CancelRate = v.CancelRate
	m.Liquidity.RealizationRate = v.RealizationRate

	// Live-path phantom liquidity blend.
	depthPenalty := 1 - v.RealizationRate
	spoofPenalty := math.Tanh(v.SpoofEvents / 50)
	flowPenalty := 0.5*v.FleetingRatio + 0.5*v.CancelRate
	m.Risk.PhantomLiquidityIndex = clamp01((depthPenalty + spoofPenalty + v.LayeringScore + flowPenalty) / 4)

	if m.Liquidity.BidAskSpreadBps == nil {
		m.Liquidity.BidAskSpreadBps = make(map[string]float64, len(v.SpreadsBps))
	}
	for coin, bps := range v.SpreadsBps {
		m.Liquidity.BidAskSpreadBps[coin] = bps
	}

	m.Performance.TotalVolume = m.Performance.TotalVolume.Add(v.TotalVolume)

	// Vault-level fields always come from the latest batch snapshot.
	m.Vault.TVL = vs.TVL
	m.Vault.Equity = vs.Equity
	m.Vault.APR = vs.APR
	m.Vault.DeployedLiquidity = vs.DeployedLiquidity
	m.Vault.IdleLiquidity = vs.IdleLiquidity
	if vs.TVL.IsPositive() {
		m.Vault.UtilizationRate = 1 - vs.IdleLiquidity.Div(vs.TVL).InexactFloat64()
	} else {
		m.Vault.UtilizationRate = 0
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
