package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/alert"
	"github.com/vaultwatch/vaultwatch/internal/domain"
	"github.com/vaultwatch/vaultwatch/internal/stream"
)

type fakeProvider struct {
	vs    domain.VaultSummary
	as    domain.AccountState
	meta  domain.Meta
	fills []domain.Fill
	books map[string]domain.OrderBookSnapshot
	err   error
}

func (p *fakeProvider) VaultSummary(ctx context.Context) (domain.VaultSummary, error) {
	return p.vs, p.err
}

func (p *fakeProvider) AccountState(ctx context.Context) (domain.AccountState, error) {
	return p.as, p.err
}

func (p *fakeProvider) Meta(ctx context.Context) (domain.Meta, error) {
	return p.meta, p.err
}

func (p *fakeProvider) RecentFills(ctx context.Context) ([]domain.Fill, error) {
	return p.fills, p.err
}

func (p *fakeProvider) OrderBooks(ctx context.Context) (map[string]domain.OrderBookSnapshot, error) {
	return p.books, p.err
}

type fakeView struct {
	v stream.View
}

func (f *fakeView) View() stream.View { return f.v }

type fakeSink struct {
	metrics []domain.GlobalMetrics
	alerts  [][]domain.Alert
	err     error
}

func (s *fakeSink) PublishMetrics(ctx context.Context, m domain.GlobalMetrics) error {
	s.metrics = append(s.metrics, m)
	return s.err
}

func (s *fakeSink) PublishAlerts(ctx context.Context, alerts []domain.Alert) error {
	s.alerts = append(s.alerts, alerts)
	return s.err
}

func healthyProvider() *fakeProvider {
	return &fakeProvider{
		vs: domain.VaultSummary{
			TVL:           decimal.NewFromInt(1000),
			Equity:        decimal.NewFromInt(1100),
			APR:           0.1,
			IdleLiquidity: decimal.NewFromInt(300),
		},
		as: domain.AccountState{TotalMarginUsed: decimal.NewFromInt(700)},
		meta: domain.Meta{Universe: []domain.AssetInfo{
			{Name: "BTC", MaxLeverage: 50},
		}},
		fills: []domain.Fill{{
			Coin:      "BTC",
			Side:      domain.SideBuy,
			Price:     decimal.NewFromInt(100),
			Size:      decimal.NewFromInt(2),
			ClosedPnL: decimal.NewFromInt(5),
		}},
		books: map[string]domain.OrderBookSnapshot{
			"BTC": {
				Coin: "BTC",
				Bids: []domain.BookLevel{{Price: decimal.NewFromFloat(99.5), Size: decimal.NewFromInt(1)}},
				Asks: []domain.BookLevel{{Price: decimal.NewFromFloat(100.5), Size: decimal.NewFromInt(1)}},
			},
		},
	}
}

func newTestCollector(p domain.Provider, live LiveView) (*Collector, *Store, *alert.Log) {
	store := NewStore()
	log := alert.NewLog()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{
		UpdateInterval: time.Second,
		AlertInterval:  time.Second,
		Thresholds:     alert.DefaultThresholds(),
	}
	return New(p, live, store, log, cfg, logger), store, log
}

func TestRunCyclePublishesSnapshot(t *testing.T) {
	c, store, _ := newTestCollector(healthyProvider(), nil)

	_, ok := store.Snapshot()
	require.False(t, ok, "store must be empty before the first cycle")

	require.NoError(t, c.RunCycle(context.Background()))

	m, ok := store.Snapshot()
	require.True(t, ok)
	assert.True(t, m.Vault.TVL.Equal(decimal.NewFromInt(1000)))
	assert.InDelta(t, 0.7, m.Vault.UtilizationRate, 1e-9)
	assert.True(t, m.Performance.DailyPnL.Equal(decimal.NewFromInt(5)))
	assert.Contains(t, m.Liquidity.BidAskSpreadBps, "BTC")
	assert.False(t, m.LastUpdate.IsZero())
}

func TestRunCycleFailureKeepsPreviousSnapshot(t *testing.T) {
	p := healthyProvider()
	c, store, _ := newTestCollector(p, nil)

	require.NoError(t, c.RunCycle(context.Background()))
	before, ok := store.Snapshot()
	require.True(t, ok)

	p.err = errors.New("connection refused")
	err := c.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector:")

	after, ok := store.Snapshot()
	require.True(t, ok)
	assert.Equal(t, before.LastUpdate, after.LastUpdate)
}

func TestOverlayReplacesBatchFigures(t *testing.T) {
	live := &fakeView{v: stream.View{
		VPIN:            0.42,
		FleetingRatio:   0.3,
		CancelRate:      0.2,
		AvgLifetimeMs:   75,
		LayeringScore:   0.1,
		SpoofEvents:     2,
		RealizationRate: 0.9,
		SpreadsBps:      map[string]float64{"BTC": 12.5},
		TotalVolume:     decimal.NewFromInt(50),
	}}
	c, store, _ := newTestCollector(healthyProvider(), live)

	require.NoError(t, c.RunCycle(context.Background()))

	m, ok := store.Snapshot()
	require.True(t, ok)
	assert.InDelta(t, 0.42, m.Risk.VPINScore, 1e-9)
	assert.InDelta(t, 0.3, m.Liquidity.FleetingOrderRatio, 1e-9)
	assert.InDelta(t, 0.2, m.Liquidity.CancelRate, 1e-9)
	assert.InDelta(t, 75.0, m.Liquidity.AvgOrderLifetimeMs, 1e-9)
	assert.InDelta(t, 0.9, m.Liquidity.RealizationRate, 1e-9)
	assert.InDelta(t, 12.5, m.Liquidity.BidAskSpreadBps["BTC"], 1e-9)

	// Batch volume 200 plus live volume 50.
	assert.True(t, m.Performance.TotalVolume.Equal(decimal.NewFromInt(250)),
		"volume %s", m.Performance.TotalVolume)

	// Utilization switches to the idle-based formula under overlay.
	assert.InDelta(t, 0.7, m.Vault.UtilizationRate, 1e-9)
	assert.True(t, m.Vault.TVL.Equal(decimal.NewFromInt(1000)))
}

func TestOverlayPhantomLiquidityBlend(t *testing.T) {
	live := &fakeView{v: stream.View{
		RealizationRate: 1,
		SpoofEvents:     0,
		LayeringScore:   0,
		FleetingRatio:   0,
		CancelRate:      0,
	}}
	c, store, _ := newTestCollector(healthyProvider(), live)

	require.NoError(t, c.RunCycle(context.Background()))

	m, ok := store.Snapshot()
	require.True(t, ok)
	assert.InDelta(t, 0.0, m.Risk.PhantomLiquidityIndex, 1e-9)
}

func TestSinkReceivesPublishedMetrics(t *testing.T) {
	sink := &fakeSink{}
	c, _, _ := newTestCollector(healthyProvider(), nil)
	c.WithSink(sink)

	require.NoError(t, c.RunCycle(context.Background()))

	require.Len(t, sink.metrics, 1)
	assert.True(t, sink.metrics[0].Vault.TVL.Equal(decimal.NewFromInt(1000)))
}

func TestSinkFailureIsNotFatal(t *testing.T) {
	sink := &fakeSink{err: errors.New("redis down")}
	c, store, _ := newTestCollector(healthyProvider(), nil)
	c.WithSink(sink)

	require.NoError(t, c.RunCycle(context.Background()))

	_, ok := store.Snapshot()
	assert.True(t, ok, "publish must survive a sink failure")
}

func TestStoreSnapshotIsDeepCopy(t *testing.T) {
	store := NewStore()
	store.Publish(domain.GlobalMetrics{
		Risk: domain.RiskMetrics{
			PositionConcentration: map[string]float64{"BTC": 0.5},
		},
	})

	m, ok := store.Snapshot()
	require.True(t, ok)
	m.Risk.PositionConcentration["BTC"] = 0.99

	fresh, _ := store.Snapshot()
	assert.Equal(t, 0.5, fresh.Risk.PositionConcentration["BTC"])
}
