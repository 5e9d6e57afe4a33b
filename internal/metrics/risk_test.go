package metrics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

func majorMeta() domain.Meta {
	return domain.Meta{Universe: []domain.AssetInfo{
		{Name: "BTC", MaxLeverage: 50},
		{Name: "ETH", MaxLeverage: 25},
		{Name: "PEPE", MaxLeverage: 3},
	}}
}

func fill(coin string, side domain.Side, price, size float64) domain.Fill {
	return domain.Fill{
		Coin:  coin,
		Side:  side,
		Price: decimal.NewFromFloat(price),
		Size:  decimal.NewFromFloat(size),
	}
}

func TestVPINEmptyFills(t *testing.T) {
	assert.Zero(t, VPIN(nil, majorMeta()))
}

func TestVPINOneSidedFlow(t *testing.T) {
	// Two buys of 5,000 notional close one bucket with full imbalance.
	fills := []domain.Fill{
		fill("BTC", domain.SideBuy, 50_000, 0.1),
		fill("BTC", domain.SideBuy, 50_000, 0.1),
	}
	assert.InDelta(t, 1.0, VPIN(fills, majorMeta()), 1e-9)
}

func TestVPINBalancedFlow(t *testing.T) {
	fills := []domain.Fill{
		fill("BTC", domain.SideBuy, 50_000, 0.1),
		fill("BTC", domain.SideSell, 50_000, 0.1),
	}
	assert.InDelta(t, 0.0, VPIN(fills, majorMeta()), 1e-9)
}

func TestVPINIgnoresLowLeverageAssets(t *testing.T) {
	fills := []domain.Fill{
		fill("PEPE", domain.SideBuy, 1, 100_000),
		fill("PEPE", domain.SideBuy, 1, 100_000),
	}
	assert.Zero(t, VPIN(fills, majorMeta()))
}

func TestVPINIncompleteBucketDropped(t *testing.T) {
	// 9,999 notional never closes a bucket.
	fills := []domain.Fill{fill("BTC", domain.SideBuy, 9_999, 1)}
	assert.Zero(t, VPIN(fills, majorMeta()))
}

func TestPhantomLiquidityIndexCleanBook(t *testing.T) {
	lm := domain.LiquidityMetrics{
		FleetingOrderRatio: 0,
		LayeringScore:      0,
		SpoofingIndex:      0,
		RealizationRate:    1,
		FillProbByDistance: map[string]float64{"1bps": 1},
	}
	assert.InDelta(t, 0.0, PhantomLiquidityIndex(lm), 1e-9)
}

func TestPhantomLiquidityIndexWorstCaseClamped(t *testing.T) {
	lm := domain.LiquidityMetrics{
		FleetingOrderRatio: 1,
		LayeringScore:      1,
		SpoofingIndex:      1,
		RealizationRate:    0,
		FillProbByDistance: map[string]float64{"1bps": 0},
	}
	// Weights sum to 1, so the worst case lands exactly on 1.
	assert.InDelta(t, 1.0, PhantomLiquidityIndex(lm), 1e-9)
}

func TestPhantomLiquidityIndexWeighting(t *testing.T) {
	lm := domain.LiquidityMetrics{
		FleetingOrderRatio: 0.4,
		LayeringScore:      0.5,
		SpoofingIndex:      0.2,
		RealizationRate:    0.75,
		FillProbByDistance: map[string]float64{"1bps": 0.9, "5bps": 0.7},
	}
	// 0.4*0.25 + (1-0.8)*0.20 + 0.5*0.20 + 0.2*0.20 + (1-0.75)*0.15
	want := 0.1 + 0.04 + 0.1 + 0.04 + 0.0375
	assert.InDelta(t, want, PhantomLiquidityIndex(lm), 1e-9)
}

func TestLiquidationRiskZeroTVL(t *testing.T) {
	vs := domain.VaultSummary{TVL: decimal.Zero, Equity: decimal.NewFromInt(100)}
	assert.Equal(t, 1.0, LiquidationRisk(vs))
}

func TestLiquidationRiskHealthyVault(t *testing.T) {
	vs := domain.VaultSummary{
		TVL:    decimal.NewFromInt(100),
		Equity: decimal.NewFromInt(100),
	}
	assert.InDelta(t, 0.0, LiquidationRisk(vs), 1e-9)
}

func TestLiquidationRiskDrawdownAdds(t *testing.T) {
	vs := domain.VaultSummary{
		TVL:         decimal.NewFromInt(100),
		Equity:      decimal.NewFromInt(50),
		MaxDrawdown: 0.2,
	}
	// (1 - 0.5) + 0.2*0.5
	assert.InDelta(t, 0.6, LiquidationRisk(vs), 1e-9)
}

func TestCascadeRiskSingleAsset(t *testing.T) {
	fills := []domain.Fill{fill("BTC", domain.SideBuy, 50_000, 1)}
	// Concentration 1; BTC/ETH are both leveraged in the universe so the 0.7
	// pair correlation applies, times the 0.8 liquidity factor.
	assert.InDelta(t, 0.7*0.8, CascadeRisk(fills, majorMeta()), 1e-9)
}

func TestCascadeRiskTwoCorrelatedAssets(t *testing.T) {
	fills := []domain.Fill{
		fill("BTC", domain.SideBuy, 1, 10),
		fill("ETH", domain.SideBuy, 1, 10),
	}
	// Herfindahl 0.5, BTC/ETH correlation 0.7, liquidity factor 0.8.
	assert.InDelta(t, 0.5*0.7*0.8, CascadeRisk(fills, majorMeta()), 1e-9)
}

func TestCascadeRiskEmptyFills(t *testing.T) {
	assert.Zero(t, CascadeRisk(nil, majorMeta()))
}

func TestPositionConcentrationSumsToOne(t *testing.T) {
	fills := []domain.Fill{
		fill("BTC", domain.SideBuy, 100, 3),
		fill("ETH", domain.SideSell, 100, 1),
	}
	conc := PositionConcentration(fills, majorMeta())
	require.Len(t, conc, 2)
	assert.InDelta(t, 0.75, conc["BTC"], 1e-9)
	assert.InDelta(t, 0.25, conc["ETH"], 1e-9)
}

func TestPositionConcentrationEmpty(t *testing.T) {
	assert.Empty(t, PositionConcentration(nil, majorMeta()))
}

func TestCrossExchangeManipulation(t *testing.T) {
	fills := []domain.Fill{fill("BTC", domain.SideBuy, 1, 1)}

	assert.Zero(t, CrossExchangeManipulation(nil, majorMeta()))
	assert.InDelta(t, 0.08, CrossExchangeManipulation(fills, majorMeta()), 1e-9)

	var big domain.Meta
	for i := 0; i < 11; i++ {
		big.Universe = append(big.Universe, domain.AssetInfo{
			Name:        string(rune('A' + i)),
			MaxLeverage: 20,
		})
	}
	assert.InDelta(t, 0.15, CrossExchangeManipulation(fills, big), 1e-9)
}

func TestRiskMetricsBundles(t *testing.T) {
	vs := domain.VaultSummary{
		TVL:         decimal.NewFromInt(1000),
		Equity:      decimal.NewFromInt(900),
		MaxDrawdown: 0.1,
	}
	fills := []domain.Fill{fill("BTC", domain.SideBuy, 50_000, 0.5)}
	rm := RiskMetrics(vs, fills, domain.LiquidityMetrics{}, majorMeta())

	assert.Equal(t, 0.1, rm.MaxDrawdown)
	assert.NotEmpty(t, rm.PositionConcentration)
	assert.GreaterOrEqual(t, rm.LiquidationRisk, 0.0)
	assert.LessOrEqual(t, rm.LiquidationRisk, 1.0)
}
