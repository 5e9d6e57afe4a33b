package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GlobalMetrics is the single published artifact of an update cycle. It is
// replaced wholesale on publish and never partially mutated from a reader's
// perspective; readers obtain a deep copy via Clone.
type GlobalMetrics struct {
	Vault       VaultMetrics
	Performance PerformanceMetrics
	Liquidity   LiquidityMetrics
	Risk        RiskMetrics
	LastUpdate  time.Time
}

// VaultMetrics are vault-level capital figures, always sourced from the
// latest batch snapshot regardless of streaming overlay.
type VaultMetrics struct {
	TVL               decimal.Decimal
	Equity            decimal.Decimal
	APR               float64
	UtilizationRate   float64
	DeployedLiquidity decimal.Decimal
	IdleLiquidity     decimal.Decimal
}

// PerformanceMetrics summarize trading performance over the recent fill set.
type PerformanceMetrics struct {
	DailyPnL             decimal.Decimal
	UnrealizedPnL        decimal.Decimal
	TotalVolume          decimal.Decimal
	SharpeRatio          float64
	SortinoRatio         float64
	RealizedSpread       map[string]float64 // per coin, bps
	AdverseSelectionCost float64
}

// LiquidityMetrics describe displayed order-book quality and order-flow
// behavior. All ratio fields are in [0,1] after clamping.
type LiquidityMetrics struct {
	BidAskSpreadBps     map[string]float64
	DepthAt50Bps        map[string]decimal.Decimal
	OrderBookImbalance  map[string]float64
	AvgOrderLifetimeMs  float64
	CancelRate          float64
	FleetingOrderRatio  float64
	LayeringScore       float64
	SpoofingIndex       float64
	RealizationRate     float64 // fraction of promised depth actually realized
	FillProbByDistance  map[string]float64
}

// RiskMetrics are the composite risk indicators. Every score is in [0,1]
// after clamping.
type RiskMetrics struct {
	VPINScore             float64
	PhantomLiquidityIndex float64
	LiquidationRisk       float64
	CascadeRisk           float64
	PositionConcentration map[string]float64
	MaxDrawdown           float64
	CrossExchangeScore    float64
}

// Clone returns a deep copy of the metrics, including all per-coin maps, so
// readers never alias the published value.
func (m GlobalMetrics) Clone() GlobalMetrics {
	out := m
	out.Performance.RealizedSpread = cloneFloatMap(m.Performance.RealizedSpread)
	out.Liquidity.BidAskSpreadBps = cloneFloatMap(m.Liquidity.BidAskSpreadBps)
	out.Liquidity.OrderBookImbalance = cloneFloatMap(m.Liquidity.OrderBookImbalance)
	out.Liquidity.FillProbByDistance = cloneFloatMap(m.Liquidity.FillProbByDistance)
	out.Risk.PositionConcentration = cloneFloatMap(m.Risk.PositionConcentration)
	if m.Liquidity.DepthAt50Bps != nil {
		out.Liquidity.DepthAt50Bps = make(map[string]decimal.Decimal, len(m.Liquidity.DepthAt50Bps))
		for k, v := range m.Liquidity.DepthAt50Bps {
			out.Liquidity.DepthAt50Bps[k] = v
		}
	}
	return out
}

func cloneFloatMap(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
