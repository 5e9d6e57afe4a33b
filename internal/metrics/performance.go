package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

// PerformanceMetrics computes P&L and risk-adjusted return figures over the
// recent fill set.
func PerformanceMetrics(fills []domain.Fill, vs domain.VaultSummary) domain.PerformanceMetrics {
	var dailyPnL, totalVolume decimal.Decimal
	returns := make([]float64, 0, len(fills))
	realizedSpread := make(map[string]float64, len(fills))

	for _, f := range fills {
		dailyPnL = dailyPnL.Add(f.ClosedPnL)
		totalVolume = totalVolume.Add(f.Notional())
		returns = append(returns, f.ClosedPnL.InexactFloat64())
		realizedSpread[f.Coin] = f.Fee.InexactFloat64() * 10_000
	}

	return domain.PerformanceMetrics{
		DailyPnL:             dailyPnL,
		UnrealizedPnL:        vs.Equity.Sub(vs.TVL),
		TotalVolume:          totalVolume,
		SharpeRatio:          SharpeRatio(returns),
		SortinoRatio:         SortinoRatio(returns),
		RealizedSpread:       realizedSpread,
		AdverseSelectionCost: AdverseSelectionCost(fills),
	}
}

// SharpeRatio is mean(returns)/stddev(returns), 0 when the deviation is 0 or
// there are no returns.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := meanOf(returns)
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return mean / stddev
}

// SortinoRatio uses only negative-return variance in the denominator, 0 when
// there is no downside deviation.
func SortinoRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := meanOf(returns)
	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside /= float64(len(returns))
	dev := math.Sqrt(downside)
	if dev == 0 {
		return 0
	}
	return mean / dev
}

// AdverseSelectionCost is the sum of losing P&L magnitudes over total
// notional volume, 0 when no volume traded.
func AdverseSelectionCost(fills []domain.Fill) float64 {
	if len(fills) == 0 {
		return 0
	}
	totalAdverse := 0.0
	totalVolume := 0.0
	for _, f := range fills {
		if f.ClosedPnL.IsNegative() {
			totalAdverse += f.ClosedPnL.Abs().InexactFloat64()
		}
		totalVolume += f.Price.Mul(f.Size).InexactFloat64()
	}
	if totalVolume == 0 {
		return 0
	}
	return totalAdverse / totalVolume
}

// VaultMetrics derives capital deployment figures from the vault summary and
// account state. Utilization is margin used over TVL, 0 for a zero-TVL vault.
func VaultMetrics(vs domain.VaultSummary, as domain.AccountState) domain.VaultMetrics {
	utilization := 0.0
	if vs.TVL.IsPositive() {
		utilization = as.TotalMarginUsed.Div(vs.TVL).InexactFloat64()
	}
	return domain.VaultMetrics{
		TVL:               vs.TVL,
		Equity:            vs.Equity,
		APR:               vs.APR,
		UtilizationRate:   utilization,
		DeployedLiquidity: as.TotalMarginUsed,
		IdleLiquidity:     vs.TVL.Sub(as.TotalMarginUsed),
	}
}

func meanOf(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
