// Package metrics holds the batch risk and liquidity calculators. Every
// function here is pure and stateless: it takes a full snapshot (fills,
// order books, account state, asset universe) and recomputes its metric from
// scratch. Degenerate inputs (empty fills, zero TVL, zero volume) map to
// explicit fallback values rather than errors.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

const (
	// VPINBucketSize is the quote-unit volume threshold that closes a VPIN
	// bucket.
	VPINBucketSize = 10_000

	// VPINWindow is the number of completed buckets averaged into the score.
	VPINWindow = 50

	// majorAssetLeverage is the leverage ceiling cutoff classifying an asset
	// as "major" for VPIN purposes.
	majorAssetLeverage = 10

	// cascadeAssetLeverage is the leverage cutoff for cascade-risk positions.
	cascadeAssetLeverage = 5

	// cascadeLiquidityFactor is a fixed placeholder standing in for a real
	// market-depth adjustment.
	cascadeLiquidityFactor = 0.8

	// defaultCorrelation is used when no known asset pair is present.
	defaultCorrelation = 0.5
)

// correlationPairs is a fixed lookup of known pairwise correlations. It is a
// placeholder heuristic carried over deliberately; do not expect it to track
// live correlations.
var correlationPairs = []struct {
	a, b string
	corr float64
}{
	{"BTC", "ETH", 0.7},
	{"ETH", "SOL", 0.6},
	{"BTC", "SOL", 0.5},
	{"ETH", "AVAX", 0.8},
	{"SOL", "AVAX", 0.7},
	{"BTC", "DOGE", 0.4},
	{"ETH", "MATIC", 0.6},
	{"LINK", "UNI", 0.5},
	{"AAVE", "COMP", 0.7},
}

// VPIN replays the fills of major assets (leverage ceiling >= 10) in order
// through the volume-bucket algorithm and returns the mean imbalance of the
// most recent window of completed buckets. Returns 0 when no bucket completed.
func VPIN(fills []domain.Fill, meta domain.Meta) float64 {
	if len(fills) == 0 {
		return 0
	}

	major := assetsWithLeverage(meta, majorAssetLeverage)
	bucketSize := decimal.NewFromInt(VPINBucketSize)

	var buckets []float64
	var bucketVol, buyVol, sellVol decimal.Decimal

	for _, f := range fills {
		if !major[f.Coin] {
			continue
		}
		vol := f.Notional()
		if f.Side == domain.SideBuy {
			buyVol = buyVol.Add(vol)
		} else {
			sellVol = sellVol.Add(vol)
		}
		bucketVol = bucketVol.Add(vol)

		if bucketVol.GreaterThanOrEqual(bucketSize) {
			total := buyVol.Add(sellVol)
			if total.IsPositive() {
				imbalance := buyVol.Sub(sellVol).Abs()
				buckets = append(buckets, imbalance.Div(total).InexactFloat64())
			}
			bucketVol = decimal.Zero
			buyVol = decimal.Zero
			sellVol = decimal.Zero
		}
	}

	if len(buckets) == 0 {
		return 0
	}
	if len(buckets) > VPINWindow {
		buckets = buckets[len(buckets)-VPINWindow:]
	}
	var sum float64
	for _, b := range buckets {
		sum += b
	}
	return sum / float64(len(buckets))
}

// PhantomLiquidityIndex combines order-flow and book-quality signals into a
// single [0,1] score of how much displayed liquidity is not genuinely
// available. Weights are fixed by design.
func PhantomLiquidityIndex(lm domain.LiquidityMetrics) float64 {
	const (
		fleetingWeight    = 0.25
		fillProbWeight    = 0.20
		layeringWeight    = 0.20
		spoofingWeight    = 0.20
		realizationWeight = 0.15
	)

	avgFillProb := 0.0
	if len(lm.FillProbByDistance) > 0 {
		for _, p := range lm.FillProbByDistance {
			avgFillProb += p
		}
		avgFillProb /= float64(len(lm.FillProbByDistance))
	}

	score := lm.FleetingOrderRatio*fleetingWeight +
		(1-avgFillProb)*fillProbWeight +
		lm.LayeringScore*layeringWeight +
		lm.SpoofingIndex*spoofingWeight +
		(1-lm.RealizationRate)*realizationWeight

	return clamp01(score)
}

// LiquidationRisk scores how close the vault is to liquidation. A zero-TVL
// vault scores exactly 1.0 regardless of equity or drawdown.
func LiquidationRisk(vs domain.VaultSummary) float64 {
	if vs.TVL.IsZero() {
		return 1.0
	}
	equityRatio := vs.Equity.Div(vs.TVL).InexactFloat64()
	drawdown := clamp01(vs.MaxDrawdown)

	base := 1 - equityRatio
	return clamp01(base + drawdown*0.5)
}

// CascadeRisk estimates the probability-proxy that concentrated correlated
// positions could trigger liquidation chains. Net signed positions are built
// from fills of assets with leverage ceiling >= 5, concentration is a
// Herfindahl index over position weights, and the result is scaled by the
// fixed correlation and liquidity factors.
func CascadeRisk(fills []domain.Fill, meta domain.Meta) float64 {
	if len(fills) == 0 {
		return 0
	}

	tracked := assetsWithLeverage(meta, cascadeAssetLeverage)
	positions := make(map[string]decimal.Decimal)
	for _, f := range fills {
		if !tracked[f.Coin] {
			continue
		}
		if f.Side == domain.SideBuy {
			positions[f.Coin] = positions[f.Coin].Add(f.Size)
		} else {
			positions[f.Coin] = positions[f.Coin].Sub(f.Size)
		}
	}

	var totalExposure decimal.Decimal
	for _, sz := range positions {
		totalExposure = totalExposure.Add(sz.Abs())
	}
	if totalExposure.IsZero() {
		return 0
	}

	concentration := 0.0
	for _, sz := range positions {
		w := sz.Abs().Div(totalExposure).InexactFloat64()
		concentration += w * w
	}

	return clamp01(concentration * assetCorrelation(tracked) * cascadeLiquidityFactor)
}

// PositionConcentration returns each asset's share of total traded notional.
// Returns an empty map when total notional is zero.
func PositionConcentration(fills []domain.Fill, meta domain.Meta) map[string]float64 {
	concentrations := make(map[string]float64)

	tradeable := make(map[string]bool, len(meta.Universe))
	for _, a := range meta.Universe {
		tradeable[a.Name] = true
	}

	values := make(map[string]decimal.Decimal)
	var total decimal.Decimal
	for _, f := range fills {
		if !tradeable[f.Coin] {
			continue
		}
		v := f.Notional()
		values[f.Coin] = values[f.Coin].Add(v)
		total = total.Add(v)
	}

	if total.IsPositive() {
		for coin, v := range values {
			concentrations[coin] = v.Div(total).InexactFloat64()
		}
	}
	return concentrations
}

// CrossExchangeManipulation is a coarse placeholder, not a real detector: it
// scores 0.15 when the universe carries more than 10 high-leverage assets
// and 0.08 otherwise.
func CrossExchangeManipulation(fills []domain.Fill, meta domain.Meta) float64 {
	if len(fills) == 0 {
		return 0
	}
	highLeverage := 0
	for _, a := range meta.Universe {
		if a.MaxLeverage >= majorAssetLeverage {
			highLeverage++
		}
	}
	if highLeverage > 10 {
		return 0.15
	}
	return 0.08
}

// RiskMetrics bundles the individual risk calculators into one record.
func RiskMetrics(vs domain.VaultSummary, fills []domain.Fill, lm domain.LiquidityMetrics, meta domain.Meta) domain.RiskMetrics {
	return domain.RiskMetrics{
		VPINScore:             VPIN(fills, meta),
		PhantomLiquidityIndex: PhantomLiquidityIndex(lm),
		LiquidationRisk:       LiquidationRisk(vs),
		CascadeRisk:           CascadeRisk(fills, meta),
		PositionConcentration: PositionConcentration(fills, meta),
		MaxDrawdown:           vs.MaxDrawdown,
		CrossExchangeScore:    CrossExchangeManipulation(fills, meta),
	}
}

// assetsWithLeverage returns the set of asset names whose leverage ceiling
// meets the cutoff.
func assetsWithLeverage(meta domain.Meta, minLeverage int) map[string]bool {
	out := make(map[string]bool)
	for _, a := range meta.Universe {
		if a.MaxLeverage >= minLeverage {
			out[a.Name] = true
		}
	}
	return out
}

// assetCorrelation averages the known pairwise correlations among the assets
// present, falling back to defaultCorrelation when no known pair is present.
func assetCorrelation(assets map[string]bool) float64 {
	total, count := 0.0, 0
	for _, p := range correlationPairs {
		if assets[p.a] && assets[p.b] {
			total += p.corr
			count++
		}
	}
	if count == 0 {
		return defaultCorrelation
	}
	return total / float64(count)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
