package stream

import (
	"github.com/shopspring/decimal"

	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// View is a point-in-time, read-only copy of the engine's incremental
// metrics, safe to use after the engine lock is released.
type View struct {
	VPIN            float64
	FleetingRatio   float64
	CancelRate      float64
	AvgLifetimeMs   float64
	LayeringScore   float64
	SpoofEvents     float64
	RealizationRate float64
	SpreadsBps      map[string]float64
	TotalVolume     decimal.Decimal
	VolumeByCoin    map[string]decimal.Decimal
}

// View copies the engine's current metrics under its read lock. The critical
// section covers only the copy; callers never hold the engine lock across
// further computation.
func (e *Engine) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := View{
		VPIN:            ringMean(e.vpinRing),
		LayeringScore:   e.phantom.layeringScore,
		SpoofEvents:     e.phantom.spoofEvents,
		RealizationRate: e.realizationRate(),
		SpreadsBps:      e.spreadsBps(),
		TotalVolume:     e.totalVolume,
		VolumeByCoin:    make(map[string]decimal.Decimal, len(e.volumeByCoin)),
	}
	for coin, vol := range e.volumeByCoin {
		v.VolumeByCoin[coin] = vol
	}

	if e.flow.total > 0 {
		v.FleetingRatio = float64(e.flow.fleeting) / float64(e.flow.total)
		v.CancelRate = float64(e.flow.cancels) / float64(e.flow.total)
	}
	if n := len(e.flow.lifetimesMs); n > 0 {
		sum := 0.0
		for _, ms := range e.flow.lifetimesMs {
			sum += ms
		}
		v.AvgLifetimeMs = sum / float64(n)
	}
	return v
}

// realizationRate is realized/promised depth clamped to [0,1], 0 before any
// depth has been promised.
func (e *Engine) realizationRate() float64 {
	if e.phantom.promisedDepth.IsZero() {
		return 0
	}
	return clamp01(e.phantom.realizedDepth.Div(e.phantom.promisedDepth).InexactFloat64())
}

// spreadsBps computes the current best-bid/best-ask spread in basis points
// for every coin with a retained book.
func (e *Engine) spreadsBps() map[string]float64 {
	spreads := make(map[string]float64, len(e.bookByCoin))
	for coin, book := range e.bookByCoin {
		if len(book.Bids) == 0 || len(book.Asks) == 0 {
			continue
		}
		if book.Bids[0].Price.IsZero() || book.Asks[0].Price.IsZero() {
			continue
		}
		spreads[coin] = metrics.SpreadBps(book.Bids[0].Price, book.Asks[0].Price)
	}
	return spreads
}

func ringMean(ring []float64) float64 {
	if len(ring) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range ring {
		sum += v
	}
	return sum / float64(len(ring))
}
