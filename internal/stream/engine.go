// Package stream implements the live metrics engine: a single-actor state
// machine fed by the trade, order-book, and order-lifecycle feeds. All state
// mutation happens on the actor goroutine; other tasks read only through the
// View accessor, which copies current values under the engine lock.
package stream

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

const (
	// DefaultChannelCap bounds each inbound feed channel. A producer that
	// finds its channel full drops the event (lossy at-most-once delivery).
	DefaultChannelCap = 1000

	// tradeBufferCap bounds the retained rolling trade buffer.
	tradeBufferCap = 5000

	// vpinRingCap bounds the ring of completed bucket imbalances.
	vpinRingCap = 50

	// lifetimeWindowCap bounds the order-lifetime sample window.
	lifetimeWindowCap = 10_000

	// fleetingCutoff classifies an order as fleeting when it lived shorter
	// than this.
	fleetingCutoff = 100 * time.Millisecond

	// depthLevels is how many best levels per side count toward depth.
	depthLevels = 5

	// spoofDepthChange is the top-depth change ratio beyond which a book
	// update counts as a potential spoof event.
	spoofDepthChange = 0.05

	// layeringEMAWeight blends the new layering observation into the running
	// score: score = (1-w)*old + w*new.
	layeringEMAWeight = 0.2

	// realizedDepthFactor is the synthetic fraction of promised depth
	// treated as realized. A placeholder standing in for true fill
	// confirmation.
	realizedDepthFactor = "0.8"
)

// Config tunes the engine's bucket threshold and channel capacity.
type Config struct {
	BucketSize decimal.Decimal // quote units per VPIN bucket
	ChannelCap int
}

// DefaultConfig returns the standard bucket size and channel capacity.
func DefaultConfig() Config {
	return Config{
		BucketSize: decimal.NewFromInt(10_000),
		ChannelCap: DefaultChannelCap,
	}
}

// bucketAccumulator collects buy/sell volume toward the next VPIN bucket.
type bucketAccumulator struct {
	current decimal.Decimal
	buy     decimal.Decimal
	sell    decimal.Decimal
	size    decimal.Decimal
}

// orderFlow tallies order lifecycle behavior.
type orderFlow struct {
	lifetimesMs []float64
	cancels     uint64
	total       uint64
	fleeting    uint64
}

// phantomTracker accumulates the layering EMA, spoof-event counter, and
// promised vs realized depth.
type phantomTracker struct {
	layeringScore float64
	spoofEvents   float64
	promisedDepth decimal.Decimal
	realizedDepth decimal.Decimal
}

// Engine is the streaming metrics engine. Create with New, feed through the
// Offer* methods, and drive with Run.
type Engine struct {
	trades chan domain.Fill
	books  chan domain.OrderBookSnapshot
	orders chan domain.OrderEvent

	dropped atomic.Uint64

	mu           sync.RWMutex
	tradeBuffer  []domain.Fill
	bookByCoin   map[string]domain.OrderBookSnapshot
	vpinRing     []float64
	bucket       bucketAccumulator
	flow         orderFlow
	phantom      phantomTracker
	activeOrders map[uint64]time.Time
	totalVolume  decimal.Decimal
	volumeByCoin map[string]decimal.Decimal

	realizedFactor decimal.Decimal
	now            func() time.Time
	logger         *slog.Logger
}

// New creates an engine with the given configuration.
func New(cfg Config, logger *slog.Logger) *Engine {
	if cfg.ChannelCap <= 0 {
		cfg.ChannelCap = DefaultChannelCap
	}
	if cfg.BucketSize.IsZero() {
		cfg.BucketSize = decimal.NewFromInt(10_000)
	}
	return &Engine{
		trades:         make(chan domain.Fill, cfg.ChannelCap),
		books:          make(chan domain.OrderBookSnapshot, cfg.ChannelCap),
		orders:         make(chan domain.OrderEvent, cfg.ChannelCap),
		bookByCoin:     make(map[string]domain.OrderBookSnapshot),
		bucket:         bucketAccumulator{size: cfg.BucketSize},
		activeOrders:   make(map[uint64]time.Time),
		volumeByCoin:   make(map[string]decimal.Decimal),
		realizedFactor: decimal.RequireFromString(realizedDepthFactor),
		now:            time.Now,
		logger:         logger.With(slog.String("component", "stream_engine")),
	}
}

// OfferTrade hands a fill to the engine without blocking. Returns false when
// the channel was full and the event was dropped.
func (e *Engine) OfferTrade(f domain.Fill) bool {
	select {
	case e.trades <- f:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

// OfferBook hands an order-book snapshot to the engine without blocking.
func (e *Engine) OfferBook(s domain.OrderBookSnapshot) bool {
	select {
	case e.books <- s:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

// OfferOrder hands an order lifecycle event to the engine without blocking.
func (e *Engine) OfferOrder(ev domain.OrderEvent) bool {
	select {
	case e.orders <- ev:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

// Dropped reports how many events have been discarded due to full channels.
func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

// Run processes events until ctx is cancelled, one message per wakeup. All
// state mutation is serialized here.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.InfoContext(ctx, "streaming metrics engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.InfoContext(ctx, "streaming metrics engine stopped",
				slog.Uint64("dropped_events", e.dropped.Load()),
			)
			return ctx.Err()
		case f := <-e.trades:
			e.mu.Lock()
			e.handleTrade(f)
			e.mu.Unlock()
		case s := <-e.books:
			e.mu.Lock()
			e.handleBookUpdate(s)
			e.mu.Unlock()
		case ev := <-e.orders:
			e.mu.Lock()
			e.handleOrderEvent(ev)
			e.mu.Unlock()
		}
	}
}

// handleTrade folds a fill into the VPIN bucket, volume tallies, and the
// bounded trade buffer.
func (e *Engine) handleTrade(f domain.Fill) {
	volume := f.Notional()
	e.totalVolume = e.totalVolume.Add(volume)
	e.volumeByCoin[f.Coin] = e.volumeByCoin[f.Coin].Add(volume)

	if f.Side == domain.SideBuy {
		e.bucket.buy = e.bucket.buy.Add(volume)
	} else {
		e.bucket.sell = e.bucket.sell.Add(volume)
	}
	e.bucket.current = e.bucket.current.Add(volume)

	if e.bucket.current.GreaterThanOrEqual(e.bucket.size) {
		total := e.bucket.buy.Add(e.bucket.sell)
		if total.IsPositive() {
			imbalance := e.bucket.buy.Sub(e.bucket.sell).Abs()
			vpin := imbalance.Div(total).InexactFloat64()
			e.vpinRing = append(e.vpinRing, vpin)
			if len(e.vpinRing) > vpinRingCap {
				e.vpinRing = e.vpinRing[1:]
			}
			e.logger.Debug("vpin bucket completed", slog.Float64("imbalance", vpin))
		}
		e.bucket.current = decimal.Zero
		e.bucket.buy = decimal.Zero
		e.bucket.sell = decimal.Zero
	}

	e.tradeBuffer = append(e.tradeBuffer, f)
	if len(e.tradeBuffer) > tradeBufferCap {
		e.tradeBuffer = e.tradeBuffer[1:]
	}
}

// handleOrderEvent maintains the open-order table and order-flow tallies.
// Fill/cancel events for unknown order ids are late or duplicate deliveries
// and are ignored without touching any counter.
func (e *Engine) handleOrderEvent(ev domain.OrderEvent) {
	switch ev.Action {
	case domain.OrderNew:
		e.activeOrders[ev.OrderID] = e.now()
	case domain.OrderFilled, domain.OrderCancelled:
		start, ok := e.activeOrders[ev.OrderID]
		if !ok {
			return
		}
		delete(e.activeOrders, ev.OrderID)

		lifetime := e.now().Sub(start)
		e.flow.total++
		e.flow.lifetimesMs = append(e.flow.lifetimesMs, float64(lifetime)/float64(time.Millisecond))
		if lifetime < fleetingCutoff {
			e.flow.fleeting++
		}
		if ev.Action == domain.OrderCancelled {
			e.flow.cancels++
		}
		if len(e.flow.lifetimesMs) > lifetimeWindowCap {
			e.flow.lifetimesMs = e.flow.lifetimesMs[1:]
		}
	}
}

// handleBookUpdate diffs the new snapshot against the previous one for the
// coin (when present), updates the phantom-liquidity accumulators, and
// retains the new snapshot.
func (e *Engine) handleBookUpdate(s domain.OrderBookSnapshot) {
	if prev, ok := e.bookByCoin[s.Coin]; ok {
		e.detectPhantomLiquidity(prev, s)
	}
	e.bookByCoin[s.Coin] = s
}

func (e *Engine) detectPhantomLiquidity(prev, cur domain.OrderBookSnapshot) {
	depthChange := depthChangeRatio(prev, cur)
	observed := layeringObservation(prev, cur)

	e.phantom.layeringScore = clamp01(
		e.phantom.layeringScore*(1-layeringEMAWeight) + observed*layeringEMAWeight)

	if math.Abs(depthChange) > spoofDepthChange {
		// Deliberately damped: the increment shrinks toward zero as order
		// volume grows.
		increment := 1.0
		if e.flow.total > 0 {
			increment = math.Min(1, 1/float64(e.flow.total))
		}
		e.phantom.spoofEvents += increment
		e.logger.Debug("potential spoofing detected",
			slog.String("coin", cur.Coin),
			slog.Float64("depth_change", depthChange),
		)
	}

	promised := topDepth(cur)
	e.phantom.promisedDepth = e.phantom.promisedDepth.Add(promised)
	e.phantom.realizedDepth = e.phantom.realizedDepth.Add(promised.Mul(e.realizedFactor))
}

// depthChangeRatio is (currentTopDepth - previousTopDepth)/previousTopDepth
// over the best levels of both sides, 0 when the previous depth was zero.
func depthChangeRatio(prev, cur domain.OrderBookSnapshot) float64 {
	prevDepth := topDepth(prev)
	if prevDepth.IsZero() {
		return 0
	}
	return topDepth(cur).Sub(prevDepth).Div(prevDepth).InexactFloat64()
}

// topDepth sums the sizes of the best depthLevels levels on each side.
func topDepth(s domain.OrderBookSnapshot) decimal.Decimal {
	var depth decimal.Decimal
	for i, l := range s.Bids {
		if i >= depthLevels {
			break
		}
		depth = depth.Add(l.Size)
	}
	for i, l := range s.Asks {
		if i >= depthLevels {
			break
		}
		depth = depth.Add(l.Size)
	}
	return depth
}

// layeringObservation scores one book transition for layering patterns:
// 0.2 when either side's level count grew by more than 3, plus 0.3 when more
// than 5 resting orders share identical prices across the book.
func layeringObservation(prev, cur domain.OrderBookSnapshot) float64 {
	score := 0.0
	if len(cur.Bids) > len(prev.Bids)+3 || len(cur.Asks) > len(prev.Asks)+3 {
		score += 0.2
	}
	if samePriceOrders(cur) > 5 {
		score += 0.3
	}
	return clamp01(score)
}

// samePriceOrders counts resting orders at price points shared by more than
// one order across both sides.
func samePriceOrders(s domain.OrderBookSnapshot) int {
	counts := make(map[string]int)
	for _, l := range s.Bids {
		counts[l.Price.String()] += l.Orders
	}
	for _, l := range s.Asks {
		counts[l.Price.String()] += l.Orders
	}
	total := 0
	for _, n := range counts {
		if n > 1 {
			total += n
		}
	}
	return total
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
