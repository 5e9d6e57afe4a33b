package stream

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(DefaultConfig(), logger)
}

func tradeEvent(coin string, side domain.Side, price, size float64) domain.Fill {
	return domain.Fill{
		Coin:  coin,
		Side:  side,
		Price: decimal.NewFromFloat(price),
		Size:  decimal.NewFromFloat(size),
	}
}

func bookWith(coin string, bids, asks []domain.BookLevel) domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{Coin: coin, Bids: bids, Asks: asks}
}

func lvl(price, size float64, orders int) domain.BookLevel {
	return domain.BookLevel{
		Price:  decimal.NewFromFloat(price),
		Size:   decimal.NewFromFloat(size),
		Orders: orders,
	}
}

func TestEngineVPINOneSidedBucket(t *testing.T) {
	e := testEngine(t)

	e.handleTrade(tradeEvent("BTC", domain.SideBuy, 6_000, 1))
	assert.Zero(t, e.View().VPIN, "bucket not yet complete")

	e.handleTrade(tradeEvent("BTC", domain.SideBuy, 6_000, 1))
	assert.InDelta(t, 1.0, e.View().VPIN, 1e-9)
}

func TestEngineVPINBalancedBucket(t *testing.T) {
	e := testEngine(t)

	e.handleTrade(tradeEvent("BTC", domain.SideBuy, 6_000, 1))
	e.handleTrade(tradeEvent("BTC", domain.SideSell, 6_000, 1))

	assert.InDelta(t, 0.0, e.View().VPIN, 1e-9)
}

func TestEngineVolumeTallies(t *testing.T) {
	e := testEngine(t)

	e.handleTrade(tradeEvent("BTC", domain.SideBuy, 100, 2))
	e.handleTrade(tradeEvent("ETH", domain.SideSell, 50, 4))

	v := e.View()
	assert.True(t, v.TotalVolume.Equal(decimal.NewFromInt(400)), "total %s", v.TotalVolume)
	assert.True(t, v.VolumeByCoin["BTC"].Equal(decimal.NewFromInt(200)))
	assert.True(t, v.VolumeByCoin["ETH"].Equal(decimal.NewFromInt(200)))
}

func TestEngineOrderLifecycle(t *testing.T) {
	e := testEngine(t)
	base := time.Unix(1_700_000_000, 0)
	current := base
	e.now = func() time.Time { return current }

	e.handleOrderEvent(domain.OrderEvent{OrderID: 1, Action: domain.OrderNew})
	current = base.Add(50 * time.Millisecond)
	e.handleOrderEvent(domain.OrderEvent{OrderID: 1, Action: domain.OrderCancelled})

	v := e.View()
	assert.InDelta(t, 1.0, v.FleetingRatio, 1e-9)
	assert.InDelta(t, 1.0, v.CancelRate, 1e-9)
	assert.InDelta(t, 50.0, v.AvgLifetimeMs, 1e-9)

	// A slow fill dilutes both ratios.
	e.handleOrderEvent(domain.OrderEvent{OrderID: 2, Action: domain.OrderNew})
	current = current.Add(400 * time.Millisecond)
	e.handleOrderEvent(domain.OrderEvent{OrderID: 2, Action: domain.OrderFilled})

	v = e.View()
	assert.InDelta(t, 0.5, v.FleetingRatio, 1e-9)
	assert.InDelta(t, 0.5, v.CancelRate, 1e-9)
	assert.InDelta(t, 225.0, v.AvgLifetimeMs, 1e-9)
}

func TestEngineIgnoresUnknownOrderIDs(t *testing.T) {
	e := testEngine(t)

	e.handleOrderEvent(domain.OrderEvent{OrderID: 99, Action: domain.OrderCancelled})

	v := e.View()
	assert.Zero(t, v.CancelRate)
	assert.Zero(t, v.FleetingRatio)
	assert.Zero(t, v.AvgLifetimeMs)
}

func TestEngineSpoofDetection(t *testing.T) {
	e := testEngine(t)

	first := bookWith("BTC",
		[]domain.BookLevel{lvl(99, 50, 1)},
		[]domain.BookLevel{lvl(101, 50, 1)},
	)
	// Top depth jumps from 100 to 120, a 20% change.
	second := bookWith("BTC",
		[]domain.BookLevel{lvl(99, 60, 1)},
		[]domain.BookLevel{lvl(101, 60, 1)},
	)

	e.handleBookUpdate(first)
	assert.Zero(t, e.View().SpoofEvents, "first snapshot has nothing to diff against")

	e.handleBookUpdate(second)
	v := e.View()
	assert.InDelta(t, 1.0, v.SpoofEvents, 1e-9)
	assert.InDelta(t, 0.8, v.RealizationRate, 1e-9)
}

func TestEngineSpoofIncrementDampedByOrderVolume(t *testing.T) {
	e := testEngine(t)
	base := time.Unix(1_700_000_000, 0)
	current := base
	e.now = func() time.Time { return current }

	// Four completed orders shrink the spoof increment to 1/4.
	for id := uint64(1); id <= 4; id++ {
		e.handleOrderEvent(domain.OrderEvent{OrderID: id, Action: domain.OrderNew})
		current = current.Add(time.Second)
		e.handleOrderEvent(domain.OrderEvent{OrderID: id, Action: domain.OrderFilled})
	}

	e.handleBookUpdate(bookWith("BTC",
		[]domain.BookLevel{lvl(99, 50, 1)},
		[]domain.BookLevel{lvl(101, 50, 1)},
	))
	e.handleBookUpdate(bookWith("BTC",
		[]domain.BookLevel{lvl(99, 60, 1)},
		[]domain.BookLevel{lvl(101, 60, 1)},
	))

	assert.InDelta(t, 0.25, e.View().SpoofEvents, 1e-9)
}

func TestEngineLayeringScore(t *testing.T) {
	e := testEngine(t)

	sparse := bookWith("ETH",
		[]domain.BookLevel{lvl(99, 1, 1)},
		[]domain.BookLevel{lvl(101, 1, 1)},
	)
	// Bid side grows by four levels in one update.
	stacked := bookWith("ETH",
		[]domain.BookLevel{
			lvl(99.0, 1, 1), lvl(98.9, 1, 1), lvl(98.8, 1, 1),
			lvl(98.7, 1, 1), lvl(98.6, 1, 1),
		},
		[]domain.BookLevel{lvl(101, 1, 1)},
	)

	e.handleBookUpdate(sparse)
	e.handleBookUpdate(stacked)

	// One observation of 0.2 blended at EMA weight 0.2.
	assert.InDelta(t, 0.04, e.View().LayeringScore, 1e-9)
}

func TestEngineSpreadsFromRetainedBooks(t *testing.T) {
	e := testEngine(t)

	e.handleBookUpdate(bookWith("BTC",
		[]domain.BookLevel{lvl(99.5, 1, 1)},
		[]domain.BookLevel{lvl(100.5, 1, 1)},
	))

	spreads := e.View().SpreadsBps
	require.Contains(t, spreads, "BTC")
	assert.InDelta(t, 100.0, spreads["BTC"], 1e-9)
}

func TestEngineOfferDropsWhenFull(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(Config{ChannelCap: 1}, logger)

	assert.True(t, e.OfferTrade(tradeEvent("BTC", domain.SideBuy, 1, 1)))
	assert.False(t, e.OfferTrade(tradeEvent("BTC", domain.SideBuy, 1, 1)))
	assert.Equal(t, uint64(1), e.Dropped())
}
