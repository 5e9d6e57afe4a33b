// Package feed connects the exchange websocket to the streaming metrics
// engine. It owns the subscription lifecycle and translates feed callbacks
// into non-blocking engine offers; under backpressure events are dropped by
// the engine, never buffered here.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/domain"
	"github.com/vaultwatch/vaultwatch/internal/platform/hyperliquid"
	"github.com/vaultwatch/vaultwatch/internal/stream"
)

// dropLogInterval bounds how often accumulated drop counts are reported.
const dropLogInterval = 30 * time.Second

// Feed subscribes to trades, L2 books, and order updates for the configured
// coins and pushes every event into the engine. It reconnects on disconnect.
type Feed struct {
	client    *hyperliquid.StreamClient
	engine    *stream.Engine
	coins     []string
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a feed for the given coins. client may be nil (streaming
// disabled), in which case Run returns immediately.
func New(client *hyperliquid.StreamClient, engine *stream.Engine, coins []string, logger *slog.Logger) *Feed {
	return &Feed{
		client: client,
		engine: engine,
		coins:  coins,
		logger: logger.With(slog.String("component", "feed")),
		done:   make(chan struct{}),
	}
}

// Run connects, subscribes, and blocks until ctx is cancelled or the feed is
// closed. Drop counts from the engine are reported periodically.
func (f *Feed) Run(ctx context.Context) error {
	if f.client == nil {
		f.logger.Info("streaming disabled, feed not started")
		return nil
	}
	if len(f.coins) == 0 {
		f.logger.Info("no coins to subscribe, exiting")
		return nil
	}

	f.client.OnTrade(func(fill domain.Fill) {
		f.engine.OfferTrade(fill)
	})
	f.client.OnBook(func(snap domain.OrderBookSnapshot) {
		f.engine.OfferBook(snap)
	})
	f.client.OnOrder(func(ev domain.OrderEvent) {
		f.engine.OfferOrder(ev)
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := f.client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}
	defer f.client.Close()

	if err := f.client.SubscribeTrades(ctx, f.coins); err != nil {
		return err
	}
	if err := f.client.SubscribeBooks(ctx, f.coins); err != nil {
		return err
	}
	if err := f.client.SubscribeOrders(ctx); err != nil {
		return err
	}
	f.logger.Info("feed subscribed", slog.Int("coins", len(f.coins)))

	ticker := time.NewTicker(dropLogInterval)
	defer ticker.Stop()

	var lastDropped uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-ticker.C:
			dropped := f.engine.Dropped()
			if dropped > lastDropped {
				f.logger.Warn("events dropped under backpressure",
					slog.Uint64("dropped", dropped-lastDropped),
					slog.Uint64("total", dropped),
				)
				lastDropped = dropped
			}
		}
	}
}

// Close stops the feed.
func (f *Feed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
