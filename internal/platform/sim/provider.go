// Package sim provides a synthetic exchange provider for demo mode. It
// implements the same snapshot contract as the live client but fabricates
// data deterministically, modulating values over elapsed time with sine
// waves so dashboards and alert paths can be exercised without network
// access.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

const (
	baseTVL      = 2_450_000.0
	baseEquity   = 2_612_000.0
	basePrice    = 43_250.0
	fillsPerPage = 120
	bookDepth    = 10
)

var simUniverse = []domain.AssetInfo{
	{Name: "BTC", SizeDecimals: 5, MaxLeverage: 50},
	{Name: "ETH", SizeDecimals: 4, MaxLeverage: 50},
	{Name: "SOL", SizeDecimals: 2, MaxLeverage: 20},
	{Name: "ARB", SizeDecimals: 1, MaxLeverage: 10},
	{Name: "PEPE", SizeDecimals: 0, MaxLeverage: 3, OnlyIsolated: true},
}

// Provider fabricates vault snapshots. Values drift sinusoidally with the
// time elapsed since construction, so repeated cycles show movement while a
// fixed seed keeps runs reproducible.
type Provider struct {
	start time.Time
	rng   *rand.Rand
	now   func() time.Time
}

var _ domain.Provider = (*Provider)(nil)

// New builds a provider seeded for reproducible output.
func New(seed int64) *Provider {
	return &Provider{
		start: time.Now(),
		rng:   rand.New(rand.NewSource(seed)),
		now:   time.Now,
	}
}

// phase returns the sine modulation for the current elapsed time, in the
// range [-1, 1], with one full cycle every ten minutes.
func (p *Provider) phase() float64 {
	elapsed := p.now().Sub(p.start).Seconds()
	return math.Sin(elapsed * 2 * math.Pi / 600)
}

func (p *Provider) VaultSummary(ctx context.Context) (domain.VaultSummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.VaultSummary{}, err
	}
	ph := p.phase()
	tvl := baseTVL * (1 + 0.02*ph)
	deployed := tvl * (0.6 + 0.15*ph)
	return domain.VaultSummary{
		VaultAddress:      "0x00000000000000000000000000000000000051e0",
		TVL:               decimal.NewFromFloat(tvl),
		Equity:            decimal.NewFromFloat(baseEquity * (1 + 0.015*ph)),
		APR:               0.18 + 0.04*ph,
		AllTimePnL:        decimal.NewFromFloat(162_000 + 4_000*ph),
		MaxDrawdown:       0.08 + 0.05*math.Abs(ph),
		NumDepositors:     124,
		PortfolioValue:    decimal.NewFromFloat(tvl),
		DeployedLiquidity: decimal.NewFromFloat(deployed),
		IdleLiquidity:     decimal.NewFromFloat(tvl - deployed),
	}, nil
}

func (p *Provider) AccountState(ctx context.Context) (domain.AccountState, error) {
	if err := ctx.Err(); err != nil {
		return domain.AccountState{}, err
	}
	ph := p.phase()
	positions := []domain.Position{
		p.position("BTC", 12.5, basePrice, ph),
		p.position("ETH", 180, 2280, ph),
		p.position("SOL", -4200, 98.5, ph),
	}
	marginUsed := 0.0
	for _, pos := range positions {
		mu, _ := pos.MarginUsed.Float64()
		marginUsed += mu
	}
	return domain.AccountState{
		AccountValue:    decimal.NewFromFloat(baseEquity * (1 + 0.015*ph)),
		TotalMarginUsed: decimal.NewFromFloat(marginUsed),
		TotalNtlPos:     decimal.NewFromFloat(marginUsed * 8),
		TotalRawUSD:     decimal.NewFromFloat(baseTVL),
		Positions:       positions,
	}, nil
}

func (p *Provider) position(coin string, size, price, ph float64) domain.Position {
	px := price * (1 + 0.01*ph)
	value := math.Abs(size) * px
	return domain.Position{
		Symbol:        coin,
		Size:          decimal.NewFromFloat(size),
		EntryPrice:    decimal.NewFromFloat(price),
		PositionValue: decimal.NewFromFloat(value),
		UnrealizedPnL: decimal.NewFromFloat(size * price * 0.01 * ph),
		MarginUsed:    decimal.NewFromFloat(value / 8),
	}
}

func (p *Provider) Meta(ctx context.Context) (domain.Meta, error) {
	if err := ctx.Err(); err != nil {
		return domain.Meta{}, err
	}
	universe := make([]domain.AssetInfo, len(simUniverse))
	copy(universe, simUniverse)
	return domain.Meta{Universe: universe}, nil
}

// RecentFills returns a page of synthetic fills. Roughly a quarter carry
// negative closed PnL so adverse selection and toxicity metrics have signal.
func (p *Provider) RecentFills(ctx context.Context) ([]domain.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ph := p.phase()
	now := p.now()
	fills := make([]domain.Fill, 0, fillsPerPage)
	for i := 0; i < fillsPerPage; i++ {
		coin := simUniverse[p.rng.Intn(3)].Name
		side := domain.SideBuy
		// Bias toward one side as the phase swings, so VPIN moves.
		if p.rng.Float64() > 0.5+0.3*ph {
			side = domain.SideSell
		}
		size := 0.1 + p.rng.Float64()*2
		pnl := p.rng.Float64() * 120
		if p.rng.Float64() < 0.25 {
			pnl = -pnl
		}
		fills = append(fills, domain.Fill{
			Coin:      coin,
			Price:     decimal.NewFromFloat(p.coinPrice(coin) * (1 + 0.002*(p.rng.Float64()-0.5))),
			Size:      decimal.NewFromFloat(size),
			Side:      side,
			Time:      now.Add(-time.Duration(fillsPerPage-i) * time.Second),
			ClosedPnL: decimal.NewFromFloat(pnl),
			Fee:       decimal.NewFromFloat(size * 0.0002),
			OrderID:   uint64(p.rng.Int63()),
			Hash:      fmt.Sprintf("0xsim%012d", i),
			Crossed:   p.rng.Float64() < 0.6,
		})
	}
	return fills, nil
}

func (p *Provider) coinPrice(coin string) float64 {
	switch coin {
	case "BTC":
		return basePrice
	case "ETH":
		return 2280
	case "SOL":
		return 98.5
	default:
		return 1
	}
}

func (p *Provider) OrderBooks(ctx context.Context) (map[string]domain.OrderBookSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := p.now()
	books := make(map[string]domain.OrderBookSnapshot, 3)
	for _, coin := range []string{"BTC", "ETH", "SOL"} {
		books[coin] = p.book(coin, now)
	}
	return books, nil
}

func (p *Provider) book(coin string, now time.Time) domain.OrderBookSnapshot {
	mid := p.coinPrice(coin) * (1 + 0.01*p.phase())
	tick := mid * 0.0001
	snap := domain.OrderBookSnapshot{Coin: coin, Time: now}
	for i := 1; i <= bookDepth; i++ {
		depth := (5 + p.rng.Float64()*20) / float64(i)
		snap.Bids = append(snap.Bids, domain.BookLevel{
			Price:  decimal.NewFromFloat(mid - tick*float64(i)),
			Size:   decimal.NewFromFloat(depth),
			Orders: 1 + p.rng.Intn(6),
		})
		snap.Asks = append(snap.Asks, domain.BookLevel{
			Price:  decimal.NewFromFloat(mid + tick*float64(i)),
			Size:   decimal.NewFromFloat(depth * (1 + 0.1*p.phase())),
			Orders: 1 + p.rng.Intn(6),
		})
	}
	return snap
}
