// Package domain defines the value types shared across the vaultwatch core:
// market events, account snapshots, computed metrics, and alerts. Types here
// are plain data; all monetary and quantity fields use decimal.Decimal so
// sums of price*size are bit-reproducible.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies the aggressing side of a fill or resting order, using the
// exchange's single-letter encoding.
type Side string

const (
	SideBuy  Side = "B"
	SideSell Side = "A"
)

// Fill is a single trade execution reported by the exchange.
type Fill struct {
	Coin      string
	Price     decimal.Decimal
	Size      decimal.Decimal // signed; negative for reducing positions
	Side      Side
	Time      time.Time
	ClosedPnL decimal.Decimal
	Fee       decimal.Decimal
	OrderID   uint64
	Hash      string
	Crossed   bool
}

// Notional returns price * |size|, the quote-currency volume of the fill.
func (f Fill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Size.Abs())
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price  decimal.Decimal
	Size   decimal.Decimal
	Orders int // number of resting orders at this level
}

// OrderBookSnapshot is a full L2 snapshot for one coin. Bids and Asks are
// ordered best-first. A new snapshot wholly replaces the previous one for
// the same coin; consumers diff against the prior retained snapshot.
type OrderBookSnapshot struct {
	Coin string
	Time time.Time
	Bids []BookLevel
	Asks []BookLevel
}

// OrderAction is the lifecycle transition carried by an OrderEvent.
type OrderAction int

const (
	OrderNew OrderAction = iota
	OrderFilled
	OrderCancelled
)

// String returns the action name for logging.
func (a OrderAction) String() string {
	switch a {
	case OrderNew:
		return "new"
	case OrderFilled:
		return "filled"
	case OrderCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// OrderEvent is a single order lifecycle transition from the live feed.
type OrderEvent struct {
	OrderID uint64
	Action  OrderAction
	Coin    string
	Side    Side
	Price   decimal.Decimal
	Size    decimal.Decimal
	Time    time.Time
}

// AssetInfo describes one tradeable asset in the exchange universe.
type AssetInfo struct {
	Name         string
	SizeDecimals int
	MaxLeverage  int
	OnlyIsolated bool
}

// Meta is the exchange asset universe.
type Meta struct {
	Universe []AssetInfo
}

// VaultSummary is the batch-path snapshot of vault-level state.
type VaultSummary struct {
	VaultAddress      string
	TVL               decimal.Decimal
	Equity            decimal.Decimal
	APR               float64
	AllTimePnL        decimal.Decimal
	MaxDrawdown       float64
	NumDepositors     uint64
	PortfolioValue    decimal.Decimal
	DeployedLiquidity decimal.Decimal
	IdleLiquidity     decimal.Decimal
}

// Position is one open position inside an AccountState.
type Position struct {
	Symbol        string
	Size          decimal.Decimal
	EntryPrice    decimal.Decimal
	PositionValue decimal.Decimal
	UnrealizedPnL decimal.Decimal
	MarginUsed    decimal.Decimal
}

// AccountState is the batch-path snapshot of account margin state.
type AccountState struct {
	AccountValue    decimal.Decimal
	TotalMarginUsed decimal.Decimal
	TotalNtlPos     decimal.Decimal
	TotalRawUSD     decimal.Decimal
	Positions       []Position
}
