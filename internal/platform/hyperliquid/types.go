package hyperliquid

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

// Wire DTOs for the Hyperliquid info endpoint. Numeric fields arrive as
// strings and are parsed with parseDecimal; a malformed number maps to zero
// rather than failing the whole snapshot.

type wireAsset struct {
	Name         string `json:"name"`
	SzDecimals   int    `json:"szDecimals"`
	MaxLeverage  int    `json:"maxLeverage"`
	OnlyIsolated bool   `json:"onlyIsolated"`
}

type wireMeta struct {
	Universe []wireAsset `json:"universe"`
}

type wireFill struct {
	Coin      string `json:"coin"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	Side      string `json:"side"`
	Time      int64  `json:"time"`
	ClosedPnl string `json:"closedPnl"`
	Hash      string `json:"hash"`
	Oid       uint64 `json:"oid"`
	Crossed   bool   `json:"crossed"`
	Fee       string `json:"fee"`
}

type wireLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

type wireL2Book struct {
	Coin   string        `json:"coin"`
	Time   int64         `json:"time"`
	Levels [][]wireLevel `json:"levels"` // [bids, asks], best first
}

type wireMarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalMarginUsed string `json:"totalMarginUsed"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
}

type wirePosition struct {
	Position struct {
		Coin          string `json:"coin"`
		Szi           string `json:"szi"`
		EntryPx       string `json:"entryPx"`
		PositionValue string `json:"positionValue"`
		UnrealizedPnl string `json:"unrealizedPnl"`
		MarginUsed    string `json:"marginUsed"`
	} `json:"position"`
}

type wireClearinghouseState struct {
	MarginSummary  wireMarginSummary `json:"marginSummary"`
	AssetPositions []wirePosition    `json:"assetPositions"`
}

type wireVaultDetails struct {
	VaultAddress   string  `json:"vaultAddress"`
	Tvl            string  `json:"tvl"`
	Equity         string  `json:"equity"`
	Apr            float64 `json:"apr"`
	AllTimePnl     string  `json:"allTimePnl"`
	MaxDrawdown    float64 `json:"maxDrawdown"`
	NumDepositors  uint64  `json:"numDepositors"`
	PortfolioValue string  `json:"portfolioValue"`
	DeployedLiq    string  `json:"deployedLiquidity"`
	IdleLiq        string  `json:"idleLiquidity"`
}

// parseDecimal converts a wire string to a Decimal, mapping malformed input
// to zero.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (w wireMeta) toDomain() domain.Meta {
	universe := make([]domain.AssetInfo, 0, len(w.Universe))
	for _, a := range w.Universe {
		universe = append(universe, domain.AssetInfo{
			Name:         a.Name,
			SizeDecimals: a.SzDecimals,
			MaxLeverage:  a.MaxLeverage,
			OnlyIsolated: a.OnlyIsolated,
		})
	}
	return domain.Meta{Universe: universe}
}

func (w wireFill) toDomain() domain.Fill {
	return domain.Fill{
		Coin:      w.Coin,
		Price:     parseDecimal(w.Px),
		Size:      parseDecimal(w.Sz),
		Side:      domain.Side(w.Side),
		Time:      time.UnixMilli(w.Time).UTC(),
		ClosedPnL: parseDecimal(w.ClosedPnl),
		Fee:       parseDecimal(w.Fee),
		OrderID:   w.Oid,
		Hash:      w.Hash,
		Crossed:   w.Crossed,
	}
}

func (w wireL2Book) toDomain() domain.OrderBookSnapshot {
	snap := domain.OrderBookSnapshot{
		Coin: w.Coin,
		Time: time.UnixMilli(w.Time).UTC(),
	}
	if len(w.Levels) > 0 {
		snap.Bids = toLevels(w.Levels[0])
	}
	if len(w.Levels) > 1 {
		snap.Asks = toLevels(w.Levels[1])
	}
	return snap
}

func toLevels(in []wireLevel) []domain.BookLevel {
	out := make([]domain.BookLevel, 0, len(in))
	for _, l := range in {
		out = append(out, domain.BookLevel{
			Price:  parseDecimal(l.Px),
			Size:   parseDecimal(l.Sz),
			Orders: l.N,
		})
	}
	return out
}

func (w wireClearinghouseState) toDomain() domain.AccountState {
	positions := make([]domain.Position, 0, len(w.AssetPositions))
	for _, p := range w.AssetPositions {
		positions = append(positions, domain.Position{
			Symbol:        p.Position.Coin,
			Size:          parseDecimal(p.Position.Szi),
			EntryPrice:    parseDecimal(p.Position.EntryPx),
			PositionValue: parseDecimal(p.Position.PositionValue),
			UnrealizedPnL: parseDecimal(p.Position.UnrealizedPnl),
			MarginUsed:    parseDecimal(p.Position.MarginUsed),
		})
	}
	return domain.AccountState{
		AccountValue:    parseDecimal(w.MarginSummary.AccountValue),
		TotalMarginUsed: parseDecimal(w.MarginSummary.TotalMarginUsed),
		TotalNtlPos:     parseDecimal(w.MarginSummary.TotalNtlPos),
		TotalRawUSD:     parseDecimal(w.MarginSummary.TotalRawUsd),
		Positions:       positions,
	}
}

func (w wireVaultDetails) toDomain() domain.VaultSummary {
	return domain.VaultSummary{
		VaultAddress:      w.VaultAddress,
		TVL:               parseDecimal(w.Tvl),
		Equity:            parseDecimal(w.Equity),
		APR:               w.Apr,
		AllTimePnL:        parseDecimal(w.AllTimePnl),
		MaxDrawdown:       w.MaxDrawdown,
		NumDepositors:     w.NumDepositors,
		PortfolioValue:    parseDecimal(w.PortfolioValue),
		DeployedLiquidity: parseDecimal(w.DeployedLiq),
		IdleLiquidity:     parseDecimal(w.IdleLiq),
	}
}
