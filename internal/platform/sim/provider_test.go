package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

func TestVaultSummaryShape(t *testing.T) {
	p := New(1)

	vs, err := p.VaultSummary(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, vs.VaultAddress)
	assert.True(t, vs.TVL.IsPositive())
	assert.True(t, vs.Equity.IsPositive())
	assert.True(t, vs.DeployedLiquidity.Add(vs.IdleLiquidity).Equal(vs.TVL),
		"deployed plus idle must equal TVL")
	assert.Greater(t, vs.MaxDrawdown, 0.0)
}

func TestAccountStateMarginConsistency(t *testing.T) {
	p := New(1)

	as, err := p.AccountState(context.Background())
	require.NoError(t, err)

	require.Len(t, as.Positions, 3)
	var sum float64
	for _, pos := range as.Positions {
		mu, _ := pos.MarginUsed.Float64()
		sum += mu
	}
	total, _ := as.TotalMarginUsed.Float64()
	assert.InDelta(t, sum, total, 1e-6)
}

func TestRecentFillsReferenceTradeableCoins(t *testing.T) {
	p := New(7)

	meta, err := p.Meta(context.Background())
	require.NoError(t, err)
	tradeable := make(map[string]bool)
	for _, a := range meta.Universe {
		tradeable[a.Name] = true
	}

	fills, err := p.RecentFills(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, fills)
	for _, f := range fills {
		assert.True(t, tradeable[f.Coin], "unknown coin %s", f.Coin)
		assert.True(t, f.Price.IsPositive())
		assert.True(t, f.Size.IsPositive())
		assert.True(t, f.Side == domain.SideBuy || f.Side == domain.SideSell)
	}
}

func TestOrderBooksAreWellFormed(t *testing.T) {
	p := New(7)

	books, err := p.OrderBooks(context.Background())
	require.NoError(t, err)

	require.Len(t, books, 3)
	for coin, book := range books {
		require.NotEmpty(t, book.Bids, "%s bids", coin)
		require.NotEmpty(t, book.Asks, "%s asks", coin)
		assert.True(t, book.Bids[0].Price.LessThan(book.Asks[0].Price),
			"%s book is crossed", coin)
		for i := 1; i < len(book.Bids); i++ {
			assert.True(t, book.Bids[i].Price.LessThan(book.Bids[i-1].Price),
				"%s bids out of order", coin)
		}
	}
}

func TestContextCancellationPropagates(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.VaultSummary(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = p.RecentFills(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = p.OrderBooks(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
