package domain

import "context"

// Provider is the snapshot-fetch contract implemented by the exchange layer.
// Each call may fail; a failed call aborts the current update cycle and the
// previously published metrics remain in place.
type Provider interface {
	VaultSummary(ctx context.Context) (VaultSummary, error)
	AccountState(ctx context.Context) (AccountState, error)
	Meta(ctx context.Context) (Meta, error)
	RecentFills(ctx context.Context) ([]Fill, error)
	OrderBooks(ctx context.Context) (map[string]OrderBookSnapshot, error)
}
