// Package hyperliquid implements the Hyperliquid exchange adapters: a REST
// client for the info endpoint (batch snapshots) and a websocket stream
// client for trades, book updates, and order events.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

const (
	DefaultBaseURL = "https://api.hyperliquid.xyz"
	DefaultWSURL   = "wss://api.hyperliquid.xyz/ws"

	defaultHTTPTimeout = 10 * time.Second
	maxFillsPerRequest = 2000
)

// Client talks to the Hyperliquid info endpoint. All snapshot queries are a
// POST to /info with a typed request body.
type Client struct {
	baseURL string
	vault   string
	coins   []string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds an info client for the given vault address. coins is the
// set of books to fetch per cycle; when empty the active universe from Meta
// is used instead.
func NewClient(baseURL, vaultAddress string, coins []string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		vault:   vaultAddress,
		coins:   coins,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:  logger.With(slog.String("component", "hyperliquid")),
	}
}

var _ domain.Provider = (*Client)(nil)

// Meta returns the tradeable asset universe.
func (c *Client) Meta(ctx context.Context) (domain.Meta, error) {
	var resp wireMeta
	if err := c.post(ctx, map[string]any{"type": "meta"}, &resp); err != nil {
		return domain.Meta{}, fmt.Errorf("hyperliquid: meta: %w", err)
	}
	return resp.toDomain(), nil
}

// VaultSummary returns vault-level state for the configured vault.
func (c *Client) VaultSummary(ctx context.Context) (domain.VaultSummary, error) {
	var resp wireVaultDetails
	req := map[string]any{"type": "vaultDetails", "vaultAddress": c.vault}
	if err := c.post(ctx, req, &resp); err != nil {
		return domain.VaultSummary{}, fmt.Errorf("hyperliquid: vault details: %w", err)
	}
	vs := resp.toDomain()
	if vs.VaultAddress == "" {
		vs.VaultAddress = c.vault
	}
	return vs, nil
}

// AccountState returns the clearinghouse margin state for the vault address.
func (c *Client) AccountState(ctx context.Context) (domain.AccountState, error) {
	var resp wireClearinghouseState
	req := map[string]any{"type": "clearinghouseState", "user": c.vault}
	if err := c.post(ctx, req, &resp); err != nil {
		return domain.AccountState{}, fmt.Errorf("hyperliquid: clearinghouse state: %w", err)
	}
	return resp.toDomain(), nil
}

// RecentFills returns the vault's most recent fills, newest last.
func (c *Client) RecentFills(ctx context.Context) ([]domain.Fill, error) {
	var resp []wireFill
	req := map[string]any{"type": "userFills", "user": c.vault}
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("hyperliquid: user fills: %w", err)
	}
	if len(resp) > maxFillsPerRequest {
		resp = resp[len(resp)-maxFillsPerRequest:]
	}
	fills := make([]domain.Fill, 0, len(resp))
	for _, f := range resp {
		fills = append(fills, f.toDomain())
	}
	return fills, nil
}

// OrderBooks returns one L2 snapshot per watched coin. A coin whose book
// fetch fails is skipped with a warning rather than failing the batch.
func (c *Client) OrderBooks(ctx context.Context) (map[string]domain.OrderBookSnapshot, error) {
	coins := c.coins
	if len(coins) == 0 {
		meta, err := c.Meta(ctx)
		if err != nil {
			return nil, err
		}
		for _, a := range meta.Universe {
			if !a.OnlyIsolated && a.MaxLeverage > 1 {
				coins = append(coins, a.Name)
			}
		}
	}
	books := make(map[string]domain.OrderBookSnapshot, len(coins))
	for _, coin := range coins {
		var resp wireL2Book
		req := map[string]any{"type": "l2Book", "coin": coin}
		if err := c.post(ctx, req, &resp); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("hyperliquid: l2 book: %w", ctx.Err())
			}
			c.logger.Warn("order book fetch failed",
				slog.String("coin", coin),
				slog.String("error", err.Error()))
			continue
		}
		snap := resp.toDomain()
		if snap.Coin == "" {
			snap.Coin = coin
		}
		books[coin] = snap
	}
	return books, nil
}

func (c *Client) post(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", domain.ErrFetchFailed, resp.StatusCode, truncate(raw, 256))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
