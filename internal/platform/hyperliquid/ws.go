package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// readWait is the time allowed between inbound messages before the
	// connection is considered dead.
	readWait = 60 * time.Second

	// pingPeriod sends application-level pings at this interval. Must be
	// less than readWait.
	pingPeriod = (readWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// TradeHandler is called for every trade batch received on the trades channel.
type TradeHandler func(domain.Fill)

// BookHandler is called for every full L2 snapshot received on the l2Book
// channel.
type BookHandler func(domain.OrderBookSnapshot)

// OrderHandler is called for every order lifecycle update received on the
// orderUpdates channel.
type OrderHandler func(domain.OrderEvent)

// StreamClient is a WebSocket client for the Hyperliquid real-time feed. It
// manages the connection lifecycle, subscriptions, and dispatches messages to
// registered handlers. A nil *StreamClient is a valid "streaming disabled"
// client: every method is a no-op.
type StreamClient struct {
	wsURL string
	vault string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []wsCommand

	// Handlers
	tradeHandlers []TradeHandler
	bookHandlers  []BookHandler
	orderHandlers []OrderHandler
	handlerMu     sync.RWMutex

	// done is closed when the client is shut down.
	done chan struct{}
}

// wsCommand is the outbound subscription envelope.
type wsCommand struct {
	Method       string         `json:"method"`
	Subscription map[string]any `json:"subscription,omitempty"`
}

// NewStreamClient creates a stream client for the given WebSocket URL and
// vault address. When enabled is false it returns nil; callers treat a nil
// client as "no live feed" and run batch-only.
func NewStreamClient(wsURL, vaultAddress string, enabled bool) *StreamClient {
	if !enabled {
		return nil
	}
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &StreamClient{
		wsURL: wsURL,
		vault: vaultAddress,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops.
func (w *StreamClient) Connect(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("hyperliquid/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("hyperliquid/ws: connect: %w", err)
	}

	w.conn = conn
	w.conn.SetReadDeadline(time.Now().Add(readWait))

	go w.readLoop()
	go w.pingLoop()

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("hyperliquid/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// SubscribeTrades subscribes to the trades channel for the given coins.
func (w *StreamClient) SubscribeTrades(ctx context.Context, coins []string) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("hyperliquid/ws: not connected")
	}

	for _, coin := range coins {
		cmd := wsCommand{
			Method:       "subscribe",
			Subscription: map[string]any{"type": "trades", "coin": coin},
		}
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("hyperliquid/ws: subscribe trades %s: %w", coin, err)
		}
		w.subscriptions = append(w.subscriptions, cmd)
	}

	return nil
}

// SubscribeBooks subscribes to L2 book snapshots for the given coins.
func (w *StreamClient) SubscribeBooks(ctx context.Context, coins []string) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("hyperliquid/ws: not connected")
	}

	for _, coin := range coins {
		cmd := wsCommand{
			Method:       "subscribe",
			Subscription: map[string]any{"type": "l2Book", "coin": coin},
		}
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("hyperliquid/ws: subscribe l2Book %s: %w", coin, err)
		}
		w.subscriptions = append(w.subscriptions, cmd)
	}

	return nil
}

// SubscribeOrders subscribes to order lifecycle updates for the vault address.
func (w *StreamClient) SubscribeOrders(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("hyperliquid/ws: not connected")
	}

	cmd := wsCommand{
		Method:       "subscribe",
		Subscription: map[string]any{"type": "orderUpdates", "user": w.vault},
	}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("hyperliquid/ws: subscribe orderUpdates: %w", err)
	}
	w.subscriptions = append(w.subscriptions, cmd)

	return nil
}

// Close shuts down the WebSocket connection and stops the read loop.
func (w *StreamClient) Close() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// OnTrade registers a handler for trades-channel fills.
func (w *StreamClient) OnTrade(handler TradeHandler) {
	if w == nil {
		return
	}
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.tradeHandlers = append(w.tradeHandlers, handler)
}

// OnBook registers a handler for l2Book-channel snapshots.
func (w *StreamClient) OnBook(handler BookHandler) {
	if w == nil {
		return
	}
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.bookHandlers = append(w.bookHandlers, handler)
}

// OnOrder registers a handler for orderUpdates-channel events.
func (w *StreamClient) OnOrder(handler OrderHandler) {
	if w == nil {
		return
	}
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.orderHandlers = append(w.orderHandlers, handler)
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// sendCommand sends a JSON command to the WebSocket. Caller must hold w.mu.
func (w *StreamClient) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads messages from the WebSocket and dispatches
// them to the appropriate handlers. On disconnect, it attempts to reconnect
// with exponential backoff.
func (w *StreamClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		conn.SetReadDeadline(time.Now().Add(readWait))
		w.handleMessage(message)
	}
}

// pingLoop sends periodic application-level pings. Hyperliquid expects a
// JSON {"method":"ping"} message rather than a WebSocket control frame.
func (w *StreamClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			conn := w.conn
			if conn == nil {
				w.mu.Unlock()
				return
			}
			err := w.sendCommand(wsCommand{Method: "ping"})
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// wsTrade is one element of a trades-channel data array.
type wsTrade struct {
	Coin  string   `json:"coin"`
	Side  string   `json:"side"`
	Px    string   `json:"px"`
	Sz    string   `json:"sz"`
	Time  int64    `json:"time"`
	Hash  string   `json:"hash"`
	Tid   uint64   `json:"tid"`
	Users []string `json:"users"`
}

// wsOrderUpdate is one element of an orderUpdates-channel data array.
type wsOrderUpdate struct {
	Order struct {
		Coin      string `json:"coin"`
		Side      string `json:"side"`
		LimitPx   string `json:"limitPx"`
		Sz        string `json:"sz"`
		Oid       uint64 `json:"oid"`
		Timestamp int64  `json:"timestamp"`
	} `json:"order"`
	Status          string `json:"status"`
	StatusTimestamp int64  `json:"statusTimestamp"`
}

// handleMessage parses a raw WebSocket message and routes it to the
// appropriate handler based on the channel field.
func (w *StreamClient) handleMessage(raw []byte) {
	var envelope struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return // Silently drop unparseable messages.
	}

	switch envelope.Channel {
	case "trades":
		var trades []wsTrade
		if err := json.Unmarshal(envelope.Data, &trades); err != nil {
			return
		}

		w.handlerMu.RLock()
		handlers := w.tradeHandlers
		w.handlerMu.RUnlock()

		for _, t := range trades {
			fill := domain.Fill{
				Coin:    t.Coin,
				Price:   parseDecimal(t.Px),
				Size:    parseDecimal(t.Sz),
				Side:    domain.Side(t.Side),
				Time:    time.UnixMilli(t.Time).UTC(),
				OrderID: t.Tid,
				Hash:    t.Hash,
			}
			for _, h := range handlers {
				h(fill)
			}
		}

	case "l2Book":
		var book wireL2Book
		if err := json.Unmarshal(envelope.Data, &book); err != nil {
			return
		}
		snap := book.toDomain()

		w.handlerMu.RLock()
		handlers := w.bookHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(snap)
		}

	case "orderUpdates":
		var updates []wsOrderUpdate
		if err := json.Unmarshal(envelope.Data, &updates); err != nil {
			return
		}

		w.handlerMu.RLock()
		handlers := w.orderHandlers
		w.handlerMu.RUnlock()

		for _, u := range updates {
			ev := domain.OrderEvent{
				OrderID: u.Order.Oid,
				Action:  orderAction(u.Status),
				Coin:    u.Order.Coin,
				Side:    domain.Side(u.Order.Side),
				Price:   parseDecimal(u.Order.LimitPx),
				Size:    parseDecimal(u.Order.Sz),
				Time:    time.UnixMilli(u.StatusTimestamp).UTC(),
			}
			for _, h := range handlers {
				h(ev)
			}
		}
	}
}

// orderAction maps a Hyperliquid order status string to the lifecycle action.
// Terminal cancel-like statuses all count as cancellations.
func orderAction(status string) domain.OrderAction {
	switch status {
	case "open":
		return domain.OrderNew
	case "filled":
		return domain.OrderFilled
	default:
		return domain.OrderCancelled
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. It blocks until successful or the client is closed.
func (w *StreamClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
