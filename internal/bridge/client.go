// Package bridge implements the market data gateway contract over a
// WebSocket stream from a platform bridge. The bridge pushes closed bars
// and tick quotes as JSON; the client caches them per symbol and serves
// the pipeline's pull-based lookups from that cache.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lia_trading/internal/broker"
	"lia_trading/internal/domain"
	"lia_trading/internal/infra"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	dialTimeout  = 10 * time.Second

	// maxBarsKept caps the per-symbol bar cache; the signal stage only
	// ever asks for period+buffer bars.
	maxBarsKept = 512
)

// streamMessage is one frame from the bridge.
type streamMessage struct {
	Type      string       `json:"type"` // "bar" or "tick"
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe,omitempty"`
	Bar       *domain.Bar  `json:"bar,omitempty"`
	Tick      *domain.Tick `json:"tick,omitempty"`
}

// subscribeRequest is sent once per (re)connect.
type subscribeRequest struct {
	Action    string   `json:"action"`
	Symbols   []string `json:"symbols"`
	Timeframe string   `json:"timeframe"`
}

// Client is a reconnecting WebSocket consumer that satisfies
// broker.MarketData.
type Client struct {
	url       string
	symbols   []string
	timeframe string

	mu    sync.RWMutex
	bars  map[string][]domain.Bar
	ticks map[string]domain.Tick

	connMu sync.Mutex
	conn   *websocket.Conn

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewClient(url string, symbols []string, timeframe string) *Client {
	return &Client{
		url:       url,
		symbols:   symbols,
		timeframe: timeframe,
		bars:      make(map[string][]domain.Bar),
		ticks:     make(map[string]domain.Tick),
	}
}

// Start launches the connect/read loop. It returns immediately; data
// becomes available as the bridge streams it.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.runLoop(ctx)
}

// Stop terminates the connection and waits for the loop to exit.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConn()
	c.wg.Wait()
}

func (c *Client) runLoop(ctx context.Context) {
	defer c.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connect(ctx); err != nil {
			delay := infra.CalculateBackoff(retry)
			retry++
			slog.Warn("bridge: connection failed",
				slog.Any("error", err),
				slog.Int("retry", retry),
				slog.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		c.readLoop(ctx)
	}
}

func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	sub := subscribeRequest{
		Action:    "subscribe",
		Symbols:   c.symbols,
		Timeframe: c.timeframe,
	}
	if err := conn.WriteJSON(sub); err != nil {
		c.closeConn()
		return err
	}

	go c.pingLoop(ctx, conn)

	slog.Info("bridge: connected",
		slog.String("url", c.url),
		slog.Int("symbols", len(c.symbols)),
	)
	return nil
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			same := c.conn == conn
			c.connMu.Unlock()
			if !same {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.closeConn()
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("bridge: read failed, reconnecting", slog.Any("error", err))
			c.closeConn()
			return
		}
		c.handleMessage(payload)
	}
}

func (c *Client) handleMessage(payload []byte) {
	var msg streamMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		slog.Warn("bridge: malformed frame", slog.Any("error", err))
		return
	}

	switch msg.Type {
	case "bar":
		if msg.Bar == nil || msg.Symbol == "" || msg.Timeframe != c.timeframe {
			return
		}
		c.appendBar(msg.Symbol, *msg.Bar)
	case "tick":
		if msg.Tick == nil || msg.Symbol == "" {
			return
		}
		c.mu.Lock()
		c.ticks[msg.Symbol] = *msg.Tick
		c.mu.Unlock()
	default:
		// Unknown frame types from newer bridge versions are ignored.
	}
}

func (c *Client) appendBar(symbol string, bar domain.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	series := c.bars[symbol]
	// Replace a re-sent bar for the same interval instead of duplicating.
	if n := len(series); n > 0 && !bar.Time.After(series[n-1].Time) {
		if bar.Time.Equal(series[n-1].Time) {
			series[n-1] = bar
		}
		return
	}
	series = append(series, bar)
	if len(series) > maxBarsKept {
		series = series[len(series)-maxBarsKept:]
	}
	c.bars[symbol] = series
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// LatestClosedBar returns the newest cached bar for the symbol.
func (c *Client) LatestClosedBar(ctx context.Context, symbol, timeframe string) (domain.Bar, error) {
	if timeframe != c.timeframe {
		return domain.Bar{}, broker.ErrUnavailable
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	series := c.bars[symbol]
	if len(series) == 0 {
		return domain.Bar{}, broker.ErrUnavailable
	}
	return series[len(series)-1], nil
}

// LatestClosedBars returns up to count cached bars, oldest first.
func (c *Client) LatestClosedBars(ctx context.Context, symbol, timeframe string, count int) ([]domain.Bar, error) {
	if timeframe != c.timeframe || count < 1 {
		return nil, broker.ErrUnavailable
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	series := c.bars[symbol]
	if len(series) == 0 {
		return nil, broker.ErrUnavailable
	}
	if count > len(series) {
		count = len(series)
	}
	out := make([]domain.Bar, count)
	copy(out, series[len(series)-count:])
	return out, nil
}

// LatestTick returns the newest cached quote for the symbol.
func (c *Client) LatestTick(ctx context.Context, symbol string) (domain.Tick, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tick, ok := c.ticks[symbol]
	if !ok {
		return domain.Tick{}, broker.ErrUnavailable
	}
	return tick, nil
}
