package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval         = 30 * time.Second
	reconnectDelay       = 5 * time.Second
	maxReconnectAttempts = 10
)

// Client is a WebSocket client for the upstream quote stream
type Client struct {
	wsURL       string
	conn        *websocket.Conn
	connMux     sync.RWMutex
	isConnected bool

	subscriber Subscriber
	subMux     sync.RWMutex

	subscribed    map[string]bool
	subscribedMux sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reconnectAttempts int
}

// NewClient creates a new quote stream client
func NewClient(wsURL string) *Client {
	return &Client{
		wsURL:      wsURL,
		subscribed: make(map[string]bool),
	}
}

// IsConnected returns whether the WebSocket is connected
func (c *Client) IsConnected() bool {
	c.connMux.RLock()
	defer c.connMux.RUnlock()
	return c.isConnected
}

// SetSubscriber sets the quote subscriber
func (c *Client) SetSubscriber(subscriber Subscriber) {
	c.subMux.Lock()
	defer c.subMux.Unlock()
	c.subscriber = subscriber
}

// Connect establishes the WebSocket connection and starts the read loops
func (c *Client) Connect(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(); err != nil {
		return err
	}

	c.wg.Add(1)
	go c.messageLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return nil
}

func (c *Client) connect() error {
	c.connMux.Lock()
	defer c.connMux.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to quote stream: %w", err)
	}

	c.conn = conn
	c.isConnected = true
	c.reconnectAttempts = 0

	log.Printf("[Feed] WebSocket connected to %s", c.wsURL)

	// Resubscribe to previous symbols
	c.subscribedMux.RLock()
	symbols := make([]string, 0, len(c.subscribed))
	for symbol := range c.subscribed {
		symbols = append(symbols, symbol)
	}
	c.subscribedMux.RUnlock()

	if len(symbols) > 0 {
		go c.subscribe(symbols)
	}

	return nil
}

// Subscribe subscribes to quotes for given symbols
func (c *Client) Subscribe(symbols []string) error {
	c.subscribedMux.Lock()
	for _, symbol := range symbols {
		c.subscribed[strings.ToUpper(symbol)] = true
	}
	c.subscribedMux.Unlock()

	return c.subscribe(symbols)
}

func (c *Client) subscribe(symbols []string) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected")
	}

	msg := map[string]interface{}{
		"action":  "subscribe",
		"symbols": symbols,
		"id":      time.Now().UnixNano(),
	}

	c.connMux.RLock()
	err := c.conn.WriteJSON(msg)
	c.connMux.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	log.Printf("[Feed] Subscribed to %d symbols", len(symbols))
	return nil
}

type quoteMessage struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Timestamp int64   `json:"timestamp"`
}

func (c *Client) messageLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.connMux.RLock()
		conn := c.conn
		c.connMux.RUnlock()

		if conn == nil {
			time.Sleep(reconnectDelay)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(err)
			continue
		}

		var msg quoteMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Symbol == "" || msg.Bid <= 0 || msg.Ask <= 0 {
			continue
		}

		c.subMux.RLock()
		subscriber := c.subscriber
		c.subMux.RUnlock()

		if subscriber != nil {
			ts := msg.Timestamp
			if ts == 0 {
				ts = time.Now().UnixMilli()
			}
			subscriber.OnQuote(Quote{
				Symbol:    strings.ToUpper(msg.Symbol),
				Bid:       msg.Bid,
				Ask:       msg.Ask,
				Timestamp: ts,
			})
		}
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.connMux.RLock()
			conn := c.conn
			connected := c.isConnected
			c.connMux.RUnlock()

			if !connected || conn == nil {
				continue
			}

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[Feed] Ping failed: %v", err)
			}
		}
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connMux.Lock()
	c.isConnected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMux.Unlock()

	select {
	case <-c.ctx.Done():
		return
	default:
	}

	if c.reconnectAttempts >= maxReconnectAttempts {
		log.Printf("[Feed] Giving up after %d reconnect attempts", c.reconnectAttempts)
		return
	}
	c.reconnectAttempts++

	log.Printf("[Feed] Disconnected (%v), reconnecting in %v (attempt %d)", err, reconnectDelay, c.reconnectAttempts)
	time.Sleep(reconnectDelay)

	if err := c.connect(); err != nil {
		log.Printf("[Feed] Reconnect failed: %v", err)
	}
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}

	c.connMux.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.isConnected = false
	c.connMux.Unlock()

	c.wg.Wait()
	return nil
}
