package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prop-engine/internal/feed"
	"github.com/redis/go-redis/v9"
)

const (
	// A quote older than this is treated as unavailable
	quoteStaleAfter = 5 * time.Second

	priceUpdateChannel = "price_updates"
)

// PriceService maintains the live quote snapshot. Quotes arrive from the feed
// provider, are kept in memory, mirrored into redis hashes with a short TTL,
// and published for subscribers.
type PriceService struct {
	redis    *redis.Client
	provider feed.Provider
	symbols  []string

	quotes    map[string]feed.Quote
	quotesMux sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPriceService creates a new PriceService
func NewPriceService(redisClient *redis.Client, provider feed.Provider, symbols []string) *PriceService {
	return &PriceService{
		redis:    redisClient,
		provider: provider,
		symbols:  symbols,
		quotes:   make(map[string]feed.Quote),
	}
}

// Start connects the feed and subscribes the default symbol set
func (s *PriceService) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.provider.SetSubscriber(s)

	if err := s.provider.Connect(s.ctx); err != nil {
		return fmt.Errorf("failed to connect feed: %w", err)
	}

	if len(s.symbols) > 0 {
		if err := s.provider.Subscribe(s.symbols); err != nil {
			log.Printf("[PriceService] Failed to subscribe: %v", err)
		}
	}

	log.Printf("[PriceService] Started with %d symbols", len(s.symbols))
	return nil
}

// OnQuote implements feed.Subscriber
func (s *PriceService) OnQuote(q feed.Quote) {
	s.quotesMux.Lock()
	s.quotes[q.Symbol] = q
	s.quotesMux.Unlock()

	key := fmt.Sprintf("quote:%s", q.Symbol)

	s.redis.HSet(s.ctx, key, map[string]interface{}{
		"bid":       q.Bid,
		"ask":       q.Ask,
		"timestamp": q.Timestamp,
	})
	s.redis.Expire(s.ctx, key, quoteStaleAfter)

	s.redis.Publish(s.ctx, priceUpdateChannel, fmt.Sprintf("%s:%.8f:%.8f", q.Symbol, q.Bid, q.Ask))
}

// GetQuote returns the current quote for a symbol, trying memory first and
// falling back to redis
func (s *PriceService) GetQuote(symbol string) (feed.Quote, error) {
	s.quotesMux.RLock()
	q, ok := s.quotes[symbol]
	s.quotesMux.RUnlock()

	if ok && time.Now().UnixMilli()-q.Timestamp < quoteStaleAfter.Milliseconds() {
		return q, nil
	}

	key := fmt.Sprintf("quote:%s", symbol)
	vals, err := s.redis.HGetAll(s.ctx, key).Result()
	if err == nil && len(vals) > 0 {
		var stored feed.Quote
		stored.Symbol = symbol
		fmt.Sscanf(vals["bid"], "%f", &stored.Bid)
		fmt.Sscanf(vals["ask"], "%f", &stored.Ask)
		fmt.Sscanf(vals["timestamp"], "%d", &stored.Timestamp)
		if stored.Bid > 0 && stored.Ask > 0 {
			return stored, nil
		}
	}

	return feed.Quote{}, fmt.Errorf("no quote available for %s", symbol)
}

// Snapshot returns a copy of all fresh quotes, keyed by symbol. Stale entries
// are left out so the SL/TP sweep skips them.
func (s *PriceService) Snapshot() map[string]feed.Quote {
	now := time.Now().UnixMilli()

	s.quotesMux.RLock()
	defer s.quotesMux.RUnlock()

	out := make(map[string]feed.Quote, len(s.quotes))
	for symbol, q := range s.quotes {
		if now-q.Timestamp < quoteStaleAfter.Milliseconds() {
			out[symbol] = q
		}
	}
	return out
}

// IsConnected reports whether the feed is connected
func (s *PriceService) IsConnected() bool {
	return s.provider.IsConnected()
}

// Stop stops the price service
func (s *PriceService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.provider.Close(); err != nil {
		log.Printf("[PriceService] Error closing feed: %v", err)
	}
	log.Printf("[PriceService] Stopped")
}
