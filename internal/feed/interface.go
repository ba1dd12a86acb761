package feed

import (
	"context"
)

// Quote represents one real-time bid/ask observation for a symbol
type Quote struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Timestamp int64   `json:"timestamp"`
}

// Mid returns the quote midpoint
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Subscriber receives quote updates from a provider
type Subscriber interface {
	OnQuote(q Quote)
}

// Provider is a live price stream
type Provider interface {
	// Connect establishes the stream connection
	Connect(ctx context.Context) error

	// Subscribe subscribes to quotes for given symbols
	Subscribe(symbols []string) error

	// SetSubscriber sets the quote subscriber
	SetSubscriber(subscriber Subscriber)

	// IsConnected returns whether the stream is connected
	IsConnected() bool

	// Close closes the stream
	Close() error
}
