package worker

import (
	"errors"
	"log"
	"time"

	"github.com/prop-engine/internal/feed"
	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/service"
)

// TradeCloser settles a trade at an exact price. Satisfied by
// service.TradingService.
type TradeCloser interface {
	CloseTradeAt(tradeID uint, closePrice float64, reason string) (*models.Trade, error)
}

// QuoteSnapshotter provides the fresh quotes a sweep evaluates against.
// Satisfied by service.PriceService.
type QuoteSnapshotter interface {
	Snapshot() map[string]feed.Quote
}

// OpenTradeSource lists the open trades to sweep. Satisfied by
// repository.TradeRepository.
type OpenTradeSource interface {
	GetAllOpen() ([]models.Trade, error)
}

// SLTPWorker periodically sweeps all open trades and closes those whose
// stop-loss or take-profit level has been reached by the current quote
type SLTPWorker struct {
	tradingService TradeCloser
	priceService   QuoteSnapshotter
	tradeRepo      OpenTradeSource
	interval       time.Duration
	stopChan       chan struct{}
}

// NewSLTPWorker creates a new SL/TP monitoring worker
func NewSLTPWorker(
	tradingService TradeCloser,
	priceService QuoteSnapshotter,
	tradeRepo OpenTradeSource,
	interval time.Duration,
) *SLTPWorker {
	if interval <= 0 {
		interval = 1 * time.Second // Default 1 second check interval
	}
	return &SLTPWorker{
		tradingService: tradingService,
		priceService:   priceService,
		tradeRepo:      tradeRepo,
		interval:       interval,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the monitoring loop
func (w *SLTPWorker) Start() {
	log.Printf("SL/TP Worker started with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopChan:
			log.Println("SL/TP Worker stopped")
			return
		}
	}
}

// Stop stops the monitoring loop
func (w *SLTPWorker) Stop() {
	close(w.stopChan)
}

// sweep evaluates every open trade against the fresh quote snapshot
func (w *SLTPWorker) sweep() {
	trades, err := w.tradeRepo.GetAllOpen()
	if err != nil {
		log.Printf("SL/TP Worker: failed to get open trades: %v", err)
		return
	}
	if len(trades) == 0 {
		return
	}

	quotes := w.priceService.Snapshot()

	for i := range trades {
		trade := &trades[i]
		quote, ok := quotes[trade.Symbol]
		if !ok {
			// No fresh quote for this symbol; try again next tick
			continue
		}

		level, reason, hit := TriggerLevel(trade, quote)
		if !hit {
			continue
		}

		log.Printf("SL/TP Worker: triggering trade %d (symbol=%s, side=%s, level=%.5f, bid=%.5f, ask=%.5f)",
			trade.ID, trade.Symbol, trade.Side, level, quote.Bid, quote.Ask)

		// Settle at the configured level, not the quote that touched it
		closed, err := w.tradingService.CloseTradeAt(trade.ID, level, reason)
		if err != nil {
			if errors.Is(err, service.ErrTradeAlreadyClosed) {
				continue
			}
			log.Printf("SL/TP Worker: failed to close trade %d: %v", trade.ID, err)
			continue
		}
		log.Printf("SL/TP Worker: trade %d closed, PnL=%.2f, reason=%s",
			closed.ID, closed.RealizedPnL, closed.CloseReason)
	}
}

// TriggerLevel decides whether a trade's protective level has been reached.
// BUY positions exit at the bid, SELL positions at the ask, so each side is
// checked against the price it would actually close at:
//
//	| Level       | Side | Condition      |
//	|-------------|------|----------------|
//	| Stop loss   | BUY  | bid <= SL      |
//	| Stop loss   | SELL | ask >= SL      |
//	| Take profit | BUY  | bid >= TP      |
//	| Take profit | SELL | ask <= TP      |
//
// Stop loss wins when both are reached on the same tick.
func TriggerLevel(trade *models.Trade, quote feed.Quote) (float64, string, bool) {
	ref := quote.Bid
	if trade.Side == models.TradeSideSell {
		ref = quote.Ask
	}

	if trade.StopLoss != nil && *trade.StopLoss > 0 {
		sl := *trade.StopLoss
		if (trade.Side == models.TradeSideBuy && ref <= sl) ||
			(trade.Side == models.TradeSideSell && ref >= sl) {
			return sl, models.CloseReasonStopLoss, true
		}
	}

	if trade.TakeProfit != nil && *trade.TakeProfit > 0 {
		tp := *trade.TakeProfit
		if (trade.Side == models.TradeSideBuy && ref >= tp) ||
			(trade.Side == models.TradeSideSell && ref <= tp) {
			return tp, models.CloseReasonTakeProfit, true
		}
	}

	return 0, "", false
}
