package worker

import (
	"testing"
	"time"

	"github.com/prop-engine/internal/feed"
	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestTriggerLevel(t *testing.T) {
	tests := []struct {
		name       string
		side       models.TradeSide
		stopLoss   *float64
		takeProfit *float64
		bid        float64
		ask        float64
		wantLevel  float64
		wantReason string
		wantHit    bool
	}{
		{
			name:     "buy stop loss on bid touch",
			side:     models.TradeSideBuy,
			stopLoss: ptr(1.0950),
			bid:      1.0950, ask: 1.0952,
			wantLevel: 1.0950, wantReason: models.CloseReasonStopLoss, wantHit: true,
		},
		{
			name:     "buy stop loss not reached",
			side:     models.TradeSideBuy,
			stopLoss: ptr(1.0950),
			bid:      1.0951, ask: 1.0953,
			wantHit: false,
		},
		{
			name:     "buy ignores ask for stop loss",
			side:     models.TradeSideBuy,
			stopLoss: ptr(1.0952),
			bid:      1.0953, ask: 1.0952,
			wantHit: false,
		},
		{
			name:       "buy take profit on bid",
			side:       models.TradeSideBuy,
			takeProfit: ptr(1.1100),
			bid:        1.1101, ask: 1.1103,
			wantLevel: 1.1100, wantReason: models.CloseReasonTakeProfit, wantHit: true,
		},
		{
			name:     "sell stop loss on ask touch",
			side:     models.TradeSideSell,
			stopLoss: ptr(1.1050),
			bid:      1.1048, ask: 1.1050,
			wantLevel: 1.1050, wantReason: models.CloseReasonStopLoss, wantHit: true,
		},
		{
			name:       "sell take profit on ask",
			side:       models.TradeSideSell,
			takeProfit: ptr(1.0900),
			bid:        1.0897, ask: 1.0899,
			wantLevel: 1.0900, wantReason: models.CloseReasonTakeProfit, wantHit: true,
		},
		{
			name:       "sell take profit not reached",
			side:       models.TradeSideSell,
			takeProfit: ptr(1.0900),
			bid:        1.0899, ask: 1.0901,
			wantHit: false,
		},
		{
			name: "no levels set",
			side: models.TradeSideBuy,
			bid:  1.1000, ask: 1.1002,
			wantHit: false,
		},
		{
			name:       "stop loss wins when both levels gapped through",
			side:       models.TradeSideBuy,
			stopLoss:   ptr(1.0950),
			takeProfit: ptr(1.0940),
			bid:        1.0930, ask: 1.0932,
			wantLevel: 1.0950, wantReason: models.CloseReasonStopLoss, wantHit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := &models.Trade{
				Side:       tt.side,
				StopLoss:   tt.stopLoss,
				TakeProfit: tt.takeProfit,
				Status:     models.TradeStatusOpen,
			}
			quote := feed.Quote{Symbol: "EURUSD", Bid: tt.bid, Ask: tt.ask}

			level, reason, hit := TriggerLevel(trade, quote)
			assert.Equal(t, tt.wantHit, hit)
			if tt.wantHit {
				assert.Equal(t, tt.wantLevel, level, "closes at the configured level, not the touched price")
				assert.Equal(t, tt.wantReason, reason)
			}
		})
	}
}

func TestTriggerLevelZeroLevelsIgnored(t *testing.T) {
	trade := &models.Trade{
		Side:     models.TradeSideBuy,
		StopLoss: ptr(0),
		Status:   models.TradeStatusOpen,
	}
	_, _, hit := TriggerLevel(trade, feed.Quote{Bid: 0.5, Ask: 0.5002})
	assert.False(t, hit)
}

// stubTradeStore backs both the open-trade source and the closer so a close
// observed by one is observed by the other, like the shared database would
type stubTradeStore struct {
	trades []models.Trade
	calls  map[uint]int
	errFor map[uint]error
}

func newStubTradeStore(trades ...models.Trade) *stubTradeStore {
	return &stubTradeStore{
		trades: trades,
		calls:  make(map[uint]int),
		errFor: make(map[uint]error),
	}
}

func (s *stubTradeStore) GetAllOpen() ([]models.Trade, error) {
	var open []models.Trade
	for _, t := range s.trades {
		if t.Status == models.TradeStatusOpen {
			open = append(open, t)
		}
	}
	return open, nil
}

func (s *stubTradeStore) CloseTradeAt(tradeID uint, closePrice float64, reason string) (*models.Trade, error) {
	s.calls[tradeID]++
	if err := s.errFor[tradeID]; err != nil {
		return nil, err
	}
	for i := range s.trades {
		t := &s.trades[i]
		if t.ID != tradeID {
			continue
		}
		if !t.IsOpen() {
			return nil, service.ErrTradeAlreadyClosed
		}
		t.Status = models.TradeStatusClosed
		t.ClosePrice = closePrice
		t.CloseReason = reason
		closed := *t
		return &closed, nil
	}
	return nil, service.ErrTradeAlreadyClosed
}

type stubQuotes map[string]feed.Quote

func (q stubQuotes) Snapshot() map[string]feed.Quote { return q }

func TestSweepClosesTriggeredTradeExactlyOnce(t *testing.T) {
	store := newStubTradeStore(
		models.Trade{ID: 1, Symbol: "EURUSD", Side: models.TradeSideBuy, StopLoss: ptr(1.0950), Status: models.TradeStatusOpen},
		models.Trade{ID: 2, Symbol: "EURUSD", Side: models.TradeSideBuy, StopLoss: ptr(1.0800), Status: models.TradeStatusOpen},
		models.Trade{ID: 3, Symbol: "GBPUSD", Side: models.TradeSideSell, TakeProfit: ptr(1.2500), Status: models.TradeStatusOpen},
	)
	quotes := stubQuotes{
		// No GBPUSD quote this tick; trade 3 must be left alone
		"EURUSD": {Symbol: "EURUSD", Bid: 1.0948, Ask: 1.0950},
	}
	w := NewSLTPWorker(store, quotes, store, time.Second)

	w.sweep()

	assert.Equal(t, 1, store.calls[1])
	assert.Zero(t, store.calls[2], "untriggered trade is not closed")
	assert.Zero(t, store.calls[3], "no fresh quote, no close")
	require.Equal(t, models.TradeStatusClosed, store.trades[0].Status)
	assert.Equal(t, 1.0950, store.trades[0].ClosePrice, "settles at the configured level")
	assert.Equal(t, models.CloseReasonStopLoss, store.trades[0].CloseReason)

	// A second sweep sees the trade closed and never re-closes it
	w.sweep()
	assert.Equal(t, 1, store.calls[1])
}

func TestSweepSkipsTradeClosedByRace(t *testing.T) {
	store := newStubTradeStore(
		models.Trade{ID: 7, Symbol: "EURUSD", Side: models.TradeSideBuy, StopLoss: ptr(1.0950), Status: models.TradeStatusOpen},
	)
	// A manual close wins between the snapshot and the close attempt
	store.errFor[7] = service.ErrTradeAlreadyClosed
	quotes := stubQuotes{
		"EURUSD": {Symbol: "EURUSD", Bid: 1.0940, Ask: 1.0942},
	}
	w := NewSLTPWorker(store, quotes, store, time.Second)

	w.sweep()

	assert.Equal(t, 1, store.calls[7], "attempted once, skipped silently")
}
