package models

import (
	"time"

	"gorm.io/gorm"
)

// TradeSide represents the direction of a trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// TradeStatus represents the lifecycle state of a trade
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "OPEN"
	TradeStatusClosed TradeStatus = "CLOSED"
)

// Close reasons recorded on a closed trade
const (
	CloseReasonManual     = "manual"
	CloseReasonStopLoss   = "stop_loss"
	CloseReasonTakeProfit = "take_profit"
	CloseReasonAdminReset = "admin_reset"
)

// Trade represents a position opened against a challenge account
type Trade struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AccountID     uint      `gorm:"index;not null" json:"account_id"`
	ClientTradeID string    `gorm:"size:50;index" json:"client_trade_id"`
	Symbol        string    `gorm:"size:20;not null;index" json:"symbol"`
	Segment       string    `gorm:"size:20" json:"segment"`
	Side          TradeSide `gorm:"size:10;not null" json:"side"`

	Quantity     float64 `gorm:"type:decimal(20,8);not null" json:"quantity"`
	ContractSize float64 `gorm:"type:decimal(20,8);not null" json:"contract_size"`
	Leverage     int     `gorm:"not null" json:"leverage"`
	Margin       float64 `gorm:"type:decimal(20,8)" json:"margin"`

	OpenPrice  float64  `gorm:"type:decimal(20,8);not null" json:"open_price"`
	ClosePrice float64  `gorm:"type:decimal(20,8)" json:"close_price"`
	StopLoss   *float64 `gorm:"type:decimal(20,8)" json:"stop_loss,omitempty"`
	TakeProfit *float64 `gorm:"type:decimal(20,8)" json:"take_profit,omitempty"`

	Commission  float64 `gorm:"type:decimal(20,8)" json:"commission"`
	RealizedPnL float64 `gorm:"type:decimal(20,8)" json:"realized_pnl"`

	Status      TradeStatus `gorm:"size:10;not null;default:'OPEN';index" json:"status"`
	CloseReason string      `gorm:"size:30" json:"close_reason,omitempty"`

	OpenedAt  time.Time      `gorm:"index" json:"opened_at"`
	ClosedAt  *time.Time     `json:"closed_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Account ChallengeAccount `gorm:"foreignKey:AccountID" json:"-"`
}

// TableName specifies the table name for Trade model
func (Trade) TableName() string {
	return "trades"
}

// IsOpen returns true if the trade has not been closed
func (t *Trade) IsOpen() bool {
	return t.Status == TradeStatusOpen
}

// HoldDuration returns how long the trade has been (or was) held
func (t *Trade) HoldDuration(now time.Time) time.Duration {
	if t.ClosedAt != nil {
		return t.ClosedAt.Sub(t.OpenedAt)
	}
	return now.Sub(t.OpenedAt)
}
