package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Challenge represents a purchasable evaluation template with its rule set.
// The rule set is immutable from the engine's point of view: accounts hold a
// reference and never write back.
type Challenge struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:500" json:"description"`

	FundSize float64 `gorm:"type:decimal(20,8);not null" json:"fund_size"`
	Fee      float64 `gorm:"type:decimal(20,8);not null" json:"fee"`

	// Phase progression. StepsCount 0 means instant funding: no profit
	// target is ever evaluated for the account.
	StepsCount                int     `gorm:"default:2" json:"steps_count"`
	ProfitTargetPhase1Percent float64 `gorm:"type:decimal(10,4);default:0" json:"profit_target_phase1_percent"`
	ProfitTargetPhase2Percent float64 `gorm:"type:decimal(10,4);default:0" json:"profit_target_phase2_percent"`
	ProfitTargetPhase3Percent float64 `gorm:"type:decimal(10,4);default:0" json:"profit_target_phase3_percent"`

	// Drawdown limits. Percent caps are enforced by the breach check,
	// amount caps are surfaced on the dashboard.
	MaxDailyDrawdownPercent   float64 `gorm:"type:decimal(10,4);default:0" json:"max_daily_drawdown_percent"`
	MaxDailyDrawdownAmount    float64 `gorm:"type:decimal(20,8);default:0" json:"max_daily_drawdown_amount"`
	MaxOverallDrawdownPercent float64 `gorm:"type:decimal(10,4);default:0" json:"max_overall_drawdown_percent"`
	MaxOverallDrawdownAmount  float64 `gorm:"type:decimal(20,8);default:0" json:"max_overall_drawdown_amount"`

	// Per-trade and counting rules. Zero means "not configured".
	MaxLossPerTradePercent float64 `gorm:"type:decimal(10,4);default:0" json:"max_loss_per_trade_percent"`
	MinLotSize             float64 `gorm:"type:decimal(10,4);default:0" json:"min_lot_size"`
	MaxLotSize             float64 `gorm:"type:decimal(10,4);default:0" json:"max_lot_size"`
	MaxTradesPerDay        int     `gorm:"default:0" json:"max_trades_per_day"`
	MaxOpenTrades          int     `gorm:"default:0" json:"max_open_trades"`
	MaxTotalTrades         int     `gorm:"default:0" json:"max_total_trades"`
	MandatoryStopLoss      bool    `gorm:"default:false" json:"mandatory_stop_loss"`
	MinTradeHoldSeconds    int     `gorm:"default:0" json:"min_trade_hold_seconds"`
	MaxTradeHoldSeconds    int     `gorm:"default:0" json:"max_trade_hold_seconds"`

	// Comma-separated allow-lists. Empty means all symbols/segments are
	// permitted (deliberate default-allow).
	AllowedSymbols  string `gorm:"size:1000" json:"allowed_symbols"`
	AllowedSegments string `gorm:"size:500" json:"allowed_segments"`

	MaxLeverage int `gorm:"default:100" json:"max_leverage"`
	ExpiryDays  int `gorm:"default:30" json:"expiry_days"`

	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Challenge model
func (Challenge) TableName() string {
	return "challenges"
}

// ProfitTargetForPhase returns the profit target percent for a phase (1-based).
// Returns 0 for phases outside the configured range.
func (c *Challenge) ProfitTargetForPhase(phase int) float64 {
	switch phase {
	case 1:
		return c.ProfitTargetPhase1Percent
	case 2:
		return c.ProfitTargetPhase2Percent
	case 3:
		return c.ProfitTargetPhase3Percent
	default:
		return 0
	}
}

// AllowedSymbolList returns the parsed symbol allow-list
func (c *Challenge) AllowedSymbolList() []string {
	return splitList(c.AllowedSymbols)
}

// AllowedSegmentList returns the parsed segment allow-list
func (c *Challenge) AllowedSegmentList() []string {
	return splitList(c.AllowedSegments)
}

// IsSymbolAllowed reports whether a symbol (or its segment) passes the
// allow-lists. Empty lists permit everything.
func (c *Challenge) IsSymbolAllowed(symbol, segment string) bool {
	symbols := c.AllowedSymbolList()
	segments := c.AllowedSegmentList()

	if len(symbols) == 0 && len(segments) == 0 {
		return true
	}

	for _, s := range symbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	for _, s := range segments {
		if strings.EqualFold(s, segment) {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
