package models

import (
	"time"

	"gorm.io/gorm"
)

// AccountType distinguishes evaluation accounts from funded promotions
type AccountType string

const (
	AccountTypeChallenge AccountType = "CHALLENGE"
	AccountTypeFunded    AccountType = "FUNDED"
)

// AccountStatus represents the lifecycle state of an account
type AccountStatus string

const (
	StatusActive  AccountStatus = "ACTIVE"
	StatusPassed  AccountStatus = "PASSED"
	StatusFailed  AccountStatus = "FAILED"
	StatusFunded  AccountStatus = "FUNDED"
	StatusExpired AccountStatus = "EXPIRED"
)

// ChallengeAccount is the per-attempt trading account aggregate. All equity
// and drawdown mutation goes through UpdateEquity; services persist the
// result. Mutation must be serialized per account by the caller.
type ChallengeAccount struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	AccountNumber string      `gorm:"uniqueIndex;size:30;not null" json:"account_number"`
	UserID        uint        `gorm:"index;not null" json:"user_id"`
	ChallengeID   uint        `gorm:"index;not null" json:"challenge_id"`
	Type          AccountType `gorm:"size:20;not null;default:'CHALLENGE'" json:"type"`

	Status     AccountStatus `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	FailReason string        `gorm:"size:500" json:"fail_reason,omitempty"`
	FailedAt   *time.Time    `json:"failed_at,omitempty"`
	PassedAt   *time.Time    `json:"passed_at,omitempty"`

	CurrentPhase int `gorm:"default:1" json:"current_phase"`
	TotalPhases  int `gorm:"default:1" json:"total_phases"`

	InitialBalance    float64 `gorm:"type:decimal(20,8);not null" json:"initial_balance"`
	CurrentBalance    float64 `gorm:"type:decimal(20,8);not null" json:"current_balance"`
	CurrentEquity     float64 `gorm:"type:decimal(20,8);not null" json:"current_equity"`
	PhaseStartBalance float64 `gorm:"type:decimal(20,8);not null" json:"phase_start_balance"`

	DayStartEquity      float64 `gorm:"type:decimal(20,8)" json:"day_start_equity"`
	LowestEquityToday   float64 `gorm:"type:decimal(20,8)" json:"lowest_equity_today"`
	LowestEquityOverall float64 `gorm:"type:decimal(20,8)" json:"lowest_equity_overall"`
	HighestEquity       float64 `gorm:"type:decimal(20,8)" json:"highest_equity"`

	CurrentDailyDrawdown   float64 `gorm:"type:decimal(10,4)" json:"current_daily_drawdown"`
	MaxDailyDrawdown       float64 `gorm:"type:decimal(10,4)" json:"max_daily_drawdown"`
	CurrentOverallDrawdown float64 `gorm:"type:decimal(10,4)" json:"current_overall_drawdown"`
	MaxOverallDrawdown     float64 `gorm:"type:decimal(10,4)" json:"max_overall_drawdown"`
	CurrentProfitPercent   float64 `gorm:"type:decimal(10,4)" json:"current_profit_percent"`
	TotalPnL               float64 `gorm:"type:decimal(20,8)" json:"total_pnl"`

	TradesToday     int        `gorm:"default:0" json:"trades_today"`
	OpenTradesCount int        `gorm:"default:0" json:"open_trades_count"`
	TotalTrades     int        `gorm:"default:0" json:"total_trades"`
	TradingDays     int        `gorm:"default:0" json:"trading_days"`
	LastTradingDay  *time.Time `json:"last_trading_day,omitempty"`

	WarningCount int `gorm:"default:0" json:"warning_count"`

	// Set on the challenge account once the funded promotion exists;
	// SourceAccountID points the other way and makes link repair possible.
	FundedAccountID *uint `gorm:"index" json:"funded_account_id,omitempty"`
	SourceAccountID *uint `gorm:"index" json:"source_account_id,omitempty"`

	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User       User        `gorm:"foreignKey:UserID" json:"-"`
	Challenge  Challenge   `gorm:"foreignKey:ChallengeID" json:"-"`
	Violations []Violation `gorm:"foreignKey:AccountID" json:"violations,omitempty"`
}

// TableName specifies the table name for ChallengeAccount model
func (ChallengeAccount) TableName() string {
	return "challenge_accounts"
}

// CanTrade reports whether the account may open or close trades
func (a *ChallengeAccount) CanTrade() bool {
	return a.Status == StatusActive || a.Status == StatusFunded
}

// IsExpired reports whether the account is past its expiry timestamp
func (a *ChallengeAccount) IsExpired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}

// UpdateEquity records a new equity observation and recomputes extrema,
// drawdown percentages and profit percent. It is the single point of truth
// for drawdown numbers and must run after every balance-affecting event. It
// never touches trade counters, so it is also safe to call on price ticks.
func (a *ChallengeAccount) UpdateEquity(equity float64) {
	a.CurrentEquity = equity

	if equity < a.LowestEquityToday {
		a.LowestEquityToday = equity
	}
	if equity < a.LowestEquityOverall {
		a.LowestEquityOverall = equity
	}
	if equity > a.HighestEquity {
		a.HighestEquity = equity
	}

	if a.DayStartEquity > 0 {
		dd := (a.DayStartEquity - a.LowestEquityToday) / a.DayStartEquity * 100
		if dd < 0 {
			dd = 0
		}
		a.CurrentDailyDrawdown = dd
		if dd > a.MaxDailyDrawdown {
			a.MaxDailyDrawdown = dd
		}
	}

	if a.InitialBalance > 0 {
		dd := (a.InitialBalance - a.LowestEquityOverall) / a.InitialBalance * 100
		if dd < 0 {
			dd = 0
		}
		a.CurrentOverallDrawdown = dd
		if dd > a.MaxOverallDrawdown {
			a.MaxOverallDrawdown = dd
		}
	}

	if a.PhaseStartBalance > 0 {
		a.CurrentProfitPercent = (equity - a.PhaseStartBalance) / a.PhaseStartBalance * 100
	}

	a.TotalPnL = equity - a.InitialBalance
}

// IsNewTradingDay reports whether now falls on a different calendar date than
// the stored last trading day. Date equality, not elapsed time.
func (a *ChallengeAccount) IsNewTradingDay(now time.Time) bool {
	if a.LastTradingDay == nil {
		return true
	}
	y1, m1, d1 := a.LastTradingDay.Date()
	y2, m2, d2 := now.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// ResetDailyCounters starts a fresh trading day from the current equity
func (a *ChallengeAccount) ResetDailyCounters(now time.Time) {
	a.DayStartEquity = a.CurrentEquity
	a.LowestEquityToday = a.CurrentEquity
	a.TradesToday = 0
	a.CurrentDailyDrawdown = 0
	day := now
	a.LastTradingDay = &day
}

// OnTradeOpened updates counters for a newly opened trade, rolling the daily
// trackers first if the calendar day changed
func (a *ChallengeAccount) OnTradeOpened(now time.Time) {
	if a.IsNewTradingDay(now) {
		a.ResetDailyCounters(now)
		a.TradingDays++
	}
	a.TradesToday++
	a.OpenTradesCount++
	a.TotalTrades++
}

// OnTradeClosed updates counters for a closed trade
func (a *ChallengeAccount) OnTradeClosed() {
	if a.OpenTradesCount > 0 {
		a.OpenTradesCount--
	}
}

// AddViolation appends to the violation ledger. A WARNING increments the
// warning counter; a FAIL immediately fails the account with the given
// description as reason.
func (a *ChallengeAccount) AddViolation(code RuleCode, description string, severity ViolationSeverity, tradeID *uint, now time.Time) *Violation {
	v := Violation{
		AccountID:   a.ID,
		RuleCode:    code,
		Description: description,
		Severity:    severity,
		TradeID:     tradeID,
		OccurredAt:  now,
	}
	a.Violations = append(a.Violations, v)

	if severity == SeverityWarning {
		a.WarningCount++
	} else {
		a.Status = StatusFailed
		a.FailReason = description
		failedAt := now
		a.FailedAt = &failedAt
	}
	return &a.Violations[len(a.Violations)-1]
}

// WarningCountForRule counts WARNING entries with the given rule code
func (a *ChallengeAccount) WarningCountForRule(code RuleCode) int {
	count := 0
	for _, v := range a.Violations {
		if v.RuleCode == code && v.Severity == SeverityWarning {
			count++
		}
	}
	return count
}

// HasFailViolation reports whether a FAIL-severity entry exists in the ledger
func (a *ChallengeAccount) HasFailViolation() bool {
	for _, v := range a.Violations {
		if v.Severity == SeverityFail {
			return true
		}
	}
	return false
}
