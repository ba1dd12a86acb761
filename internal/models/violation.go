package models

import (
	"time"
)

// ViolationSeverity represents how a rule infraction is treated
type ViolationSeverity string

const (
	SeverityWarning ViolationSeverity = "WARNING"
	SeverityFail    ViolationSeverity = "FAIL"
)

// RuleCode is the machine-readable reason code attached to rejections and
// violations
type RuleCode string

const (
	// Account-state codes
	CodeAccountNotFound  RuleCode = "ACCOUNT_NOT_FOUND"
	CodeAccountNotActive RuleCode = "ACCOUNT_NOT_ACTIVE"
	CodeAccountFailed    RuleCode = "ACCOUNT_FAILED"
	CodeAccountExpired   RuleCode = "ACCOUNT_EXPIRED"

	// Rule-violation codes (soft: escalated through the 3-strike counter)
	CodeStopLossRequired   RuleCode = "STOP_LOSS_REQUIRED"
	CodeMaxTradesPerDay    RuleCode = "MAX_TRADES_PER_DAY"
	CodeMaxOpenTrades      RuleCode = "MAX_OPEN_TRADES"
	CodeMaxTotalTrades     RuleCode = "MAX_TOTAL_TRADES"
	CodeInvalidLotSize     RuleCode = "INVALID_LOT_SIZE"
	CodeSymbolNotAllowed   RuleCode = "SYMBOL_NOT_ALLOWED"
	CodeMaxLossPerTrade    RuleCode = "MAX_LOSS_PER_TRADE"
	CodeInsufficientMargin RuleCode = "INSUFFICIENT_MARGIN"
	CodeMinHoldTime        RuleCode = "MIN_HOLD_TIME"

	// Breach codes (terminal: fail the account on first occurrence)
	CodeDailyDrawdownBreach   RuleCode = "DAILY_DRAWDOWN_BREACH"
	CodeOverallDrawdownBreach RuleCode = "OVERALL_DRAWDOWN_BREACH"
)

// IsRuleViolation reports whether the code belongs to the soft rule-violation
// class, i.e. participates in the repeated-violation escalation counter.
func (c RuleCode) IsRuleViolation() bool {
	switch c {
	case CodeStopLossRequired, CodeMaxTradesPerDay, CodeMaxOpenTrades,
		CodeMaxTotalTrades, CodeInvalidLotSize, CodeSymbolNotAllowed,
		CodeMaxLossPerTrade, CodeInsufficientMargin, CodeMinHoldTime:
		return true
	}
	return false
}

// Violation is one entry of an account's violation ledger
type Violation struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	AccountID   uint              `gorm:"index;not null" json:"account_id"`
	RuleCode    RuleCode          `gorm:"size:40;not null;index" json:"rule_code"`
	Description string            `gorm:"size:500" json:"description"`
	Severity    ViolationSeverity `gorm:"size:10;not null" json:"severity"`
	TradeID     *uint             `json:"trade_id,omitempty"`
	OccurredAt  time.Time         `gorm:"index" json:"occurred_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TableName specifies the table name for Violation model
func (Violation) TableName() string {
	return "violations"
}
