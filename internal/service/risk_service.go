package service

import (
	"fmt"
	"time"

	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/pricing"
)

const (
	// A soft rule breached this many times (same code) fails the account
	violationEscalationThreshold = 3

	// Required margin may use at most this share of current equity
	marginUsageLimit = 0.9
)

// PhaseOutcome is the result of the post-close evaluation
type PhaseOutcome int

const (
	PhaseOutcomeNone PhaseOutcome = iota
	PhaseOutcomeAdvanced
	PhaseOutcomePassed
	PhaseOutcomeFailed
)

// OpenTradeParams carries the trade parameters the validation pipeline checks
type OpenTradeParams struct {
	Symbol     string
	Segment    string
	Side       models.TradeSide
	Quantity   float64
	StopLoss   *float64
	TakeProfit *float64
	Leverage   int
}

// RiskService evaluates the rule set against account state. All methods
// mutate models in memory only; callers persist and must hold the account's
// lock.
type RiskService struct{}

// NewRiskService creates a new RiskService
func NewRiskService() *RiskService {
	return &RiskService{}
}

// ValidateOpen runs the ordered trade-open checks, short-circuiting on the
// first failure. The expiry check transitions the account to EXPIRED in
// memory; the caller persists that transition even on rejection.
func (s *RiskService) ValidateOpen(account *models.ChallengeAccount, challenge *models.Challenge, params *OpenTradeParams, bid, ask float64, now time.Time) *Rejection {
	// 1. Account must be in a tradable state
	switch account.Status {
	case models.StatusFailed:
		return reject(models.CodeAccountFailed, "account has failed: "+account.FailReason)
	case models.StatusExpired:
		return reject(models.CodeAccountExpired, "account has expired")
	}
	if !account.CanTrade() {
		return reject(models.CodeAccountNotActive, fmt.Sprintf("account is %s, not tradable", account.Status))
	}

	// 2. Expiry detection
	if account.IsExpired(now) {
		account.Status = models.StatusExpired
		return reject(models.CodeAccountExpired, "challenge period has ended")
	}

	// 3. Mandatory stop loss
	if challenge.MandatoryStopLoss && params.StopLoss == nil {
		return reject(models.CodeStopLossRequired, "this challenge requires a stop loss on every trade").
			withHint("set a stop loss before submitting the order")
	}

	// 4. Trades per day. The counter only applies within the same calendar
	// day; a day rollover resets it on open.
	if challenge.MaxTradesPerDay > 0 && !account.IsNewTradingDay(now) && account.TradesToday >= challenge.MaxTradesPerDay {
		return reject(models.CodeMaxTradesPerDay, fmt.Sprintf("daily trade limit of %d reached", challenge.MaxTradesPerDay)).
			withContext("max_trades_per_day", float64(challenge.MaxTradesPerDay))
	}

	// 5. Concurrent open trades
	if challenge.MaxOpenTrades > 0 && account.OpenTradesCount >= challenge.MaxOpenTrades {
		return reject(models.CodeMaxOpenTrades, fmt.Sprintf("concurrent trade limit of %d reached", challenge.MaxOpenTrades)).
			withContext("max_open_trades", float64(challenge.MaxOpenTrades))
	}

	// Total trade cap, when the template configures one
	if challenge.MaxTotalTrades > 0 && account.TotalTrades >= challenge.MaxTotalTrades {
		return reject(models.CodeMaxTotalTrades, fmt.Sprintf("total trade limit of %d reached", challenge.MaxTotalTrades)).
			withContext("max_total_trades", float64(challenge.MaxTotalTrades))
	}

	// Lot size bounds
	if challenge.MinLotSize > 0 && params.Quantity < challenge.MinLotSize {
		return reject(models.CodeInvalidLotSize, fmt.Sprintf("quantity %.4f below minimum lot size", params.Quantity)).
			withContext("min_lot_size", challenge.MinLotSize)
	}
	if challenge.MaxLotSize > 0 && params.Quantity > challenge.MaxLotSize {
		return reject(models.CodeInvalidLotSize, fmt.Sprintf("quantity %.4f above maximum lot size", params.Quantity)).
			withContext("max_lot_size", challenge.MaxLotSize)
	}

	// 6. Symbol/segment allow-list; empty lists permit everything
	if !challenge.IsSymbolAllowed(params.Symbol, params.Segment) {
		return reject(models.CodeSymbolNotAllowed, params.Symbol+" is not tradable under this challenge")
	}

	contractSize := pricing.ContractSize(params.Segment)
	entry := ask
	if params.Side == models.TradeSideSell {
		entry = bid
	}

	// 7. Max loss per trade, only checkable when a stop loss is present
	if params.StopLoss != nil && challenge.MaxLossPerTradePercent > 0 {
		potentialLoss := pricing.PotentialLoss(entry, *params.StopLoss, params.Quantity, contractSize)
		maxLoss := challenge.MaxLossPerTradePercent / 100 * account.CurrentEquity
		if potentialLoss > maxLoss {
			return reject(models.CodeMaxLossPerTrade, fmt.Sprintf("potential loss %.2f exceeds per-trade cap %.2f", potentialLoss, maxLoss)).
				withContext("potential_loss", potentialLoss).
				withContext("max_allowed_loss", maxLoss)
		}
	}

	// 8. Margin check against 90% of equity
	leverage := effectiveLeverage(params.Leverage, challenge.MaxLeverage)
	requiredMargin := pricing.RequiredMargin(params.Quantity, contractSize, entry, leverage)
	available := account.CurrentEquity * marginUsageLimit
	if requiredMargin > available {
		return reject(models.CodeInsufficientMargin, fmt.Sprintf("required margin %.2f exceeds available %.2f", requiredMargin, available)).
			withContext("required_margin", requiredMargin).
			withContext("available_margin", available)
	}

	return nil
}

// ValidateClose checks the minimum hold time. Any price is acceptable.
func (s *RiskService) ValidateClose(account *models.ChallengeAccount, challenge *models.Challenge, trade *models.Trade, now time.Time) *Rejection {
	if challenge.MinTradeHoldSeconds <= 0 {
		return nil
	}
	held := trade.HoldDuration(now)
	minHold := time.Duration(challenge.MinTradeHoldSeconds) * time.Second
	if held < minHold {
		remaining := (minHold - held).Seconds()
		return reject(models.CodeMinHoldTime, fmt.Sprintf("trade must be held %d seconds before closing", challenge.MinTradeHoldSeconds)).
			withContext("remaining_seconds", remaining)
	}
	return nil
}

// TrackRuleViolation records a soft rule breach as a WARNING and escalates to
// FAIL once the same rule code has been warned violationEscalationThreshold
// times. Returns true when the escalation failed the account. Drawdown
// breaches never go through here; they fail immediately.
func (s *RiskService) TrackRuleViolation(account *models.ChallengeAccount, code models.RuleCode, description string, tradeID *uint, now time.Time) bool {
	account.AddViolation(code, description, models.SeverityWarning, tradeID, now)

	if account.WarningCountForRule(code) >= violationEscalationThreshold {
		account.AddViolation(code,
			fmt.Sprintf("rule %s violated %d times", code, violationEscalationThreshold),
			models.SeverityFail, tradeID, now)
		return true
	}
	return false
}

// CheckDrawdownBreach compares current drawdown percentages against the rule
// set. Daily is checked before overall; the first breach short-circuits.
// Thresholds are inclusive: reaching the limit exactly is a breach. A breach
// fails the account immediately. Terminal accounts are never re-failed:
// leftover open trades of a FAILED account still settle, without appending
// duplicate ledger entries or overwriting the original fail reason.
func (s *RiskService) CheckDrawdownBreach(account *models.ChallengeAccount, challenge *models.Challenge, now time.Time) *Rejection {
	if !account.CanTrade() {
		return nil
	}

	if challenge.MaxDailyDrawdownPercent > 0 && account.CurrentDailyDrawdown >= challenge.MaxDailyDrawdownPercent {
		desc := fmt.Sprintf("daily drawdown %.2f%% reached the %.2f%% limit", account.CurrentDailyDrawdown, challenge.MaxDailyDrawdownPercent)
		account.AddViolation(models.CodeDailyDrawdownBreach, desc, models.SeverityFail, nil, now)
		return reject(models.CodeDailyDrawdownBreach, desc).
			withContext("daily_drawdown_percent", account.CurrentDailyDrawdown).
			withContext("max_daily_drawdown_percent", challenge.MaxDailyDrawdownPercent)
	}

	if challenge.MaxOverallDrawdownPercent > 0 && account.CurrentOverallDrawdown >= challenge.MaxOverallDrawdownPercent {
		desc := fmt.Sprintf("overall drawdown %.2f%% reached the %.2f%% limit", account.CurrentOverallDrawdown, challenge.MaxOverallDrawdownPercent)
		account.AddViolation(models.CodeOverallDrawdownBreach, desc, models.SeverityFail, nil, now)
		return reject(models.CodeOverallDrawdownBreach, desc).
			withContext("overall_drawdown_percent", account.CurrentOverallDrawdown).
			withContext("max_overall_drawdown_percent", challenge.MaxOverallDrawdownPercent)
	}

	return nil
}

// ApplyTradeClose runs the post-close evaluation: breach check first, then
// phase progression. The caller has already pushed the realized P&L through
// UpdateEquity.
func (s *RiskService) ApplyTradeClose(account *models.ChallengeAccount, challenge *models.Challenge, now time.Time) PhaseOutcome {
	if rej := s.CheckDrawdownBreach(account, challenge, now); rej != nil {
		return PhaseOutcomeFailed
	}
	return s.EvaluatePhaseProgress(account, challenge, now)
}

// EvaluatePhaseProgress checks the current phase's profit target and advances
// or passes the account. Funded accounts and zero-phase challenges are never
// evaluated, and an account carrying a FAIL violation can never clear a phase.
func (s *RiskService) EvaluatePhaseProgress(account *models.ChallengeAccount, challenge *models.Challenge, now time.Time) PhaseOutcome {
	if account.Type != models.AccountTypeChallenge || account.Status != models.StatusActive {
		return PhaseOutcomeNone
	}
	if account.TotalPhases == 0 {
		return PhaseOutcomeNone
	}
	if account.HasFailViolation() {
		return PhaseOutcomeNone
	}

	target := challenge.ProfitTargetForPhase(account.CurrentPhase)
	if target <= 0 || account.CurrentProfitPercent < target {
		return PhaseOutcomeNone
	}

	if account.CurrentPhase < account.TotalPhases {
		account.CurrentPhase++
		account.PhaseStartBalance = account.CurrentEquity
		account.CurrentProfitPercent = 0
		account.DayStartEquity = account.CurrentEquity
		account.LowestEquityToday = account.CurrentEquity
		account.CurrentDailyDrawdown = 0
		return PhaseOutcomeAdvanced
	}

	account.Status = models.StatusPassed
	passedAt := now
	account.PassedAt = &passedAt
	return PhaseOutcomePassed
}

func effectiveLeverage(requested, max int) int {
	if max <= 0 {
		max = 1
	}
	if requested <= 0 || requested > max {
		return max
	}
	return requested
}
