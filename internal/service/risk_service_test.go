package service

import (
	"testing"
	"time"

	"github.com/prop-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChallenge() *models.Challenge {
	return &models.Challenge{
		Name:                      "100K Two Step",
		FundSize:                  100000,
		StepsCount:                2,
		ProfitTargetPhase1Percent: 8,
		ProfitTargetPhase2Percent: 5,
		MaxDailyDrawdownPercent:   5,
		MaxOverallDrawdownPercent: 10,
		MaxLossPerTradePercent:    2,
		MinLotSize:                0.01,
		MaxLotSize:                10,
		MaxTradesPerDay:           5,
		MaxOpenTrades:             3,
		MandatoryStopLoss:         true,
		MinTradeHoldSeconds:       60,
		MaxLeverage:               100,
		ExpiryDays:                30,
		IsActive:                  true,
	}
}

func testAccount() *models.ChallengeAccount {
	now := time.Now()
	return &models.ChallengeAccount{
		ID:                  1,
		AccountNumber:       "CH00000001",
		Type:                models.AccountTypeChallenge,
		Status:              models.StatusActive,
		CurrentPhase:        1,
		TotalPhases:         2,
		InitialBalance:      100000,
		CurrentBalance:      100000,
		CurrentEquity:       100000,
		PhaseStartBalance:   100000,
		DayStartEquity:      100000,
		LowestEquityToday:   100000,
		LowestEquityOverall: 100000,
		HighestEquity:       100000,
		ExpiresAt:           now.Add(30 * 24 * time.Hour),
	}
}

func openParams() *OpenTradeParams {
	sl := 1.0950
	return &OpenTradeParams{
		Symbol:   "EURUSD",
		Segment:  "forex",
		Side:     models.TradeSideBuy,
		Quantity: 0.1,
		StopLoss: &sl,
		Leverage: 100,
	}
}

const (
	testBid = 1.1000
	testAsk = 1.1002
)

func TestValidateOpenHappyPath(t *testing.T) {
	s := NewRiskService()
	rej := s.ValidateOpen(testAccount(), testChallenge(), openParams(), testBid, testAsk, time.Now())
	assert.Nil(t, rej)
}

func TestValidateOpenFailedAccount(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	a.Status = models.StatusFailed
	a.FailReason = "daily drawdown breach"

	rej := s.ValidateOpen(a, testChallenge(), openParams(), testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeAccountFailed, rej.Code)
}

func TestValidateOpenPassedAccountNotTradable(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	a.Status = models.StatusPassed

	rej := s.ValidateOpen(a, testChallenge(), openParams(), testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeAccountNotActive, rej.Code)
}

func TestValidateOpenDetectsExpiry(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	a.ExpiresAt = time.Now().Add(-time.Hour)

	rej := s.ValidateOpen(a, testChallenge(), openParams(), testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeAccountExpired, rej.Code)
	assert.Equal(t, models.StatusExpired, a.Status, "expiry transition happens in memory")
}

func TestValidateOpenMandatoryStopLoss(t *testing.T) {
	s := NewRiskService()
	p := openParams()
	p.StopLoss = nil

	rej := s.ValidateOpen(testAccount(), testChallenge(), p, testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeStopLossRequired, rej.Code)
	assert.NotEmpty(t, rej.Hint)
}

func TestValidateOpenTradesPerDay(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	now := time.Now()
	day := now
	a.LastTradingDay = &day
	a.TradesToday = 5

	rej := s.ValidateOpen(a, testChallenge(), openParams(), testBid, testAsk, now)
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeMaxTradesPerDay, rej.Code)
	assert.Equal(t, 5.0, rej.Context["max_trades_per_day"])
}

func TestValidateOpenTradesPerDaySkippedOnNewDate(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	yesterday := time.Now().Add(-24 * time.Hour)
	a.LastTradingDay = &yesterday
	a.TradesToday = 5

	// The stale counter must not block the first trade of a new date
	rej := s.ValidateOpen(a, testChallenge(), openParams(), testBid, testAsk, time.Now())
	assert.Nil(t, rej)
}

func TestValidateOpenMaxOpenTrades(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	a.OpenTradesCount = 3

	rej := s.ValidateOpen(a, testChallenge(), openParams(), testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeMaxOpenTrades, rej.Code)
}

func TestValidateOpenLotSizeBounds(t *testing.T) {
	s := NewRiskService()

	p := openParams()
	p.Quantity = 0.001
	rej := s.ValidateOpen(testAccount(), testChallenge(), p, testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeInvalidLotSize, rej.Code)

	p = openParams()
	p.Quantity = 11
	sl := 1.0999 // keep the loss cap out of the way
	p.StopLoss = &sl
	rej = s.ValidateOpen(testAccount(), testChallenge(), p, testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeInvalidLotSize, rej.Code)
}

func TestValidateOpenSymbolAllowList(t *testing.T) {
	s := NewRiskService()
	c := testChallenge()
	c.AllowedSymbols = "EURUSD"

	p := openParams()
	p.Symbol = "GBPUSD"
	rej := s.ValidateOpen(testAccount(), c, p, testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeSymbolNotAllowed, rej.Code)
}

func TestValidateOpenMaxLossPerTrade(t *testing.T) {
	s := NewRiskService()
	p := openParams()
	// 1 lot, 300 pip stop = 3300 loss, above the 2% (2000) cap
	p.Quantity = 1
	sl := 1.0702
	p.StopLoss = &sl

	rej := s.ValidateOpen(testAccount(), testChallenge(), p, testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeMaxLossPerTrade, rej.Code)
	assert.Greater(t, rej.Context["potential_loss"], rej.Context["max_allowed_loss"])
}

func TestValidateOpenMarginCap(t *testing.T) {
	s := NewRiskService()
	c := testChallenge()
	c.MaxLotSize = 0 // uncap quantity so margin is the binding rule
	c.MaxLossPerTradePercent = 0
	p := openParams()
	p.Quantity = 9
	p.Leverage = 10 // 9 * 100000 * 1.1002 / 10 ≈ 99018 > 90000

	rej := s.ValidateOpen(testAccount(), c, p, testBid, testAsk, time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeInsufficientMargin, rej.Code)
	assert.InDelta(t, 90000.0, rej.Context["available_margin"], 1e-6)
}

func TestValidateCloseMinHold(t *testing.T) {
	s := NewRiskService()
	now := time.Now()
	trade := &models.Trade{OpenedAt: now.Add(-10 * time.Second), Status: models.TradeStatusOpen}

	rej := s.ValidateClose(testAccount(), testChallenge(), trade, now)
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeMinHoldTime, rej.Code)
	assert.InDelta(t, 50.0, rej.Context["remaining_seconds"], 1.0)

	trade.OpenedAt = now.Add(-61 * time.Second)
	assert.Nil(t, s.ValidateClose(testAccount(), testChallenge(), trade, now))
}

func TestTrackRuleViolationEscalatesOnThirdStrike(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	now := time.Now()

	assert.False(t, s.TrackRuleViolation(a, models.CodeMaxTradesPerDay, "daily limit reached", nil, now))
	assert.False(t, s.TrackRuleViolation(a, models.CodeMaxTradesPerDay, "daily limit reached", nil, now))
	assert.Equal(t, models.StatusActive, a.Status)

	escalated := s.TrackRuleViolation(a, models.CodeMaxTradesPerDay, "daily limit reached", nil, now)
	assert.True(t, escalated)
	assert.Equal(t, models.StatusFailed, a.Status)
	assert.True(t, a.HasFailViolation())
	// Three warnings plus the terminal FAIL entry
	assert.Len(t, a.Violations, 4)
}

func TestTrackRuleViolationCountsPerCode(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	now := time.Now()

	s.TrackRuleViolation(a, models.CodeMaxTradesPerDay, "daily limit reached", nil, now)
	s.TrackRuleViolation(a, models.CodeMaxOpenTrades, "concurrent limit reached", nil, now)
	escalated := s.TrackRuleViolation(a, models.CodeStopLossRequired, "stop loss required", nil, now)

	assert.False(t, escalated, "strikes accumulate per rule code, not in total")
	assert.Equal(t, models.StatusActive, a.Status)
}

func TestCheckDrawdownBreachInclusiveBoundary(t *testing.T) {
	s := NewRiskService()
	a := testAccount()

	// Exactly 5% daily drawdown is a breach
	a.UpdateEquity(95000)
	rej := s.CheckDrawdownBreach(a, testChallenge(), time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeDailyDrawdownBreach, rej.Code)
	assert.Equal(t, models.StatusFailed, a.Status)
	assert.True(t, a.HasFailViolation())
}

func TestCheckDrawdownBreachJustUnderLimit(t *testing.T) {
	s := NewRiskService()
	a := testAccount()

	a.UpdateEquity(95001)
	rej := s.CheckDrawdownBreach(a, testChallenge(), time.Now())
	assert.Nil(t, rej)
	assert.Equal(t, models.StatusActive, a.Status)
}

func TestCheckDrawdownBreachDailyBeforeOverall(t *testing.T) {
	s := NewRiskService()
	a := testAccount()

	// 12% down from both anchors; both rules exceeded, daily wins
	a.UpdateEquity(88000)
	rej := s.CheckDrawdownBreach(a, testChallenge(), time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeDailyDrawdownBreach, rej.Code)
}

func TestCheckDrawdownBreachOverallOnly(t *testing.T) {
	s := NewRiskService()
	a := testAccount()

	// A fresh day anchored lower: daily drawdown small, overall breached
	a.DayStartEquity = 91000
	a.LowestEquityToday = 91000
	a.UpdateEquity(90000)

	rej := s.CheckDrawdownBreach(a, testChallenge(), time.Now())
	require.NotNil(t, rej)
	assert.Equal(t, models.CodeOverallDrawdownBreach, rej.Code)
}

func TestEvaluatePhaseProgressAdvancesAtExactTarget(t *testing.T) {
	s := NewRiskService()
	a := testAccount()

	// Exactly 8% profit clears phase 1
	a.UpdateEquity(108000)
	outcome := s.EvaluatePhaseProgress(a, testChallenge(), time.Now())

	assert.Equal(t, PhaseOutcomeAdvanced, outcome)
	assert.Equal(t, 2, a.CurrentPhase)
	assert.Equal(t, 108000.0, a.PhaseStartBalance)
	assert.Equal(t, 108000.0, a.DayStartEquity)
	assert.Equal(t, 108000.0, a.LowestEquityToday)
	assert.Zero(t, a.CurrentProfitPercent)
	assert.Zero(t, a.CurrentDailyDrawdown)
	assert.Equal(t, models.StatusActive, a.Status)
}

func TestEvaluatePhaseProgressBelowTarget(t *testing.T) {
	s := NewRiskService()
	a := testAccount()

	a.UpdateEquity(107999)
	outcome := s.EvaluatePhaseProgress(a, testChallenge(), time.Now())
	assert.Equal(t, PhaseOutcomeNone, outcome)
	assert.Equal(t, 1, a.CurrentPhase)
}

func TestEvaluatePhaseProgressFinalPhasePasses(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	a.CurrentPhase = 2
	a.PhaseStartBalance = 108000
	a.CurrentBalance = 108000
	a.CurrentEquity = 108000

	// 5% over the phase-2 start
	a.UpdateEquity(113400)
	outcome := s.EvaluatePhaseProgress(a, testChallenge(), time.Now())

	assert.Equal(t, PhaseOutcomePassed, outcome)
	assert.Equal(t, models.StatusPassed, a.Status)
	require.NotNil(t, a.PassedAt)
}

func TestEvaluatePhaseProgressBlockedByFailViolation(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	a.AddViolation(models.CodeDailyDrawdownBreach, "breach", models.SeverityFail, nil, time.Now())
	a.Status = models.StatusActive // force re-check of the ledger guard

	a.UpdateEquity(110000)
	assert.Equal(t, PhaseOutcomeNone, s.EvaluatePhaseProgress(a, testChallenge(), time.Now()))
}

func TestEvaluatePhaseProgressIgnoresFundedAndZeroPhase(t *testing.T) {
	s := NewRiskService()

	funded := testAccount()
	funded.Type = models.AccountTypeFunded
	funded.Status = models.StatusFunded
	funded.UpdateEquity(120000)
	assert.Equal(t, PhaseOutcomeNone, s.EvaluatePhaseProgress(funded, testChallenge(), time.Now()))

	instant := testAccount()
	instant.TotalPhases = 0
	instant.UpdateEquity(120000)
	assert.Equal(t, PhaseOutcomeNone, s.EvaluatePhaseProgress(instant, testChallenge(), time.Now()))
}

func TestApplyTradeCloseBreachWinsOverTarget(t *testing.T) {
	s := NewRiskService()
	a := testAccount()

	// Dip through the daily limit intraday, then recover past the profit
	// target before the close: the drawdown anchored to the lowest equity
	// still fails the account.
	a.UpdateEquity(94000)
	a.UpdateEquity(109000)

	outcome := s.ApplyTradeClose(a, testChallenge(), time.Now())
	assert.Equal(t, PhaseOutcomeFailed, outcome)
	assert.Equal(t, models.StatusFailed, a.Status)
}

func TestCheckDrawdownBreachFailedAccountUntouched(t *testing.T) {
	s := NewRiskService()
	a := testAccount()

	failTime := time.Now().Add(-1 * time.Hour)
	a.UpdateEquity(94000)
	rej := s.CheckDrawdownBreach(a, testChallenge(), failTime)
	require.NotNil(t, rej)
	require.Equal(t, models.StatusFailed, a.Status)
	require.Len(t, a.Violations, 1)
	originalReason := a.FailReason
	originalFailedAt := *a.FailedAt

	// A leftover open trade settling later pushes equity further down; the
	// already-failed account keeps its original ledger and fail record.
	a.UpdateEquity(90000)
	outcome := s.ApplyTradeClose(a, testChallenge(), time.Now())

	assert.Equal(t, PhaseOutcomeNone, outcome)
	assert.Len(t, a.Violations, 1)
	assert.Equal(t, originalReason, a.FailReason)
	assert.Equal(t, originalFailedAt, *a.FailedAt)
}

func TestCheckDrawdownBreachSkipsExpiredAccount(t *testing.T) {
	s := NewRiskService()
	a := testAccount()
	a.Status = models.StatusExpired

	a.UpdateEquity(80000)
	rej := s.CheckDrawdownBreach(a, testChallenge(), time.Now())

	assert.Nil(t, rej)
	assert.Equal(t, models.StatusExpired, a.Status)
	assert.Empty(t, a.Violations)
}

func TestEffectiveLeverage(t *testing.T) {
	assert.Equal(t, 50, effectiveLeverage(50, 100))
	assert.Equal(t, 100, effectiveLeverage(0, 100), "unset falls back to max")
	assert.Equal(t, 100, effectiveLeverage(500, 100), "requests are clamped")
	assert.Equal(t, 1, effectiveLeverage(0, 0))
}
