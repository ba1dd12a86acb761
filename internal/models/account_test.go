package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount() *ChallengeAccount {
	return &ChallengeAccount{
		Type:                AccountTypeChallenge,
		Status:              StatusActive,
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
	}
}

func TestUpdateEquityTracksExtrema(t *testing.T) {
	a := newAccount()

	a.UpdateEquity(98000)
	assert.Equal(t, 98000.0, a.LowestEquityToday)
	assert.Equal(t, 98000.0, a.LowestEquityOverall)
	assert.Equal(t, 100000.0, a.HighestEquity)

	// Recovery raises the high but never raises the lows
	a.UpdateEquity(103000)
	assert.Equal(t, 98000.0, a.LowestEquityToday)
	assert.Equal(t, 98000.0, a.LowestEquityOverall)
	assert.Equal(t, 103000.0, a.HighestEquity)
}

func TestUpdateEquityDrawdownStaysAtWorstPoint(t *testing.T) {
	a := newAccount()

	a.UpdateEquity(95000)
	assert.InDelta(t, 5.0, a.CurrentDailyDrawdown, 1e-9)
	assert.InDelta(t, 5.0, a.CurrentOverallDrawdown, 1e-9)

	// Drawdown is anchored to the lowest observed equity, so recovery does
	// not shrink it
	a.UpdateEquity(99000)
	assert.InDelta(t, 5.0, a.CurrentDailyDrawdown, 1e-9)
	assert.InDelta(t, 5.0, a.CurrentOverallDrawdown, 1e-9)
}

func TestUpdateEquityNeverNegativeDrawdown(t *testing.T) {
	a := newAccount()

	a.UpdateEquity(110000)
	assert.GreaterOrEqual(t, a.CurrentDailyDrawdown, 0.0)
	assert.GreaterOrEqual(t, a.CurrentOverallDrawdown, 0.0)
	assert.InDelta(t, 10.0, a.CurrentProfitPercent, 1e-9)
	assert.InDelta(t, 10000.0, a.TotalPnL, 1e-9)
}

func TestIsNewTradingDayUsesCalendarDate(t *testing.T) {
	a := newAccount()
	assert.True(t, a.IsNewTradingDay(time.Now()), "no recorded day yet")

	lastNight := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	a.LastTradingDay = &lastNight

	// Two minutes later but a new calendar date
	assert.True(t, a.IsNewTradingDay(time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)))
	// Same date, hours apart
	assert.False(t, a.IsNewTradingDay(time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)))
}

func TestOnTradeOpenedRollsDailyCounters(t *testing.T) {
	a := newAccount()
	day1 := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	a.OnTradeOpened(day1)
	a.OnTradeOpened(day1)
	assert.Equal(t, 2, a.TradesToday)
	assert.Equal(t, 2, a.OpenTradesCount)
	assert.Equal(t, 2, a.TotalTrades)
	assert.Equal(t, 1, a.TradingDays)

	a.UpdateEquity(97000)

	day2 := day1.Add(24 * time.Hour)
	a.OnTradeOpened(day2)
	assert.Equal(t, 1, a.TradesToday, "daily counter resets on the new date")
	assert.Equal(t, 3, a.TotalTrades, "total counter never resets")
	assert.Equal(t, 2, a.TradingDays)
	assert.Equal(t, 97000.0, a.DayStartEquity, "new day anchors to current equity")
	assert.Equal(t, 97000.0, a.LowestEquityToday)
	assert.Zero(t, a.CurrentDailyDrawdown)
}

func TestAddViolationWarning(t *testing.T) {
	a := newAccount()
	now := time.Now()

	v := a.AddViolation(CodeMaxTradesPerDay, "daily limit reached", SeverityWarning, nil, now)
	require.NotNil(t, v)
	assert.Equal(t, 1, a.WarningCount)
	assert.Equal(t, StatusActive, a.Status, "warnings do not change status")
	assert.Equal(t, 1, a.WarningCountForRule(CodeMaxTradesPerDay))
	assert.Equal(t, 0, a.WarningCountForRule(CodeMaxOpenTrades))
	assert.False(t, a.HasFailViolation())
}

func TestAddViolationFailStopsAccount(t *testing.T) {
	a := newAccount()
	now := time.Now()

	a.AddViolation(CodeDailyDrawdownBreach, "daily drawdown 5.00% reached the 5.00% limit", SeverityFail, nil, now)

	assert.Equal(t, StatusFailed, a.Status)
	assert.Equal(t, "daily drawdown 5.00% reached the 5.00% limit", a.FailReason)
	require.NotNil(t, a.FailedAt)
	assert.True(t, a.HasFailViolation())
	assert.False(t, a.CanTrade())
}

func TestCanTrade(t *testing.T) {
	a := newAccount()
	assert.True(t, a.CanTrade())

	a.Status = StatusFunded
	assert.True(t, a.CanTrade())

	for _, s := range []AccountStatus{StatusPassed, StatusFailed, StatusExpired} {
		a.Status = s
		assert.False(t, a.CanTrade(), string(s))
	}
}
