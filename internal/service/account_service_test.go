package service

import (
	"testing"
	"time"

	"github.com/prop-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAccount(t *testing.T) {
	challenge := testChallenge()
	challenge.ID = 3

	a := seedAccount(challenge, 42)

	assert.Equal(t, uint(42), a.UserID)
	assert.Equal(t, uint(3), a.ChallengeID)
	assert.Equal(t, models.AccountTypeChallenge, a.Type)
	assert.Equal(t, models.StatusActive, a.Status)
	assert.Equal(t, 1, a.CurrentPhase)
	assert.Equal(t, 2, a.TotalPhases)

	// Every balance and extremum starts at the template's fund size
	assert.Equal(t, 100000.0, a.InitialBalance)
	assert.Equal(t, 100000.0, a.CurrentBalance)
	assert.Equal(t, 100000.0, a.CurrentEquity)
	assert.Equal(t, 100000.0, a.PhaseStartBalance)
	assert.Equal(t, 100000.0, a.DayStartEquity)
	assert.Equal(t, 100000.0, a.LowestEquityToday)
	assert.Equal(t, 100000.0, a.LowestEquityOverall)
	assert.Equal(t, 100000.0, a.HighestEquity)
}

func TestSeedAccountInstantFunding(t *testing.T) {
	challenge := testChallenge()
	challenge.StepsCount = 0

	a := seedAccount(challenge, 42)

	assert.Equal(t, 0, a.CurrentPhase)
	assert.Equal(t, 0, a.TotalPhases)
}

func TestNewFundedAccountSeeding(t *testing.T) {
	challenge := testChallenge()
	challenge.ID = 3
	source := testAccount()
	source.ID = 9
	source.UserID = 42
	source.ChallengeID = 3
	// The funded account starts fresh from the fund size, not from the
	// profits the source account closed evaluation with
	source.CurrentBalance = 113400
	source.CurrentEquity = 113400
	source.Status = models.StatusPassed

	now := time.Now()
	funded := newFundedAccount(source, challenge, "FN12345678", now)

	assert.Equal(t, "FN12345678", funded.AccountNumber)
	assert.Equal(t, uint(42), funded.UserID)
	assert.Equal(t, uint(3), funded.ChallengeID)
	assert.Equal(t, models.AccountTypeFunded, funded.Type)
	assert.Equal(t, models.StatusFunded, funded.Status)
	assert.Equal(t, 0, funded.CurrentPhase)
	assert.Equal(t, 0, funded.TotalPhases)

	assert.Equal(t, 100000.0, funded.InitialBalance)
	assert.Equal(t, 100000.0, funded.CurrentBalance)
	assert.Equal(t, 100000.0, funded.CurrentEquity)
	assert.Equal(t, 100000.0, funded.DayStartEquity)
	assert.Equal(t, 100000.0, funded.LowestEquityToday)
	assert.Equal(t, 100000.0, funded.LowestEquityOverall)

	require.NotNil(t, funded.SourceAccountID, "back-link makes promotion repairable")
	assert.Equal(t, uint(9), *funded.SourceAccountID)
	assert.Nil(t, funded.FundedAccountID)

	assert.Equal(t, now.AddDate(0, 0, fundedExpiryDays), funded.ExpiresAt)
	assert.True(t, funded.CanTrade())
}
