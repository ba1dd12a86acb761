package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSymbolAllowedEmptyListsPermitEverything(t *testing.T) {
	c := &Challenge{}
	assert.True(t, c.IsSymbolAllowed("EURUSD", "forex"))
	assert.True(t, c.IsSymbolAllowed("ANYTHING", ""))
}

func TestIsSymbolAllowedBySymbolOrSegment(t *testing.T) {
	c := &Challenge{
		AllowedSymbols:  "EURUSD, GBPUSD",
		AllowedSegments: "crypto",
	}

	assert.True(t, c.IsSymbolAllowed("EURUSD", "forex"), "listed symbol")
	assert.True(t, c.IsSymbolAllowed("eurusd", "forex"), "case insensitive")
	assert.True(t, c.IsSymbolAllowed("BTCUSD", "crypto"), "listed segment")
	assert.False(t, c.IsSymbolAllowed("XAUUSD", "metals"))
}

func TestIsSymbolAllowedSymbolListOnly(t *testing.T) {
	c := &Challenge{AllowedSymbols: "EURUSD"}
	assert.True(t, c.IsSymbolAllowed("EURUSD", "forex"))
	assert.False(t, c.IsSymbolAllowed("USDJPY", "forex"))
}

func TestProfitTargetForPhase(t *testing.T) {
	c := &Challenge{
		ProfitTargetPhase1Percent: 8,
		ProfitTargetPhase2Percent: 5,
		ProfitTargetPhase3Percent: 4,
	}

	assert.Equal(t, 8.0, c.ProfitTargetForPhase(1))
	assert.Equal(t, 5.0, c.ProfitTargetForPhase(2))
	assert.Equal(t, 4.0, c.ProfitTargetForPhase(3))
	assert.Zero(t, c.ProfitTargetForPhase(0))
	assert.Zero(t, c.ProfitTargetForPhase(4))
}

func TestAllowedListParsingSkipsBlanks(t *testing.T) {
	c := &Challenge{AllowedSymbols: " EURUSD ,, GBPUSD , "}
	assert.Equal(t, []string{"EURUSD", "GBPUSD"}, c.AllowedSymbolList())
	assert.Nil(t, (&Challenge{AllowedSymbols: "  "}).AllowedSymbolList())
}
