package pricing

import (
	"testing"

	"github.com/prop-engine/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestContractSize(t *testing.T) {
	assert.Equal(t, 100000.0, ContractSize("forex"))
	assert.Equal(t, 100000.0, ContractSize("Forex"))
	assert.Equal(t, 100.0, ContractSize("metals"))
	assert.Equal(t, 100.0, ContractSize("commodities"))
	assert.Equal(t, 10.0, ContractSize("indices"))
	assert.Equal(t, 1.0, ContractSize("crypto"))
	assert.Equal(t, 1.0, ContractSize("unknown"))
}

func TestPipSize(t *testing.T) {
	assert.Equal(t, 0.01, PipSize("USDJPY"))
	assert.Equal(t, 0.01, PipSize("eurjpy"))
	assert.Equal(t, 0.0001, PipSize("EURUSD"))
}

func TestExecutionPriceFixedPips(t *testing.T) {
	// 2 pips on a non-JPY pair = 0.0002
	buy := ExecutionPrice(models.TradeSideBuy, 1.1000, 1.1002, models.SpreadFixedPips, 2, "EURUSD")
	assert.InDelta(t, 1.1004, buy, 1e-9)

	sell := ExecutionPrice(models.TradeSideSell, 1.1000, 1.1002, models.SpreadFixedPips, 2, "EURUSD")
	assert.InDelta(t, 1.0998, sell, 1e-9)
}

func TestExecutionPricePercent(t *testing.T) {
	buy := ExecutionPrice(models.TradeSideBuy, 99.0, 100.0, models.SpreadPercent, 1, "BTCUSD")
	assert.InDelta(t, 101.0, buy, 1e-9)

	sell := ExecutionPrice(models.TradeSideSell, 99.0, 100.0, models.SpreadPercent, 1, "BTCUSD")
	assert.InDelta(t, 98.01, sell, 1e-9)
}

func TestExecutionPriceWithoutSpread(t *testing.T) {
	assert.Equal(t, 1.1002, ExecutionPrice(models.TradeSideBuy, 1.1000, 1.1002, models.SpreadFixedPips, 0, "EURUSD"))
	assert.Equal(t, 1.1000, ExecutionPrice(models.TradeSideSell, 1.1000, 1.1002, models.SpreadFixedPips, 0, "EURUSD"))
}

func TestCommissionModes(t *testing.T) {
	assert.Equal(t, 7.0, Commission(models.CommissionFlat, 7, 2, 100000, 1.1))
	assert.Equal(t, 14.0, Commission(models.CommissionPerLot, 7, 2, 100000, 1.1))
	// 0.01% of notional 2 * 100000 * 1.1 = 220000
	assert.InDelta(t, 22.0, Commission(models.CommissionPercent, 0.01, 2, 100000, 1.1), 1e-9)
	assert.Zero(t, Commission(models.CommissionFlat, 0, 2, 100000, 1.1))
}

func TestRequiredMargin(t *testing.T) {
	// 1 lot EURUSD at 1.10 with 1:100 leverage
	assert.InDelta(t, 1100.0, RequiredMargin(1, 100000, 1.10, 100), 1e-9)
	// Zero leverage treated as 1
	assert.InDelta(t, 110000.0, RequiredMargin(1, 100000, 1.10, 0), 1e-9)
}

func TestPotentialLossIsSymmetric(t *testing.T) {
	long := PotentialLoss(1.1000, 1.0950, 1, 100000)
	short := PotentialLoss(1.0950, 1.1000, 1, 100000)
	assert.InDelta(t, 500.0, long, 1e-9)
	assert.Equal(t, long, short)
}

func TestRealizedPnL(t *testing.T) {
	assert.InDelta(t, 500.0, RealizedPnL(models.TradeSideBuy, 1.1000, 1.1050, 1, 100000), 1e-9)
	assert.InDelta(t, -500.0, RealizedPnL(models.TradeSideBuy, 1.1000, 1.0950, 1, 100000), 1e-9)
	assert.InDelta(t, 500.0, RealizedPnL(models.TradeSideSell, 1.1000, 1.0950, 1, 100000), 1e-9)
	assert.InDelta(t, -500.0, RealizedPnL(models.TradeSideSell, 1.1000, 1.1050, 1, 100000), 1e-9)
}
