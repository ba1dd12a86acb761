// Package pricing holds the pure contract, spread, commission and P&L math
// used by the validation pipeline and the trade execution path. No state, no
// I/O.
package pricing

import (
	"strings"

	"github.com/prop-engine/internal/models"
)

// ContractSize maps an instrument segment to its standard contract size.
// Unknown segments fall back to 1 so quantity is read as units.
func ContractSize(segment string) float64 {
	switch strings.ToLower(segment) {
	case "forex":
		return 100000
	case "metals", "commodities":
		return 100
	case "indices":
		return 10
	case "crypto":
		return 1
	default:
		return 1
	}
}

// PipSize returns the price increment of one pip for a symbol. JPY-quoted
// forex pairs use 0.01, everything else 0.0001.
func PipSize(symbol string) float64 {
	if strings.HasSuffix(strings.ToUpper(symbol), "JPY") {
		return 0.01
	}
	return 0.0001
}

// ExecutionPrice applies the configured spread to the side's reference price:
// BUY executes at ask plus spread, SELL at bid minus spread.
func ExecutionPrice(side models.TradeSide, bid, ask float64, spreadType models.SpreadType, spreadValue float64, symbol string) float64 {
	base := ask
	if side == models.TradeSideSell {
		base = bid
	}
	if spreadValue <= 0 {
		return base
	}

	var adj float64
	switch spreadType {
	case models.SpreadFixedPips:
		adj = spreadValue * PipSize(symbol)
	case models.SpreadPercent:
		adj = base * spreadValue / 100
	default:
		return base
	}

	if side == models.TradeSideBuy {
		return base + adj
	}
	return base - adj
}

// Commission computes the charge for one execution leg
func Commission(commissionType models.CommissionType, value, quantity, contractSize, price float64) float64 {
	if value <= 0 {
		return 0
	}
	switch commissionType {
	case models.CommissionFlat:
		return value
	case models.CommissionPerLot:
		return value * quantity
	case models.CommissionPercent:
		return price * quantity * contractSize * value / 100
	default:
		return 0
	}
}

// RequiredMargin returns the margin needed to carry a position
func RequiredMargin(quantity, contractSize, price float64, leverage int) float64 {
	if leverage <= 0 {
		leverage = 1
	}
	return quantity * contractSize * price / float64(leverage)
}

// PotentialLoss returns the loss realized if price moves from entry to stop
func PotentialLoss(entry, stop, quantity, contractSize float64) float64 {
	diff := entry - stop
	if diff < 0 {
		diff = -diff
	}
	return diff * quantity * contractSize
}

// RealizedPnL computes the profit of a closed trade. BUY profits when price
// rises, SELL when it falls.
func RealizedPnL(side models.TradeSide, openPrice, closePrice, quantity, contractSize float64) float64 {
	if side == models.TradeSideBuy {
		return (closePrice - openPrice) * quantity * contractSize
	}
	return (openPrice - closePrice) * quantity * contractSize
}
