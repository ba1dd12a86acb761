package service

import (
	"errors"

	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/repository"
)

// TradeChargesResult is the resolved execution charges for one trade
type TradeChargesResult struct {
	SpreadType       models.SpreadType
	SpreadValue      float64
	CommissionType   models.CommissionType
	CommissionValue  float64
	CommissionOnBuy  bool
	CommissionOnSell bool
}

// ChargesService resolves spread and commission configuration for trades
type ChargesService struct {
	settingsRepo *repository.SettingsRepository
}

// NewChargesService creates a new ChargesService
func NewChargesService(settingsRepo *repository.SettingsRepository) *ChargesService {
	return &ChargesService{settingsRepo: settingsRepo}
}

// GetChargesForTrade resolves charges for a user/symbol/segment, falling back
// to the platform defaults when no override row matches
func (s *ChargesService) GetChargesForTrade(userID uint, symbol, segment string) (*TradeChargesResult, error) {
	charges, err := s.settingsRepo.GetCharges(userID, symbol, segment)
	if err == nil {
		return &TradeChargesResult{
			SpreadType:       charges.SpreadType,
			SpreadValue:      charges.SpreadValue,
			CommissionType:   charges.CommissionType,
			CommissionValue:  charges.CommissionValue,
			CommissionOnBuy:  charges.CommissionOnBuy,
			CommissionOnSell: charges.CommissionOnSell,
		}, nil
	}
	if !errors.Is(err, repository.ErrChargesNotFound) {
		return nil, err
	}

	settings, err := s.settingsRepo.Get()
	if err != nil {
		return nil, err
	}
	return &TradeChargesResult{
		SpreadType:       settings.DefaultSpreadType,
		SpreadValue:      settings.DefaultSpreadValue,
		CommissionType:   settings.DefaultCommissionType,
		CommissionValue:  settings.DefaultCommissionValue,
		CommissionOnBuy:  settings.CommissionOnBuy,
		CommissionOnSell: settings.CommissionOnSell,
	}, nil
}

// AppliesTo reports whether commission is charged on the given order leg
func (c *TradeChargesResult) AppliesTo(side models.TradeSide) bool {
	if side == models.TradeSideBuy {
		return c.CommissionOnBuy
	}
	return c.CommissionOnSell
}
